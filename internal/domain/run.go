package domain

import "time"

// RunStage enumerates pipeline milestones.
type RunStage string

const (
	StageStarted    RunStage = "started"
	StageFetched    RunStage = "fetched"
	StageClassified RunStage = "classified"
	StageSummarized RunStage = "summarized"
	StageAssembled  RunStage = "assembled"
	StagePublished  RunStage = "published"
	StageArchived   RunStage = "archived"
	StageFailed     RunStage = "failed"
)

// PublishChannel names an outbound channel of a run.
type PublishChannel string

const (
	ChannelEmail  PublishChannel = "email"
	ChannelSocial PublishChannel = "social"
	ChannelVideo  PublishChannel = "video"
)

// PublishAttempt records the outcome of one outbound channel.
type PublishAttempt struct {
	Channel PublishChannel
	Success bool
	Skipped bool
	Error   string
	Ref     string
}

// RunReport summarizes one pipeline execution for logs and the CLI.
type RunReport struct {
	RunID       string
	Profile     string
	Stage       RunStage
	FailedStage RunStage
	StartedAt   time.Time
	FinishedAt  time.Time
	NewRows     int
	Summarized  int
	Failed      int
	Archived    int
	DocumentRef string
	Attempts    []PublishAttempt
}
