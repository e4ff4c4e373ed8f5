package ports

import (
	"context"
	"time"

	"NewsDigest/internal/domain"
)

// FeedFetcher pulls and normalizes a single RSS or Atom feed.
type FeedFetcher interface {
	Fetch(ctx context.Context, feedURL string) ([]domain.Post, error)
}

// RowStore is tabular storage addressed by table name and 1-based row index.
// Row 1 holds the header. Deleting a row shifts all later rows up by one.
type RowStore interface {
	EnsureTable(ctx context.Context, table string, header domain.Row) error
	ReadAll(ctx context.Context, table string) ([]domain.Row, error)
	WriteRows(ctx context.Context, table string, startRow int, rows []domain.Row) error
	AppendRows(ctx context.Context, table string, rows []domain.Row) error
	DeleteRow(ctx context.Context, table string, rowIndex int) error
	// ReplaceRows drops every row of table and writes rows from row 1 in one step.
	ReplaceRows(ctx context.Context, table string, rows []domain.Row) error
}

// Summarizer produces a grounded summary for an article URL.
type Summarizer interface {
	Summarize(ctx context.Context, articleURL string) (domain.SummaryResult, error)
}

// PhraseGenerator writes the opening and closing lines of the digest email.
type PhraseGenerator interface {
	EmailPhrases(ctx context.Context, video domain.VideoInfo, platform string) (domain.EmailPhrases, error)
}

// VideoDescriber generates upload metadata for a video file.
type VideoDescriber interface {
	DescribeVideo(ctx context.Context, fileName string, data []byte) (domain.VideoMetadata, error)
}

// DocumentStore persists a rendered digest under its title and returns where it landed.
// Saving the same title again replaces the earlier copy.
type DocumentStore interface {
	Save(ctx context.Context, title, html string) (string, error)
}

// Email is one outbound broadcast.
type Email struct {
	Bcc          []string
	Subject      string
	HTMLBody     string
	InlineImages []domain.InlineImage
}

// Mailer delivers transactional email.
type Mailer interface {
	Send(ctx context.Context, msg Email) error
}

// SocialPost is a text update with an optional link card.
type SocialPost struct {
	Text            string
	LinkURL         string
	LinkTitle       string
	LinkDescription string
}

// SocialPublisher creates and deletes posts on a social network.
type SocialPublisher interface {
	Post(ctx context.Context, post SocialPost) (string, error)
	Delete(ctx context.Context, postID string) error
}

// VideoPublisher uploads videos and waits for the platform to process them.
type VideoPublisher interface {
	Upload(ctx context.Context, fileName string, data []byte, meta domain.VideoMetadata) (string, error)
	WaitProcessed(ctx context.Context, videoID string) error
	WatchURL(videoID string) string
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
