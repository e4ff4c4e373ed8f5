package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/time/rate"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

const (
	// FeedErrorMarker is written to the active table when the feed cannot be read.
	FeedErrorMarker = "Error fetching or parsing RSS feed."
	// NoNewPostsMarker fills the active table when a refresh finds nothing new.
	NoNewPostsMarker = "No new posts found."

	documentDateLayout = "2006-01-02"
)

// ProfileSettings is the per-profile configuration of a pipeline.
type ProfileSettings struct {
	Name                 string
	Platform             string
	FeedURL              string
	Channels             []string
	ChannelCap           int
	ExcludeTitleContains []string
	ActiveTable          string
	ArchiveTable         string
	EmailTable           string
	EmailListKey         string
	DocumentBaseTitle    string
	VideoTable           string
	VideoSourceDir       string
	VideoDoneDir         string

	// ArchiveOnlySummarized keeps rows whose summary failed in the active table for the next run.
	ArchiveOnlySummarized bool
	Location              *time.Location
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
// Videos is nil for profiles without a video source.
type PipelineDeps struct {
	Fetcher    ports.FeedFetcher
	Store      ports.RowStore
	Summarizer ports.Summarizer
	Documents  ports.DocumentStore
	Publisher  *Publisher
	Videos     *VideoUploader
	Limiter    *rate.Limiter
	Logger     *slog.Logger
}

// DigestOptions tunes a digest run.
type DigestOptions struct {
	// Test sends the email to the testing list only and leaves the active table untouched.
	Test bool
}

// Pipeline implements the feed-to-digest workflow of one profile.
type Pipeline struct {
	fetcher    ports.FeedFetcher
	store      ports.RowStore
	summarizer ports.Summarizer
	documents  ports.DocumentStore
	publisher  *Publisher
	videos     *VideoUploader
	archiver   *Archiver
	limiter    *rate.Limiter
	profile    ProfileSettings
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps, profile ProfileSettings) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if profile.Location == nil {
		profile.Location = time.UTC
	}
	limiter := deps.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &Pipeline{
		fetcher:    deps.Fetcher,
		store:      deps.Store,
		summarizer: deps.Summarizer,
		documents:  deps.Documents,
		publisher:  deps.Publisher,
		videos:     deps.Videos,
		archiver:   NewArchiver(deps.Store, logger),
		limiter:    limiter,
		profile:    profile,
		logger:     logger.With("component", "pipeline", "profile", profile.Name),
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Profile is the name of the profile this pipeline serves.
func (p *Pipeline) Profile() string {
	return p.profile.Name
}

// Run refreshes the active table from the feed and then digests it.
func (p *Pipeline) Run(ctx context.Context, trigger time.Time) (domain.RunReport, error) {
	report, logger := p.startReport(trigger)

	added, err := p.refresh(ctx, logger, &report)
	if err != nil {
		return p.finish(logger, report, err)
	}
	report.NewRows = added

	err = p.digest(ctx, logger, &report, DigestOptions{})
	return p.finish(logger, report, err)
}

// Refresh rebuilds the active table from the feed without summarizing anything.
func (p *Pipeline) Refresh(ctx context.Context) (domain.RunReport, error) {
	report, logger := p.startReport(p.now())

	added, err := p.refresh(ctx, logger, &report)
	report.NewRows = added
	return p.finish(logger, report, err)
}

// Digest summarizes the rows already in the active table, publishes and archives them.
func (p *Pipeline) Digest(ctx context.Context, opts DigestOptions) (domain.RunReport, error) {
	report, logger := p.startReport(p.now())
	err := p.digest(ctx, logger, &report, opts)
	return p.finish(logger, report, err)
}

// Init creates the profile tables that do not exist yet.
func (p *Pipeline) Init(ctx context.Context) error {
	tables := []struct {
		name   string
		header domain.Row
	}{
		{p.profile.ActiveTable, domain.ActiveHeader},
		{p.profile.ArchiveTable, domain.ActiveHeader},
		{p.profile.EmailTable, domain.Row{"type", "list"}},
		{p.profile.VideoTable, VideoOverviewHeader},
	}
	for _, table := range tables {
		if table.name == "" {
			continue
		}
		if err := p.store.EnsureTable(ctx, table.name, table.header); err != nil {
			return fmt.Errorf("ensure table %s: %w", table.name, err)
		}
	}
	return nil
}

func (p *Pipeline) startReport(trigger time.Time) (domain.RunReport, *slog.Logger) {
	report := domain.RunReport{
		RunID:     p.newID(),
		Profile:   p.profile.Name,
		Stage:     domain.StageStarted,
		StartedAt: trigger,
	}
	logger := p.logger.With("run_id", report.RunID)
	logger.Info("run started")
	return report, logger
}

func (p *Pipeline) finish(logger *slog.Logger, report domain.RunReport, err error) (domain.RunReport, error) {
	report.FinishedAt = p.now()
	if err != nil {
		report.FailedStage = failedStage(report.Stage)
		report.Stage = domain.StageFailed
		logger.Error("run failed", "stage", report.FailedStage, "error", err)
		return report, err
	}
	logger.Info("run finished",
		"stage", report.Stage,
		"new_rows", report.NewRows,
		"summarized", report.Summarized,
		"failed", report.Failed,
		"archived", report.Archived)
	return report, nil
}

// failedStage names the stage that was in progress when a run stopped after reaching last.
func failedStage(last domain.RunStage) domain.RunStage {
	switch last {
	case domain.StageStarted:
		return domain.StageFetched
	case domain.StageFetched:
		return domain.StageClassified
	case domain.StageClassified:
		return domain.StageSummarized
	default:
		return last
	}
}

func (p *Pipeline) advance(logger *slog.Logger, report *domain.RunReport, stage domain.RunStage) {
	report.Stage = stage
	logger.Info("stage reached", "stage", stage)
}

// refresh fetches the feed, classifies it against the archive and rewrites the active
// table, keeping rows that were left for a later digest. Feed failures leave the existing
// rows in place and append a visible marker.
func (p *Pipeline) refresh(ctx context.Context, logger *slog.Logger, report *domain.RunReport) (int, error) {
	activeRows, err := p.store.ReadAll(ctx, p.profile.ActiveTable)
	if err != nil {
		return 0, fmt.Errorf("read active table: %w", err)
	}
	archiveRows, err := p.store.ReadAll(ctx, p.profile.ArchiveTable)
	if err != nil {
		return 0, fmt.Errorf("read archive table: %w", err)
	}
	archived := ArchiveLinks(archiveRows)
	pending := carryOver(activeRows, archived)

	posts, err := p.fetcher.Fetch(ctx, p.profile.FeedURL)
	if err != nil {
		if markErr := p.store.AppendRows(ctx, p.profile.ActiveTable, []domain.Row{{FeedErrorMarker}}); markErr != nil {
			logger.Error("write feed error marker", "error", markErr)
		}
		return 0, fmt.Errorf("fetch feed: %w", err)
	}
	p.advance(logger, report, domain.StageFetched)

	posts = ExcludeTitles(posts, p.profile.ExcludeTitleContains)
	posts = lo.Reject(posts, func(post domain.Post, _ int) bool {
		_, kept := pending.links[strings.TrimSpace(post.Link)]
		return kept
	})
	table := Classify(posts, p.profile.Channels, archived, p.profile.ChannelCap)
	for _, post := range table.Unmatched {
		logger.Debug("post matches no channel", "link", post.Link, "categories", post.Categories)
	}
	if table.Archived > 0 {
		logger.Info("dropped archived links", "count", table.Archived)
	}

	rows := []domain.Row{domain.ActiveHeader}
	for _, r := range table.Rows(p.profile.Location) {
		rows = append(rows, r.ToRow())
	}
	for _, r := range pending.rows {
		rows = append(rows, r.ToRow())
	}
	if len(rows) == 1 {
		rows = append(rows, domain.Row{NoNewPostsMarker})
	}

	if err := p.store.ReplaceRows(ctx, p.profile.ActiveTable, rows); err != nil {
		return 0, fmt.Errorf("rewrite active table: %w", err)
	}
	p.advance(logger, report, domain.StageClassified)

	logger.Info("active table refreshed",
		"rows", table.Len(),
		"carried_over", len(pending.rows),
		"unmatched", len(table.Unmatched))
	return table.Len(), nil
}

// pendingRows are active rows that still wait for a digest.
type pendingRows struct {
	rows  []domain.ActiveRow
	links map[string]struct{}
}

// carryOver picks the active rows that must survive a rewrite: every row with an http link
// the archive does not hold yet, once per link, in active header order.
func carryOver(active []domain.Row, archived map[string]struct{}) pendingRows {
	pending := pendingRows{links: make(map[string]struct{})}
	if len(active) == 0 {
		return pending
	}

	header := active[0]
	linkCol := domain.ColumnIndex(header, domain.ColumnLink)
	if linkCol < 0 {
		return pending
	}
	channelCol := domain.ColumnIndex(header, domain.ColumnChannel)
	titleCol := domain.ColumnIndex(header, domain.ColumnTitle)
	dateCol := domain.ColumnIndex(header, domain.ColumnDate)

	for _, row := range active[1:] {
		link := row.Cell(linkCol)
		if !strings.HasPrefix(link, "http") {
			continue
		}
		if _, done := archived[link]; done {
			continue
		}
		if _, dup := pending.links[link]; dup {
			continue
		}
		pending.links[link] = struct{}{}
		pending.rows = append(pending.rows, domain.ActiveRow{
			Channel:         row.Cell(channelCol),
			Title:           row.Cell(titleCol),
			Link:            link,
			PublicationDate: row.Cell(dateCol),
		})
	}
	return pending
}

type activeEntry struct {
	rowIndex int
	row      domain.Row
	channel  string
	link     string
}

func (p *Pipeline) readActive(ctx context.Context, logger *slog.Logger) ([]activeEntry, error) {
	table := p.profile.ActiveTable
	rows, err := p.store.ReadAll(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("read active table: %w", err)
	}
	if len(rows) == 0 {
		return nil, &domain.StoreError{Table: table, Column: domain.ColumnLink, Err: domain.ErrColumnNotFound}
	}

	linkCol := domain.ColumnIndex(rows[0], domain.ColumnLink)
	if linkCol < 0 {
		return nil, &domain.StoreError{Table: table, Column: domain.ColumnLink, Err: domain.ErrColumnNotFound}
	}
	channelCol := domain.ColumnIndex(rows[0], domain.ColumnChannel)
	if channelCol < 0 {
		return nil, &domain.StoreError{Table: table, Column: domain.ColumnChannel, Err: domain.ErrColumnNotFound}
	}

	var entries []activeEntry
	seen := make(map[string]struct{})
	for i := 1; i < len(rows); i++ {
		link := rows[i].Cell(linkCol)
		if !strings.HasPrefix(link, "http") {
			continue
		}
		if _, dup := seen[link]; dup {
			logger.Warn("duplicate link in active table", "link", link, "row", i+1)
			continue
		}
		seen[link] = struct{}{}

		channel := rows[i].Cell(channelCol)
		if channel == "" {
			channel = domain.DefaultChannel
		}
		entries = append(entries, activeEntry{rowIndex: i + 1, row: rows[i], channel: channel, link: link})
	}
	return entries, nil
}

func (p *Pipeline) digest(ctx context.Context, logger *slog.Logger, report *domain.RunReport, opts DigestOptions) error {
	if report.Stage == domain.StageStarted {
		// Digest starts from an already classified table.
		p.advance(logger, report, domain.StageClassified)
	}
	entries, err := p.readActive(ctx, logger)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		logger.Info("no rows to digest", "table", p.profile.ActiveTable)
		return nil
	}

	byChannel := make(map[string][]domain.Article)
	succeeded := make(map[int]bool, len(entries))
	for _, entry := range entries {
		if err := p.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("throttle: %w", err)
		}

		article := domain.Article{URL: entry.link}
		summary, err := p.summarizer.Summarize(ctx, entry.link)
		switch {
		case err == nil:
			article.Summary = summary
			succeeded[entry.rowIndex] = true
			report.Summarized++
		case domain.IsRecoverable(err):
			article.Err = err
			report.Failed++
			logger.Warn("article summary failed", "link", entry.link, "error", err)
		default:
			return fmt.Errorf("summarize %s: %w", entry.link, err)
		}
		byChannel[entry.channel] = append(byChannel[entry.channel], article)
	}
	p.advance(logger, report, domain.StageSummarized)

	title := p.profile.DocumentBaseTitle + p.now().In(p.profile.Location).Format(documentDateLayout)
	doc := Assemble(title, byChannel)
	saved := true
	ref, err := p.documents.Save(ctx, doc.Title, RenderFullHTML(doc))
	if err != nil {
		saved = false
		logger.Error("save document", "title", doc.Title, "error", err)
	} else {
		report.DocumentRef = ref
		logger.Info("document saved", "title", doc.Title, "ref", ref)
	}
	p.advance(logger, report, domain.StageAssembled)

	p.publish(ctx, logger, report, doc, opts)
	p.advance(logger, report, domain.StagePublished)

	if opts.Test {
		logger.Info("test send, active table left untouched")
		return nil
	}
	if !saved {
		logger.Warn("document not saved, rows stay in the active table")
		return nil
	}

	var (
		indices []int
		moved   []domain.Row
	)
	for _, entry := range entries {
		if p.profile.ArchiveOnlySummarized && !succeeded[entry.rowIndex] {
			continue
		}
		indices = append(indices, entry.rowIndex)
		moved = append(moved, entry.row)
	}
	if err := p.archiver.Archive(ctx, p.profile.ActiveTable, p.profile.ArchiveTable, indices, moved); err != nil {
		logger.Error("archive rows", "error", err)
		return nil
	}
	report.Archived = len(moved)
	p.advance(logger, report, domain.StageArchived)
	return nil
}

func (p *Pipeline) publish(ctx context.Context, logger *slog.Logger, report *domain.RunReport, doc domain.Document, opts DigestOptions) {
	if p.publisher == nil {
		return
	}

	video := domain.VideoInfo{}
	if p.videos != nil && !opts.Test {
		uploaded, attempt := p.videos.PublishLatest(ctx)
		report.Attempts = append(report.Attempts, attempt)
		if attempt.Success {
			video = uploaded
		}
	}
	video = p.completeVideo(ctx, logger, video)

	key := p.profile.EmailListKey
	if opts.Test {
		key = TestingListKey
	}
	var recipients []string
	list, err := EmailList(ctx, p.store, p.profile.EmailTable, key)
	if err != nil {
		logger.Error("load recipients", "key", key, "error", err)
	} else {
		recipients = ValidateEmails(list, logger)
	}

	image, imagePath, err := LatestImage(p.profile.VideoSourceDir)
	if err != nil {
		logger.Warn("load summary image", "error", err)
	}

	attempts := p.publisher.Publish(ctx, PublishRequest{
		Document:    doc,
		Recipients:  recipients,
		Video:       video,
		InlineImage: image,
		EmailOnly:   opts.Test,
	})
	report.Attempts = append(report.Attempts, attempts...)

	if imagePath != "" && !opts.Test && p.profile.VideoDoneDir != "" && emailSent(attempts) {
		if err := MoveFile(imagePath, p.profile.VideoDoneDir); err != nil {
			logger.Warn("move summary image", "error", err)
		}
	}
}

// completeVideo fills missing video details from the video table, then from defaults.
func (p *Pipeline) completeVideo(ctx context.Context, logger *slog.Logger, video domain.VideoInfo) domain.VideoInfo {
	defaults := domain.VideoInfo{
		Title:       "Noticias " + p.profile.Name,
		Description: "Resumen de noticias de " + p.profile.Platform + ".",
	}
	if video.Link == "" && p.profile.VideoTable != "" {
		latest, err := LatestVideo(ctx, p.store, p.profile.VideoTable, defaults)
		if err != nil {
			logger.Warn("read video table", "error", err)
		}
		return latest
	}
	if video.Title == "" {
		video.Title = defaults.Title
	}
	if video.Description == "" {
		video.Description = defaults.Description
	}
	return video
}

func emailSent(attempts []domain.PublishAttempt) bool {
	for _, a := range attempts {
		if a.Channel == domain.ChannelEmail && a.Success {
			return true
		}
	}
	return false
}
