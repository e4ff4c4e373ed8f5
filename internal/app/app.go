package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/time/rate"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/infrastructure/document"
	"NewsDigest/internal/infrastructure/feed"
	"NewsDigest/internal/infrastructure/linkedin"
	"NewsDigest/internal/infrastructure/llm"
	"NewsDigest/internal/infrastructure/mail"
	"NewsDigest/internal/infrastructure/scheduler"
	"NewsDigest/internal/infrastructure/storage"
	"NewsDigest/internal/infrastructure/youtube"
	"NewsDigest/internal/logging"
	"NewsDigest/internal/ports"
	"NewsDigest/internal/profile"
	"NewsDigest/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	db       *sqlx.DB
	registry *profile.Registry
	logger   *slog.Logger
}

// New opens the row store and builds one pipeline per configured profile.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := storage.Open(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open row store: %w", err)
	}
	store := storage.NewSQLRowStore(db, baseLogger)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate row store: %w", err)
	}

	gemini := llm.NewGeminiClient(cfg.Gemini, baseLogger)
	if !gemini.Configured() {
		baseLogger.Warn("gemini api key missing, summaries will fail and phrases fall back")
	}
	copywriter := llm.NewCopywriter(gemini, cfg.Gemini, cfg.Scheduler.Location(), baseLogger)
	fetcher := feed.NewFetcher(nil, baseLogger)
	documents := document.NewFileStore(cfg.Documents.OutputDir, baseLogger)
	mailer := mail.NewSMTPMailer(cfg.SMTP, baseLogger)

	var social ports.SocialPublisher
	if cfg.LinkedIn.AccessToken != "" {
		social = linkedin.NewPublisher(cfg.LinkedIn, baseLogger)
	}

	var videos ports.VideoPublisher
	if cfg.YouTube.AccessToken != "" {
		videos = youtube.NewPublisher(cfg.YouTube, baseLogger)
	}

	registry := profile.NewRegistry()
	for _, pc := range cfg.Profiles {
		logger := baseLogger.With("profile", pc.Name)
		loc := cfg.Scheduler.Location()

		publisher := usecase.NewPublisher(usecase.PublisherDeps{
			Mailer:  mailer,
			Social:  social,
			Phrases: copywriter,
			Store:   store,
			Logger:  logger,
		}, usecase.PublisherSettings{
			Profile:     pc.Name,
			Platform:    pc.PlatformName,
			SubjectBase: pc.SubjectBase,
			PostsTable:  cfg.LinkedIn.PostsTable,
			Location:    loc,
		})

		var uploader *usecase.VideoUploader
		if videos != nil && pc.VideoSourceDir != "" {
			uploader = usecase.NewVideoUploader(copywriter, videos, store, usecase.VideoSettings{
				SourceDir: pc.VideoSourceDir,
				DoneDir:   pc.VideoDoneDir,
				Table:     pc.VideoTable,
				Location:  loc,
			}, logger)
		}

		pipeline := usecase.NewPipeline(usecase.PipelineDeps{
			Fetcher:    fetcher,
			Store:      store,
			Summarizer: llm.NewSummarizer(gemini, cfg.Gemini, pc.PlatformName, logger),
			Documents:  documents,
			Publisher:  publisher,
			Videos:     uploader,
			Limiter:    rate.NewLimiter(rate.Every(cfg.Gemini.Throttle), 1),
			Logger:     logger,
		}, profileSettings(pc, cfg.Archive, loc))

		registry.Register(profile.Runtime{
			Name:      pc.Name,
			Pipeline:  pipeline,
			Publisher: publisher,
			Videos:    uploader,
		})
	}

	return &Application{cfg: cfg, db: db, registry: registry, logger: baseLogger}, nil
}

func profileSettings(pc config.ProfileConfig, archive config.ArchiveConfig, loc *time.Location) usecase.ProfileSettings {
	return usecase.ProfileSettings{
		Name:                  pc.Name,
		Platform:              pc.PlatformName,
		FeedURL:               pc.FeedURL,
		Channels:              pc.Channels,
		ChannelCap:            pc.ChannelCap,
		ExcludeTitleContains:  pc.ExcludeTitleContains,
		ActiveTable:           pc.ActiveTable,
		ArchiveTable:          pc.ArchiveTable,
		EmailTable:            pc.EmailTable,
		EmailListKey:          pc.EmailListKey,
		DocumentBaseTitle:     pc.DocumentBaseTitle,
		VideoTable:            pc.VideoTable,
		VideoSourceDir:        pc.VideoSourceDir,
		VideoDoneDir:          pc.VideoDoneDir,
		ArchiveOnlySummarized: archive.OnlySummarized,
		Location:              loc,
	}
}

// Close releases the row store connection.
func (a *Application) Close() error {
	return a.db.Close()
}

// Init creates the tables of the selected profiles.
func (a *Application) Init(ctx context.Context, names ...string) error {
	runtimes, err := a.registry.Select(names...)
	if err != nil {
		return err
	}
	for _, rt := range runtimes {
		if err := rt.Pipeline.Init(ctx); err != nil {
			return fmt.Errorf("init %s: %w", rt.Name, err)
		}
		a.logger.Info("tables ready", "profile", rt.Name)
	}
	return nil
}

// Run performs a full refresh and digest for the selected profiles.
func (a *Application) Run(ctx context.Context, names ...string) ([]domain.RunReport, error) {
	now := time.Now().In(a.cfg.Scheduler.Location())
	return a.each(names, func(rt profile.Runtime) (domain.RunReport, error) {
		return rt.Pipeline.Run(ctx, now)
	})
}

// Refresh rebuilds the active tables of the selected profiles.
func (a *Application) Refresh(ctx context.Context, names ...string) ([]domain.RunReport, error) {
	return a.each(names, func(rt profile.Runtime) (domain.RunReport, error) {
		return rt.Pipeline.Refresh(ctx)
	})
}

// Digest summarizes, publishes and archives the active rows of the selected profiles.
func (a *Application) Digest(ctx context.Context, test bool, names ...string) ([]domain.RunReport, error) {
	return a.each(names, func(rt profile.Runtime) (domain.RunReport, error) {
		return rt.Pipeline.Digest(ctx, usecase.DigestOptions{Test: test})
	})
}

// Videos uploads the newest video of each selected profile that has a video source.
func (a *Application) Videos(ctx context.Context, names ...string) ([]domain.PublishAttempt, error) {
	runtimes, err := a.registry.Select(names...)
	if err != nil {
		return nil, err
	}

	var attempts []domain.PublishAttempt
	for _, rt := range runtimes {
		if rt.Videos == nil {
			a.logger.Info("no video uploader configured", "profile", rt.Name)
			continue
		}
		_, attempt := rt.Videos.PublishLatest(ctx)
		attempts = append(attempts, attempt)
	}
	return attempts, nil
}

// DeletePost removes a social post through the named profile; an empty urn deletes the last one.
func (a *Application) DeletePost(ctx context.Context, profileName, urn string) (string, error) {
	if profileName == "" && len(a.cfg.Profiles) > 0 {
		profileName = a.cfg.Profiles[0].Name
	}
	rt, err := a.registry.Resolve(profileName)
	if err != nil {
		return "", err
	}
	return rt.Publisher.DeletePost(ctx, urn)
}

// Schedule runs every profile on the configured interval until ctx is cancelled.
func (a *Application) Schedule(ctx context.Context) error {
	driver := scheduler.NewIntervalScheduler(a.cfg.Scheduler.Interval, a.cfg.Scheduler.Location())
	jobs := usecase.NewScheduler(driver, a.logger, a.registry.Pipelines()...)

	if err := jobs.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started", "interval", a.cfg.Scheduler.Interval, "profiles", len(a.cfg.Profiles))

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return jobs.Stop(stopCtx)
}

// each runs fn for the selected profiles, continuing past failures and joining their errors.
func (a *Application) each(names []string, fn func(profile.Runtime) (domain.RunReport, error)) ([]domain.RunReport, error) {
	runtimes, err := a.registry.Select(names...)
	if err != nil {
		return nil, err
	}

	var (
		reports []domain.RunReport
		errs    []error
	)
	for _, rt := range runtimes {
		report, err := fn(rt)
		reports = append(reports, report)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rt.Name, err))
		}
	}
	return reports, errors.Join(errs...)
}
