package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// SocialPostsHeader is the header of the table that remembers published post URNs.
var SocialPostsHeader = domain.Row{"URN", "Profile", "Posted At"}

// PublisherSettings carries the per-profile publishing options.
type PublisherSettings struct {
	Profile     string
	Platform    string
	SubjectBase string
	PostsTable  string
	Location    *time.Location
}

// PublisherDeps wires the outbound channels. Social may be nil.
type PublisherDeps struct {
	Mailer  ports.Mailer
	Social  ports.SocialPublisher
	Phrases ports.PhraseGenerator
	Store   ports.RowStore
	Logger  *slog.Logger
}

// PublishRequest is everything one digest broadcast needs.
type PublishRequest struct {
	Document    domain.Document
	Recipients  []string
	Video       domain.VideoInfo
	InlineImage *domain.InlineImage

	// EmailOnly suppresses the social post, as test sends do.
	EmailOnly bool
}

// Publisher fans a finished digest out to email and social channels.
type Publisher struct {
	mailer   ports.Mailer
	social   ports.SocialPublisher
	phrases  ports.PhraseGenerator
	store    ports.RowStore
	settings PublisherSettings
	logger   *slog.Logger
	now      func() time.Time
}

// NewPublisher constructs the publish orchestrator.
func NewPublisher(deps PublisherDeps, settings PublisherSettings) *Publisher {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	return &Publisher{
		mailer:   deps.Mailer,
		social:   deps.Social,
		phrases:  deps.Phrases,
		store:    deps.Store,
		settings: settings,
		logger:   logger.With("component", "publisher", "profile", settings.Profile),
		now:      time.Now,
	}
}

// Publish sends the email and the social post. Each channel fails on its own;
// every outcome is returned and none is propagated.
func (p *Publisher) Publish(ctx context.Context, req PublishRequest) []domain.PublishAttempt {
	phrases := p.emailPhrases(ctx, req.Video)

	attempts := []domain.PublishAttempt{p.sendEmail(ctx, req, phrases)}
	if req.EmailOnly {
		return append(attempts, domain.PublishAttempt{Channel: domain.ChannelSocial, Skipped: true})
	}
	return append(attempts, p.postSocial(ctx, req.Video, phrases))
}

func (p *Publisher) emailPhrases(ctx context.Context, video domain.VideoInfo) domain.EmailPhrases {
	fallback := FallbackPhrases(p.settings.Platform, p.now(), p.settings.Location)
	if p.phrases == nil {
		return fallback
	}

	phrases, err := p.phrases.EmailPhrases(ctx, video, p.settings.Platform)
	if err != nil {
		p.logger.Warn("phrase generation failed, using fallback", "error", err)
		return fallback
	}
	if phrases.Opening == "" {
		phrases.Opening = fallback.Opening
	}
	if phrases.Closing == "" {
		phrases.Closing = fallback.Closing
	}
	return phrases
}

func (p *Publisher) sendEmail(ctx context.Context, req PublishRequest, phrases domain.EmailPhrases) domain.PublishAttempt {
	attempt := domain.PublishAttempt{Channel: domain.ChannelEmail}
	if len(req.Recipients) == 0 {
		attempt.Skipped = true
		attempt.Error = "no valid recipients"
		p.logger.Warn("email skipped", "reason", attempt.Error)
		return attempt
	}

	msg := ports.Email{
		Bcc:      req.Recipients,
		Subject:  Subject(p.settings.SubjectBase, req.Video.Title),
		HTMLBody: EmailBody(phrases, req.Video, RenderHTML(req.Document), req.InlineImage),
	}
	if req.InlineImage != nil {
		msg.InlineImages = []domain.InlineImage{*req.InlineImage}
	}

	if err := p.mailer.Send(ctx, msg); err != nil {
		err = &domain.PublishError{Channel: domain.ChannelEmail, Err: err}
		attempt.Error = err.Error()
		p.logger.Error("email failed", "error", err)
		return attempt
	}

	attempt.Success = true
	p.logger.Info("email sent", "recipients", len(req.Recipients), "subject", msg.Subject)
	return attempt
}

func (p *Publisher) postSocial(ctx context.Context, video domain.VideoInfo, phrases domain.EmailPhrases) domain.PublishAttempt {
	attempt := domain.PublishAttempt{Channel: domain.ChannelSocial}
	if p.social == nil {
		attempt.Skipped = true
		return attempt
	}
	if video.Link == "" {
		attempt.Skipped = true
		p.logger.Info("no video link, social post skipped")
		return attempt
	}

	urn, err := p.social.Post(ctx, ports.SocialPost{
		Text:            fmt.Sprintf("%s\n\nCheck out the latest %s news update!", phrases.Opening, p.settings.Platform),
		LinkURL:         video.Link,
		LinkTitle:       video.Title,
		LinkDescription: video.Description,
	})
	if err != nil {
		err = &domain.PublishError{Channel: domain.ChannelSocial, Err: err}
		attempt.Error = err.Error()
		p.logger.Error("social post failed", "error", err)
		return attempt
	}

	attempt.Success = true
	attempt.Ref = urn
	p.logger.Info("social post published", "urn", urn)

	if err := p.rememberPost(ctx, urn); err != nil {
		p.logger.Warn("store post urn", "urn", urn, "error", err)
	}
	return attempt
}

func (p *Publisher) rememberPost(ctx context.Context, urn string) error {
	if p.store == nil || p.settings.PostsTable == "" {
		return nil
	}
	if err := p.store.EnsureTable(ctx, p.settings.PostsTable, SocialPostsHeader); err != nil {
		return err
	}
	row := domain.Row{urn, p.settings.Profile, p.now().In(p.settings.Location).Format(time.RFC3339)}
	return p.store.AppendRows(ctx, p.settings.PostsTable, []domain.Row{row})
}

// DeletePost removes a social post. An empty urn deletes the most recently stored
// post; its row is removed from the posts table once the network confirms.
func (p *Publisher) DeletePost(ctx context.Context, urn string) (string, error) {
	if p.social == nil {
		return "", fmt.Errorf("delete post: social publisher %w", domain.ErrNotConfigured)
	}

	rowIndex := 0
	if p.store != nil && p.settings.PostsTable != "" {
		rows, err := p.store.ReadAll(ctx, p.settings.PostsTable)
		if err != nil && !(urn != "" && errors.Is(err, domain.ErrTableNotFound)) {
			return "", fmt.Errorf("read posts table: %w", err)
		}
		for i := len(rows) - 1; i >= 1; i-- {
			if urn == "" || rows[i].Cell(0) == urn {
				urn = rows[i].Cell(0)
				rowIndex = i + 1
				break
			}
		}
	}
	if urn == "" {
		return "", errors.New("delete post: no stored post")
	}

	if err := p.social.Delete(ctx, urn); err != nil {
		return urn, &domain.PublishError{Channel: domain.ChannelSocial, Err: err}
	}
	p.logger.Info("social post deleted", "urn", urn)

	if rowIndex > 0 {
		if err := p.store.DeleteRow(ctx, p.settings.PostsTable, rowIndex); err != nil {
			p.logger.Warn("forget post urn", "urn", urn, "error", err)
		}
	}
	return urn, nil
}
