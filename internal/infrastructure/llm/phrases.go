package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// MaxInlineVideoBytes is the largest video sent inline; bigger files are described from the filename.
const MaxInlineVideoBytes = 15 << 20

const phrasePrompt = `You are a communication and technology expert for %s.
Write two sentences in %s for an email about the latest news.

Video context:
Title: %s
Description: %s
Today's date: %s

Instructions:
1. Write a casual, friendly "opening" sentence saying these are today's news (%s). Use the video context so it is relevant and different every time.
2. Write a casual "closing" sentence, similar to "More news soon" but with variations.

Answer ONLY with a valid JSON object with the keys "opening" and "closing". No markdown, no extra text.`

const videoPrompt = `As an expert YouTube content strategist specializing in SEO for a tech audience, analyze the following video.
Based on the video content, generate the following information in %s. Your response MUST be a valid JSON object with the keys "title", "description", "tags".

- "title": a new, compelling, SEO-friendly title (max 100 chars).
- "description": a detailed, engaging description including a brief summary of the video, a table of contents with accurate timestamps (e.g. 0:00 Introduction) and 5-10 relevant hashtags at the end.
- "tags": an array of around 15 high-quality keywords. Tags must not contain commas.`

// Copywriter writes email phrases and video upload metadata with the model.
type Copywriter struct {
	client   *GeminiClient
	model    string
	language string
	location *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

var (
	_ ports.PhraseGenerator = (*Copywriter)(nil)
	_ ports.VideoDescriber  = (*Copywriter)(nil)
)

// NewCopywriter uses cfg.PhraseModel and formats dates in loc.
func NewCopywriter(client *GeminiClient, cfg config.GeminiConfig, loc *time.Location, logger *slog.Logger) *Copywriter {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	model := cfg.PhraseModel
	if model == "" {
		model = cfg.Model
	}
	return &Copywriter{
		client:   client,
		model:    model,
		language: cfg.Language,
		location: loc,
		now:      time.Now,
		logger:   logger.With("component", "copywriter"),
	}
}

// EmailPhrases asks for an opening and a closing line tied to the latest video.
func (c *Copywriter) EmailPhrases(ctx context.Context, video domain.VideoInfo, platform string) (domain.EmailPhrases, error) {
	date := domain.DisplayDate(c.now(), c.location)
	prompt := fmt.Sprintf(phrasePrompt, platform, c.language, video.Title, video.Description, date, date)

	raw, err := c.client.GenerateContent(ctx, c.model, []Part{{Text: prompt}})
	if err != nil {
		return domain.EmailPhrases{}, fmt.Errorf("generate email phrases: %w", err)
	}

	var phrases domain.EmailPhrases
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &phrases); err != nil {
		return domain.EmailPhrases{}, &domain.ParseError{Source: "email phrases", Err: err}
	}
	if strings.TrimSpace(phrases.Opening) == "" || strings.TrimSpace(phrases.Closing) == "" {
		return domain.EmailPhrases{}, &domain.ParseError{Source: "email phrases", Err: errors.New("missing opening or closing")}
	}
	return phrases, nil
}

// DescribeVideo sends small videos inline and falls back to the file name for large ones.
func (c *Copywriter) DescribeVideo(ctx context.Context, fileName string, data []byte) (domain.VideoMetadata, error) {
	prompt := fmt.Sprintf(videoPrompt, c.language)
	parts := []Part{{Text: prompt}}
	if len(data) > 0 && len(data) < MaxInlineVideoBytes {
		parts = append(parts, Part{InlineData: &InlineData{
			MimeType: "video/mp4",
			Data:     base64.StdEncoding.EncodeToString(data),
		}})
	} else {
		c.logger.Info("video too large for inline analysis, using file name", "file", fileName, "bytes", len(data))
		parts = []Part{{Text: prompt + fmt.Sprintf("\n\nVideo file name (fallback): %q", fileName)}}
	}

	raw, err := c.client.GenerateContent(ctx, c.model, parts)
	if err != nil {
		return domain.VideoMetadata{}, fmt.Errorf("generate video metadata: %w", err)
	}

	var meta domain.VideoMetadata
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &meta); err != nil {
		return domain.VideoMetadata{}, &domain.ParseError{Source: "video metadata", Err: err}
	}
	if strings.TrimSpace(meta.Title) == "" {
		return domain.VideoMetadata{}, &domain.ParseError{Source: "video metadata", Err: errors.New("missing title")}
	}
	for i, tag := range meta.Tags {
		meta.Tags[i] = strings.TrimSpace(strings.ReplaceAll(tag, ",", " "))
	}
	return meta, nil
}
