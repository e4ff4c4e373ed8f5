package llm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	contentx "NewsDigest/internal/infrastructure/content"
	"NewsDigest/internal/ports"
)

const maxArticleBytes = 8 << 20

var titleMarkers = regexp.MustCompile(`^\*+\s*|\s*\*+$`)

const summaryPrompt = `You are a technology expert covering %s. Below is the text of an article.

Instructions:
1. Write a short, catchy title for the article in bold on a single line.
2. On the next line, write a single concise paragraph (between 50 and 70 words) in %s.
3. Focus the summary on the main topic and the key conclusions of the supplied text.
4. Add 2 or 3 relevant emojis at the end of the summary.
5. IMPORTANT: base your answer exclusively on the text below. Do not invent information or use outside knowledge.

Article text:
---
%s`

// Summarizer grounds a model summary on the fetched article text.
type Summarizer struct {
	client     *GeminiClient
	model      string
	platform   string
	language   string
	minLength  int
	extractor  contentx.Extractor
	httpClient *http.Client
	logger     *slog.Logger
}

var _ ports.Summarizer = (*Summarizer)(nil)

// NewSummarizer wires the model client with the extraction settings from cfg.
func NewSummarizer(client *GeminiClient, cfg config.GeminiConfig, platform string, logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{
		client:     client,
		model:      cfg.Model,
		platform:   platform,
		language:   cfg.Language,
		minLength:  cfg.MinContentLength,
		extractor:  contentx.New(cfg.Extractor, cfg.MaxContentLength),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.With("component", "summarizer"),
	}
}

// Summarize fetches articleURL, rejects thin pages and asks the model for a title and a paragraph.
func (s *Summarizer) Summarize(ctx context.Context, articleURL string) (domain.SummaryResult, error) {
	text, err := s.articleText(ctx, articleURL)
	if err != nil {
		return domain.SummaryResult{}, err
	}

	if n := utf8.RuneCountInString(text); n < s.minLength {
		return domain.SummaryResult{}, &domain.ContentTooShortError{URL: articleURL, Length: n, Min: s.minLength}
	}

	raw, err := s.client.GenerateContent(ctx, s.model, []Part{{Text: fmt.Sprintf(summaryPrompt, s.platform, s.language, text)}})
	if err != nil {
		return domain.SummaryResult{}, fmt.Errorf("summarize %s: %w", articleURL, err)
	}

	s.logger.Debug("summarized article", "url", articleURL, "chars", len(text))
	return SplitSummary(raw), nil
}

func (s *Summarizer) articleText(ctx context.Context, articleURL string) (string, error) {
	pageURL, err := url.Parse(articleURL)
	if err != nil {
		return "", &domain.ContentFetchError{FetchError: domain.FetchError{URL: articleURL, Err: err}}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, articleURL, nil)
	if err != nil {
		return "", &domain.ContentFetchError{FetchError: domain.FetchError{URL: articleURL, Err: err}}
	}
	req.Header.Set("User-Agent", "NewsDigest/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", &domain.ContentFetchError{FetchError: domain.FetchError{URL: articleURL, Err: err}}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &domain.ContentFetchError{FetchError: domain.FetchError{URL: articleURL, Status: resp.StatusCode}}
	}

	html, err := io.ReadAll(io.LimitReader(resp.Body, maxArticleBytes))
	if err != nil {
		return "", &domain.ContentFetchError{FetchError: domain.FetchError{URL: articleURL, Err: fmt.Errorf("read body: %w", err)}}
	}

	text, err := s.extractor.Extract(string(html), pageURL)
	if err != nil {
		return "", &domain.ParseError{Source: articleURL, Err: err}
	}
	return text, nil
}

// SplitSummary takes the first line as the title (bold markers removed) and the rest as the body.
func SplitSummary(raw string) domain.SummaryResult {
	first, rest, _ := strings.Cut(raw, "\n")
	title := strings.TrimSpace(titleMarkers.ReplaceAllString(first, ""))
	if title == "" {
		return domain.SummaryResult{Body: strings.TrimSpace(raw)}
	}
	return domain.SummaryResult{Title: title, Body: strings.TrimSpace(rest)}
}
