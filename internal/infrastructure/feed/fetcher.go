package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/atom"
	"github.com/mmcdole/gofeed/rss"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

const maxFeedBytes = 16 << 20

var errUnknownFormat = errors.New("document is neither RSS nor Atom")

// Fetcher downloads a feed and normalizes RSS items and Atom entries into posts.
type Fetcher struct {
	client *http.Client
	logger *slog.Logger
}

var _ ports.FeedFetcher = (*Fetcher)(nil)

// NewFetcher wires an HTTP client; a nil client gets a 30 second timeout.
func NewFetcher(client *http.Client, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{client: client, logger: logger.With("component", "feed")}
}

// Fetch returns every entry that carries a title, a link and a parsable publication date.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) ([]domain.Post, error) {
	raw, err := f.download(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	switch gofeed.DetectFeedType(bytes.NewReader(raw)) {
	case gofeed.FeedTypeRSS:
		parsed, err := (&rss.Parser{}).Parse(bytes.NewReader(raw))
		if err != nil {
			return nil, &domain.ParseError{Source: feedURL, Err: err}
		}
		return f.fromRSS(parsed), nil
	case gofeed.FeedTypeAtom:
		parsed, err := (&atom.Parser{}).Parse(bytes.NewReader(raw))
		if err != nil {
			return nil, &domain.ParseError{Source: feedURL, Err: err}
		}
		return f.fromAtom(parsed), nil
	default:
		return nil, &domain.ParseError{Source: feedURL, Err: errUnknownFormat}
	}
}

func (f *Fetcher) download(ctx context.Context, feedURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "NewsDigest/1.0")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &domain.FetchError{URL: feedURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.FetchError{URL: feedURL, Status: resp.StatusCode}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, &domain.FetchError{URL: feedURL, Err: fmt.Errorf("read body: %w", err)}
	}
	return raw, nil
}

func (f *Fetcher) fromRSS(parsed *rss.Feed) []domain.Post {
	posts := make([]domain.Post, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		categories := make([]string, 0, len(item.Categories))
		for _, c := range item.Categories {
			if c != nil {
				categories = append(categories, strings.TrimSpace(c.Value))
			}
		}
		date := item.PubDate
		if date == "" && item.DublinCoreExt != nil && len(item.DublinCoreExt.Date) > 0 {
			date = item.DublinCoreExt.Date[0]
		}
		if post, ok := f.buildPost(item.Title, item.Link, date, categories); ok {
			posts = append(posts, post)
		}
	}
	return posts
}

func (f *Fetcher) fromAtom(parsed *atom.Feed) []domain.Post {
	posts := make([]domain.Post, 0, len(parsed.Entries))
	for _, entry := range parsed.Entries {
		if entry == nil {
			continue
		}
		categories := make([]string, 0, len(entry.Categories))
		for _, c := range entry.Categories {
			if c != nil {
				categories = append(categories, strings.TrimSpace(c.Term))
			}
		}
		date := entry.Published
		if date == "" {
			date = entry.Updated
		}
		if post, ok := f.buildPost(entry.Title, alternateLink(entry.Links), date, categories); ok {
			posts = append(posts, post)
		}
	}
	return posts
}

// alternateLink picks the rel="alternate" href; an Atom link without rel is alternate by definition.
func alternateLink(links []*atom.Link) string {
	for _, l := range links {
		if l == nil {
			continue
		}
		if l.Rel == "alternate" || l.Rel == "" {
			return strings.TrimSpace(l.Href)
		}
	}
	return ""
}

func (f *Fetcher) buildPost(title, link, rawDate string, categories []string) (domain.Post, bool) {
	title = strings.TrimSpace(title)
	link = strings.TrimSpace(link)
	if title == "" || link == "" {
		return domain.Post{}, false
	}

	published, err := dateparse.ParseAny(strings.TrimSpace(rawDate))
	if err != nil {
		f.logger.Debug("dropping entry with unparsable date", "link", link, "date", rawDate, "error", err)
		return domain.Post{}, false
	}

	return domain.Post{
		Title:       title,
		Link:        link,
		PublishedAt: published,
		Categories:  categories,
	}, true
}
