package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"NewsDigest/internal/config"
)

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Cloud Blog</title>
  <item>
    <title>New VMs</title>
    <link>https://example.com/vms</link>
    <pubDate>Wed, 01 Oct 2025 10:00:00 GMT</pubDate>
    <category>Compute</category>
  </item>
  <item>
    <title>Key rotation</title>
    <link>https://example.com/keys</link>
    <pubDate>Thu, 02 Oct 2025 10:00:00 GMT</pubDate>
    <category>Security</category>
    <category>Compute</category>
  </item>
  <item>
    <title>Gardening tips</title>
    <link>https://example.com/garden</link>
    <pubDate>Thu, 02 Oct 2025 11:00:00 GMT</pubDate>
    <category>Lifestyle</category>
  </item>
</channel>
</rss>`

func TestRefreshThroughSQLiteStore(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = io.WriteString(w, testFeed)
	}))
	t.Cleanup(srv.Close)

	cfg := config.Config{
		Database:  config.DatabaseConfig{DSN: ":memory:"},
		Documents: config.DocumentConfig{OutputDir: t.TempDir()},
		Profiles: []config.ProfileConfig{{
			Name:         "GCP",
			FeedURL:      srv.URL,
			Channels:     []string{"Compute", "Security"},
			ChannelCap:   10,
			ActiveTable:  "GCP",
			ArchiveTable: "GCP Old",
			EmailTable:   "email",
			VideoTable:   "GCP Video Overview",
			PlatformName: "Google Cloud",
		}},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx := context.Background()
	application, err := New(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	t.Cleanup(func() { _ = application.Close() })

	if _, err := application.Refresh(ctx); err == nil {
		t.Fatalf("refresh before init must fail on the missing tables")
	}

	if err := application.Init(ctx); err != nil {
		t.Fatalf("Init returned error: %v", err)
	}

	reports, err := application.Refresh(ctx, "gcp")
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if len(reports) != 1 || reports[0].NewRows != 2 {
		t.Fatalf("unexpected reports: %+v", reports)
	}

	if _, err := application.Refresh(ctx, "Blog"); err == nil {
		t.Fatalf("expected error for unknown profile")
	}
}
