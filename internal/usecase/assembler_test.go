package usecase

import (
	"errors"
	"strings"
	"testing"

	"NewsDigest/internal/domain"
)

func TestAssembleSortsChannels(t *testing.T) {
	t.Parallel()

	doc := Assemble("Noticias GCP - 2025-10-01", map[string][]domain.Article{
		"Security": {{URL: "https://example.com/s"}},
		"AI & ML":  {{URL: "https://example.com/a"}},
		"Compute":  nil,
	})

	if len(doc.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %+v", doc.Sections)
	}
	if doc.Sections[0].Heading != "Noticias AI & ML" || doc.Sections[1].Channel != "Security" {
		t.Fatalf("unexpected section order: %+v", doc.Sections)
	}
}

func TestRenderHTMLKeepsOnlyTitledEntries(t *testing.T) {
	t.Parallel()

	doc := Assemble("digest", map[string][]domain.Article{
		"Compute": {
			{URL: "https://example.com/1", Summary: domain.SummaryResult{Title: "New VMs", Body: "Faster machines."}},
			{URL: "https://example.com/2", Err: errors.New("status 404")},
			{URL: "https://example.com/3", Summary: domain.SummaryResult{Body: "untitled text"}},
		},
	})

	fragment := RenderHTML(doc)
	if !strings.Contains(fragment, "<h2>Noticias Compute</h2>") {
		t.Fatalf("missing heading: %s", fragment)
	}
	if !strings.Contains(fragment, `<a href="https://example.com/1">New VMs</a>`) {
		t.Fatalf("missing linked title: %s", fragment)
	}
	if !strings.Contains(fragment, `<a href="https://example.com/3">Summary</a>`) {
		t.Fatalf("untitled summary should link as Summary: %s", fragment)
	}
	if strings.Contains(fragment, "Faster machines.") || strings.Contains(fragment, "Error processing") {
		t.Fatalf("fragment must omit summary paragraphs and errors: %s", fragment)
	}

	full := RenderFullHTML(doc)
	if !strings.Contains(full, "Faster machines.") {
		t.Fatalf("full document lost the summary: %s", full)
	}
	if !strings.Contains(full, "Error processing article: https://example.com/2 - status 404") {
		t.Fatalf("full document lost the error marker: %s", full)
	}
}
