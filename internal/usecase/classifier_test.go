package usecase

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"NewsDigest/internal/domain"
)

var baseDay = time.Date(2025, time.October, 1, 12, 0, 0, 0, time.UTC)

func post(n int, categories ...string) domain.Post {
	return domain.Post{
		Title:       fmt.Sprintf("post %d", n),
		Link:        fmt.Sprintf("https://example.com/%d", n),
		PublishedAt: baseDay.Add(time.Duration(n) * time.Hour),
		Categories:  categories,
	}
}

func links(rows []domain.ActiveRow) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Link)
	}
	return out
}

func TestClassifyCapsEachChannel(t *testing.T) {
	t.Parallel()

	var posts []domain.Post
	for i := 1; i <= 12; i++ {
		posts = append(posts, post(i, "Security"))
	}

	table := Classify(posts, []string{"Security"}, nil, 10)
	rows := table.Rows(time.UTC)

	if len(rows) != 10 {
		t.Fatalf("expected 10 rows, got %d", len(rows))
	}
	if rows[0].Link != "https://example.com/12" || rows[9].Link != "https://example.com/3" {
		t.Fatalf("expected the 10 newest posts in descending order, got %v", links(rows))
	}
	if rows[0].Channel != "Security" || rows[0].PublicationDate != "02 - Oct" {
		t.Fatalf("unexpected row: %+v", rows[0])
	}
}

func TestClassifyFirstCatalogChannelWins(t *testing.T) {
	t.Parallel()

	posts := []domain.Post{
		post(1, "Security & Identity", "Security"),
		post(2, "Security & Identity"),
	}
	catalog := []string{"Security", "Security & Identity"}

	table := Classify(posts, catalog, nil, 10)

	if len(table.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %+v", table.Groups)
	}
	if table.Groups[0].Channel != "Security" || len(table.Groups[0].Posts) != 1 {
		t.Fatalf("post 1 should be filed under Security, got %+v", table.Groups[0])
	}
	if got := table.Groups[1].Posts; len(got) != 1 || got[0].Link != "https://example.com/2" {
		t.Fatalf("Security & Identity must not repeat post 1, got %+v", got)
	}

	seen := map[string]bool{}
	for _, r := range table.Rows(time.UTC) {
		if seen[r.Link] {
			t.Fatalf("duplicate link %s", r.Link)
		}
		seen[r.Link] = true
	}
}

func TestClassifyDropsArchivedAndUnmatched(t *testing.T) {
	t.Parallel()

	posts := []domain.Post{
		post(1, "Compute"),
		post(2, "Compute"),
		post(3, "Gardening"),
	}
	archive := ArchiveLinks([]domain.Row{
		domain.ActiveHeader,
		{"Compute", "post 1", " https://example.com/1 ", "01 - Oct"},
	})

	table := Classify(posts, []string{"Compute"}, archive, 10)

	if got := links(table.Rows(time.UTC)); !reflect.DeepEqual(got, []string{"https://example.com/2"}) {
		t.Fatalf("unexpected rows: %v", got)
	}
	if table.Archived != 1 {
		t.Fatalf("expected 1 archived drop, got %d", table.Archived)
	}
	if len(table.Unmatched) != 1 || table.Unmatched[0].Link != "https://example.com/3" {
		t.Fatalf("unexpected unmatched posts: %+v", table.Unmatched)
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	t.Parallel()

	posts := []domain.Post{post(3, "Compute", "Databases"), post(1, "Databases"), post(2, "Compute")}
	catalog := []string{"Compute", "Databases"}

	first := Classify(posts, catalog, nil, 10).Rows(time.UTC)
	second := Classify(posts, catalog, nil, 10).Rows(time.UTC)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("classification is not deterministic:\n%v\n%v", first, second)
	}
}

func TestClassifyEmptyFeed(t *testing.T) {
	t.Parallel()

	table := Classify(nil, []string{"Compute"}, nil, 10)
	if table.Len() != 0 || len(table.Rows(time.UTC)) != 0 {
		t.Fatalf("expected empty table, got %+v", table)
	}
}

func TestExcludeTitles(t *testing.T) {
	t.Parallel()

	posts := []domain.Post{
		{Title: "Google Workspace Weekly Recap - Oct 3"},
		{Title: "Gmail gets a new look"},
	}
	kept := ExcludeTitles(posts, []string{"Weekly Recap"})
	if len(kept) != 1 || kept[0].Title != "Gmail gets a new look" {
		t.Fatalf("unexpected posts: %+v", kept)
	}
}
