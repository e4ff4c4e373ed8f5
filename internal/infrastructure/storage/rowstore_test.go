package storage

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"NewsDigest/internal/domain"
)

func openTestStore(t *testing.T) *SQLRowStore {
	t.Helper()

	ctx := context.Background()
	db, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := NewSQLRowStore(db, nil)
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func seedTable(t *testing.T, store *SQLRowStore, table string, n int) {
	t.Helper()

	ctx := context.Background()
	if err := store.EnsureTable(ctx, table, domain.ActiveHeader); err != nil {
		t.Fatalf("ensure table: %v", err)
	}
	rows := make([]domain.Row, 0, n)
	for i := 2; i <= n+1; i++ {
		rows = append(rows, domain.Row{"Security", fmt.Sprintf("title %d", i), fmt.Sprintf("https://example.com/%d", i), "06 - Oct"})
	}
	if err := store.AppendRows(ctx, table, rows); err != nil {
		t.Fatalf("append rows: %v", err)
	}
}

func TestReadAllMissingTable(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	_, err := store.ReadAll(context.Background(), "GCP")
	if !errors.Is(err, domain.ErrTableNotFound) {
		t.Fatalf("expected ErrTableNotFound, got %v", err)
	}
	var storeErr *domain.StoreError
	if !errors.As(err, &storeErr) || storeErr.Table != "GCP" {
		t.Fatalf("expected StoreError for GCP, got %v", err)
	}
}

func TestEnsureTableWritesHeaderOnce(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := store.EnsureTable(ctx, "GCP", domain.ActiveHeader); err != nil {
			t.Fatalf("ensure table: %v", err)
		}
	}

	rows, err := store.ReadAll(ctx, "GCP")
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(rows) != 1 || !reflect.DeepEqual(rows[0], domain.ActiveHeader) {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

func TestDeleteRowShiftsLaterRows(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()
	seedTable(t, store, "GCP", 4) // rows 2..5

	if err := store.DeleteRow(ctx, "GCP", 3); err != nil {
		t.Fatalf("delete row: %v", err)
	}

	rows, err := store.ReadAll(ctx, "GCP")
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	if rows[2].Cell(1) != "title 4" {
		t.Fatalf("expected row 3 to hold title 4, got %q", rows[2].Cell(1))
	}
}

func TestDeleteRowsHighestFirst(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()
	seedTable(t, store, "GCP", 9) // rows 2..10

	for _, idx := range []int{9, 7, 3} {
		if err := store.DeleteRow(ctx, "GCP", idx); err != nil {
			t.Fatalf("delete row %d: %v", idx, err)
		}
	}

	rows, err := store.ReadAll(ctx, "GCP")
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	var titles []string
	for _, r := range rows[1:] {
		titles = append(titles, r.Cell(1))
	}
	want := []string{"title 2", "title 4", "title 5", "title 6", "title 8", "title 10"}
	if !reflect.DeepEqual(titles, want) {
		t.Fatalf("unexpected remaining rows: %v", titles)
	}
}

func TestDeleteRowOutOfRange(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	seedTable(t, store, "GCP", 1)

	var storeErr *domain.StoreError
	if err := store.DeleteRow(context.Background(), "GCP", 5); !errors.As(err, &storeErr) {
		t.Fatalf("expected StoreError, got %v", err)
	}
}

func TestWriteRowsOverwritesRange(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()
	seedTable(t, store, "GCP", 3)

	if err := store.WriteRows(ctx, "GCP", 3, []domain.Row{{"A", "replaced"}}); err != nil {
		t.Fatalf("write rows: %v", err)
	}
	if err := store.WriteRows(ctx, "GCP", 7, []domain.Row{{"B", "sparse"}}); err != nil {
		t.Fatalf("write sparse: %v", err)
	}

	rows, err := store.ReadAll(ctx, "GCP")
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(rows) != 7 {
		t.Fatalf("expected 7 rows including padding, got %d", len(rows))
	}
	if rows[2].Cell(1) != "replaced" || rows[3].Cell(1) != "title 4" {
		t.Fatalf("unexpected rows: %v", rows)
	}
	if len(rows[4]) != 0 || rows[6].Cell(1) != "sparse" {
		t.Fatalf("unexpected sparse rows: %v", rows)
	}
}

func TestReplaceRowsRewritesWholeTable(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()
	seedTable(t, store, "GCP", 3)

	want := []domain.Row{domain.ActiveHeader, {"Compute", "fresh", "https://example.com/fresh", "07 - Oct"}}
	if err := store.ReplaceRows(ctx, "GCP", want); err != nil {
		t.Fatalf("replace rows: %v", err)
	}
	rows, err := store.ReadAll(ctx, "GCP")
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("stale rows survived the replace: %v", rows)
	}

	if err := store.ReplaceRows(ctx, "GCP", nil); err != nil {
		t.Fatalf("replace with nothing: %v", err)
	}
	rows, err = store.ReadAll(ctx, "GCP")
	if err != nil {
		t.Fatalf("read all after clear: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected empty table, got %v", rows)
	}

	if err := store.ReplaceRows(ctx, "Missing", want); !errors.Is(err, domain.ErrTableNotFound) {
		t.Fatalf("expected missing table error, got %v", err)
	}
}
