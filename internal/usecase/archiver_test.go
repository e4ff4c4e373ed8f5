package usecase

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"NewsDigest/internal/domain"
)

func activeRows(n int) []domain.Row {
	rows := []domain.Row{domain.ActiveHeader}
	for i := 2; i <= n; i++ {
		rows = append(rows, domain.Row{"Compute", fmt.Sprintf("row %d", i), fmt.Sprintf("https://example.com/%d", i), "01 - Oct"})
	}
	return rows
}

func TestArchiveDeletesHighestIndexFirst(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.set("GCP", activeRows(10)...)
	store.set("GCP Old", domain.ActiveHeader)

	moved := []domain.Row{store.rows("GCP")[2], store.rows("GCP")[6], store.rows("GCP")[8]}
	err := NewArchiver(store, nil).Archive(context.Background(), "GCP", "GCP Old", []int{3, 7, 9}, moved)
	if err != nil {
		t.Fatalf("Archive returned error: %v", err)
	}

	if !reflect.DeepEqual(store.deletes, []int{9, 7, 3}) {
		t.Fatalf("unexpected delete order: %v", store.deletes)
	}

	var remaining []string
	for _, r := range store.rows("GCP")[1:] {
		remaining = append(remaining, r.Cell(1))
	}
	want := []string{"row 2", "row 4", "row 5", "row 6", "row 8", "row 10"}
	if !reflect.DeepEqual(remaining, want) {
		t.Fatalf("wrong rows deleted, remaining %v", remaining)
	}

	archive := store.rows("GCP Old")
	if len(archive) != 4 || archive[1].Cell(1) != "row 3" || archive[3].Cell(1) != "row 9" {
		t.Fatalf("rows not appended verbatim: %v", archive)
	}
}

func TestArchiveKeepsActiveRowsWhenAppendFails(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.set("GCP", activeRows(4)...)
	store.set("GCP Old", domain.ActiveHeader)
	store.appendErr = errBoom

	err := NewArchiver(store, nil).Archive(context.Background(), "GCP", "GCP Old", []int{2}, []domain.Row{store.rows("GCP")[1]})
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(store.deletes) != 0 || len(store.rows("GCP")) != 4 {
		t.Fatalf("active rows must stay when the archive append fails")
	}
}
