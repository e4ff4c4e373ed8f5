package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/samber/lo"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// Archiver moves processed rows from an active table into its archive table.
type Archiver struct {
	store  ports.RowStore
	logger *slog.Logger
}

// NewArchiver wires the row store.
func NewArchiver(store ports.RowStore, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{store: store, logger: logger.With("component", "archiver")}
}

// Archive appends rowsData verbatim to oldTable, then deletes rowIndices (1-based) from
// table from the highest index down, so earlier deletions never shift pending ones.
// Nothing is deleted when the append fails.
func (a *Archiver) Archive(ctx context.Context, table, oldTable string, rowIndices []int, rowsData []domain.Row) error {
	if len(rowsData) == 0 && len(rowIndices) == 0 {
		return nil
	}

	if err := a.store.AppendRows(ctx, oldTable, rowsData); err != nil {
		return fmt.Errorf("append to %s: %w", oldTable, err)
	}

	if err := DeleteRows(ctx, a.store, table, rowIndices); err != nil {
		return err
	}

	a.logger.Info("archived rows", "table", table, "archive", oldTable, "rows", len(rowsData))
	return nil
}

// DeleteRows deletes the given 1-based rows highest index first. Duplicates are deleted once.
func DeleteRows(ctx context.Context, store ports.RowStore, table string, indices []int) error {
	ordered := lo.Uniq(indices)
	sort.Sort(sort.Reverse(sort.IntSlice(ordered)))

	for done, idx := range ordered {
		if err := store.DeleteRow(ctx, table, idx); err != nil {
			return fmt.Errorf("delete row %d from %s (%d of %d deleted): %w", idx, table, done, len(ordered), err)
		}
	}
	return nil
}
