package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

const (
	driverSQLite   = "sqlite"
	driverPostgres = "postgres"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS sheets (name TEXT PRIMARY KEY)`,
	`CREATE TABLE IF NOT EXISTS sheet_rows (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sheet TEXT NOT NULL,
		position INTEGER NOT NULL,
		cells TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS sheet_rows_position ON sheet_rows (sheet, position)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS sheets (name TEXT PRIMARY KEY)`,
	`CREATE TABLE IF NOT EXISTS sheet_rows (
		id BIGSERIAL PRIMARY KEY,
		sheet TEXT NOT NULL,
		position INTEGER NOT NULL,
		cells TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS sheet_rows_position ON sheet_rows (sheet, position)`,
}

// Open connects to Postgres for postgres:// DSNs and to SQLite for everything else.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	driver := driverSQLite
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		driver = driverPostgres
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	if driver == driverSQLite {
		// one connection keeps :memory: databases alive and serializes writers
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// SQLRowStore keeps spreadsheet-like tables in two SQL tables: sheets and sheet_rows.
// Row positions are 1-based and contiguous; deleting a row shifts every later row up.
type SQLRowStore struct {
	db     *sqlx.DB
	sb     sq.StatementBuilderType
	schema []string
	logger *slog.Logger
}

var _ ports.RowStore = (*SQLRowStore)(nil)

type dbRow struct {
	Position int    `db:"position"`
	Cells    string `db:"cells"`
}

// NewSQLRowStore picks placeholders and DDL from the connection's driver.
func NewSQLRowStore(db *sqlx.DB, logger *slog.Logger) *SQLRowStore {
	if logger == nil {
		logger = slog.Default()
	}
	store := &SQLRowStore{
		db:     db,
		sb:     sq.StatementBuilder.PlaceholderFormat(sq.Question),
		schema: sqliteSchema,
		logger: logger.With("component", "rowstore"),
	}
	if db.DriverName() == driverPostgres {
		store.sb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
		store.schema = postgresSchema
	}
	return store
}

// Migrate creates the backing tables.
func (s *SQLRowStore) Migrate(ctx context.Context) error {
	for _, stmt := range s.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate row store: %w", err)
		}
	}
	return nil
}

// EnsureTable creates the table and writes the header when the table is missing or empty.
func (s *SQLRowStore) EnsureTable(ctx context.Context, table string, header domain.Row) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		exists, err := s.tableExists(ctx, tx, table)
		if err != nil {
			return err
		}
		if !exists {
			query, args, err := s.sb.Insert("sheets").Columns("name").Values(table).ToSql()
			if err != nil {
				return fmt.Errorf("build insert sheet: %w", err)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("create table %q: %w", table, err)
			}
			s.logger.Info("created table", "table", table)
		}

		last, err := s.lastPosition(ctx, tx, table)
		if err != nil {
			return err
		}
		if last > 0 || len(header) == 0 {
			return nil
		}
		return s.insertRows(ctx, tx, table, 1, []domain.Row{header})
	})
}

// ReadAll returns every row in position order; gaps left by sparse writes read as empty rows.
func (s *SQLRowStore) ReadAll(ctx context.Context, table string) ([]domain.Row, error) {
	exists, err := s.tableExists(ctx, s.db, table)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &domain.StoreError{Table: table, Err: domain.ErrTableNotFound}
	}

	query, args, err := s.sb.Select("position", "cells").
		From("sheet_rows").
		Where(sq.Eq{"sheet": table}).
		OrderBy("position ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select rows: %w", err)
	}

	var stored []dbRow
	if err := s.db.SelectContext(ctx, &stored, query, args...); err != nil {
		return nil, fmt.Errorf("select rows of %q: %w", table, err)
	}

	rows := make([]domain.Row, 0, len(stored))
	for _, r := range stored {
		for len(rows) < r.Position-1 {
			rows = append(rows, domain.Row{})
		}
		var cells []string
		if err := json.Unmarshal([]byte(r.Cells), &cells); err != nil {
			return nil, fmt.Errorf("decode row %d of %q: %w", r.Position, table, err)
		}
		rows = append(rows, domain.Row(cells))
	}
	return rows, nil
}

// WriteRows overwrites rows startRow..startRow+len(rows)-1.
func (s *SQLRowStore) WriteRows(ctx context.Context, table string, startRow int, rows []domain.Row) error {
	if startRow < 1 {
		return fmt.Errorf("write rows: start row %d is not 1-based", startRow)
	}
	if len(rows) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.requireTable(ctx, tx, table); err != nil {
			return err
		}
		query, args, err := s.sb.Delete("sheet_rows").
			Where(sq.Eq{"sheet": table}).
			Where(sq.GtOrEq{"position": startRow}).
			Where(sq.Lt{"position": startRow + len(rows)}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build delete range: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("clear range of %q: %w", table, err)
		}
		return s.insertRows(ctx, tx, table, startRow, rows)
	})
}

// AppendRows adds rows after the last used row.
func (s *SQLRowStore) AppendRows(ctx context.Context, table string, rows []domain.Row) error {
	if len(rows) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.requireTable(ctx, tx, table); err != nil {
			return err
		}
		last, err := s.lastPosition(ctx, tx, table)
		if err != nil {
			return err
		}
		return s.insertRows(ctx, tx, table, last+1, rows)
	})
}

// DeleteRow removes one row and shifts the following rows up by one.
func (s *SQLRowStore) DeleteRow(ctx context.Context, table string, rowIndex int) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.requireTable(ctx, tx, table); err != nil {
			return err
		}
		last, err := s.lastPosition(ctx, tx, table)
		if err != nil {
			return err
		}
		if rowIndex < 1 || rowIndex > last {
			return &domain.StoreError{Table: table, Err: fmt.Errorf("row %d out of range 1..%d", rowIndex, last)}
		}

		query, args, err := s.sb.Delete("sheet_rows").
			Where(sq.Eq{"sheet": table, "position": rowIndex}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build delete row: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("delete row %d of %q: %w", rowIndex, table, err)
		}

		query, args, err = s.sb.Update("sheet_rows").
			Set("position", sq.Expr("position - 1")).
			Where(sq.Eq{"sheet": table}).
			Where(sq.Gt{"position": rowIndex}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build shift rows: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("shift rows of %q: %w", table, err)
		}
		return nil
	})
}

// ReplaceRows removes every row, header included, and writes rows from position 1 in the
// same transaction. The table itself survives; a failed write keeps the previous rows.
func (s *SQLRowStore) ReplaceRows(ctx context.Context, table string, rows []domain.Row) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.requireTable(ctx, tx, table); err != nil {
			return err
		}
		query, args, err := s.sb.Delete("sheet_rows").Where(sq.Eq{"sheet": table}).ToSql()
		if err != nil {
			return fmt.Errorf("build clear: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("clear %q: %w", table, err)
		}
		if len(rows) == 0 {
			return nil
		}
		return s.insertRows(ctx, tx, table, 1, rows)
	})
}

func (s *SQLRowStore) insertRows(ctx context.Context, tx *sqlx.Tx, table string, start int, rows []domain.Row) error {
	insert := s.sb.Insert("sheet_rows").Columns("sheet", "position", "cells")
	for i, row := range rows {
		cells := []string(row)
		if cells == nil {
			cells = []string{}
		}
		encoded, err := json.Marshal(cells)
		if err != nil {
			return fmt.Errorf("encode row: %w", err)
		}
		insert = insert.Values(table, start+i, string(encoded))
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("build insert rows: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert rows into %q: %w", table, err)
	}
	return nil
}

func (s *SQLRowStore) tableExists(ctx context.Context, q sqlx.QueryerContext, table string) (bool, error) {
	query, args, err := s.sb.Select("COUNT(*)").From("sheets").Where(sq.Eq{"name": table}).ToSql()
	if err != nil {
		return false, fmt.Errorf("build table lookup: %w", err)
	}
	var count int
	if err := sqlx.GetContext(ctx, q, &count, query, args...); err != nil {
		return false, fmt.Errorf("lookup table %q: %w", table, err)
	}
	return count > 0, nil
}

func (s *SQLRowStore) requireTable(ctx context.Context, q sqlx.QueryerContext, table string) error {
	exists, err := s.tableExists(ctx, q, table)
	if err != nil {
		return err
	}
	if !exists {
		return &domain.StoreError{Table: table, Err: domain.ErrTableNotFound}
	}
	return nil
}

func (s *SQLRowStore) lastPosition(ctx context.Context, q sqlx.QueryerContext, table string) (int, error) {
	query, args, err := s.sb.Select("COALESCE(MAX(position), 0)").
		From("sheet_rows").
		Where(sq.Eq{"sheet": table}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build last position: %w", err)
	}
	var last int
	if err := sqlx.GetContext(ctx, q, &last, query, args...); err != nil {
		return 0, fmt.Errorf("last position of %q: %w", table, err)
	}
	return last, nil
}

func (s *SQLRowStore) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Warn("rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
