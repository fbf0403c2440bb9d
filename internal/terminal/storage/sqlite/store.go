// Package sqlite provides the SQLite-backed record store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sablegrid/syndnet/internal/platform/storage/sqlitemigrate"
	"github.com/sablegrid/syndnet/internal/terminal/storage"
	"github.com/sablegrid/syndnet/internal/terminal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists terminal collections in SQLite. Every collection maps to
// a table whose columns follow storage.Columns; all values are text, like
// the spreadsheet rows this store stands in for.
type Store struct {
	sqlDB *sql.DB
}

// Open opens the record store at path and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// columnsFor validates the collection name and returns its column order.
// Collection and column names come from the fixed schema, never from
// user input, so they are safe to interpolate into SQL.
func columnsFor(collection string) ([]string, error) {
	columns, ok := storage.Columns[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %q", storage.ErrUnknownCollection, collection)
	}
	return columns, nil
}

// GetAllRecords reads every row of a collection in insertion order.
func (s *Store) GetAllRecords(ctx context.Context, collection string) ([]storage.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	columns, err := columnsFor(collection)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid", strings.Join(columns, ", "), collection)
	rows, err := s.sqlDB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer func() { _ = rows.Close() }()

	var records []storage.Record
	values := make([]string, len(columns))
	scan := make([]any, len(columns))
	for i := range values {
		scan[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(scan...); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", collection, err)
		}
		record := make(storage.Record, len(columns))
		for i, column := range columns {
			record[column] = values[i]
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", collection, err)
	}
	return records, nil
}

// AppendRow inserts one row; values follow the collection's column order.
func (s *Store) AppendRow(ctx context.Context, collection string, values []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	columns, err := columnsFor(collection)
	if err != nil {
		return err
	}
	if len(values) != len(columns) {
		return fmt.Errorf("append to %s: expected %d values, got %d", collection, len(columns), len(values))
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		collection, strings.Join(columns, ", "), placeholders,
	)
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	if _, err := s.sqlDB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append to %s: %w", collection, err)
	}
	return nil
}

// UpdateRowByKey applies field updates to every row whose key column
// equals keyValue.
func (s *Store) UpdateRowByKey(ctx context.Context, collection, keyColumn, keyValue string, updates map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	columns, err := columnsFor(collection)
	if err != nil {
		return err
	}
	if !containsColumn(columns, keyColumn) {
		return fmt.Errorf("update %s: unknown key column %q", collection, keyColumn)
	}
	if len(updates) == 0 {
		return fmt.Errorf("update %s: no field updates", collection)
	}

	assignments := make([]string, 0, len(updates))
	args := make([]any, 0, len(updates)+1)
	for _, column := range columns {
		value, ok := updates[column]
		if !ok {
			continue
		}
		assignments = append(assignments, column+" = ?")
		args = append(args, value)
	}
	if len(assignments) != len(updates) {
		return fmt.Errorf("update %s: updates name a column outside the schema", collection)
	}
	args = append(args, keyValue)

	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s = ?",
		collection, strings.Join(assignments, ", "), keyColumn,
	)
	result, err := s.sqlDB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", collection, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s rows affected: %w", collection, err)
	}
	if affected == 0 {
		return fmt.Errorf("update %s: no row with %s = %q", collection, keyColumn, keyValue)
	}
	return nil
}

// DeleteRowByKey removes every row whose key column equals keyValue.
func (s *Store) DeleteRowByKey(ctx context.Context, collection, keyColumn, keyValue string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	columns, err := columnsFor(collection)
	if err != nil {
		return err
	}
	if !containsColumn(columns, keyColumn) {
		return fmt.Errorf("delete from %s: unknown key column %q", collection, keyColumn)
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", collection, keyColumn)
	result, err := s.sqlDB.ExecContext(ctx, query, keyValue)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", collection, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete from %s rows affected: %w", collection, err)
	}
	if affected == 0 {
		return fmt.Errorf("delete from %s: no row with %s = %q", collection, keyColumn, keyValue)
	}
	return nil
}

func containsColumn(columns []string, name string) bool {
	for _, column := range columns {
		if column == name {
			return true
		}
	}
	return false
}
