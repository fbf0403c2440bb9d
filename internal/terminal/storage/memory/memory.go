// Package memory provides an in-memory record store. It backs tests and
// store-less development runs; data does not survive the process.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/sablegrid/syndnet/internal/terminal/storage"
)

// Store keeps collections as ordered record slices guarded by one mutex.
type Store struct {
	mu   sync.Mutex
	rows map[string][]storage.Record
}

// New returns an empty store covering the fixed collection schema.
func New() *Store {
	rows := make(map[string][]storage.Record, len(storage.Columns))
	for collection := range storage.Columns {
		rows[collection] = nil
	}
	return &Store{rows: rows}
}

func (s *Store) collection(name string) ([]storage.Record, error) {
	records, ok := s.rows[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", storage.ErrUnknownCollection, name)
	}
	return records, nil
}

// GetAllRecords returns a copy of every row in insertion order.
func (s *Store) GetAllRecords(ctx context.Context, collection string) ([]storage.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	out := make([]storage.Record, len(records))
	for i, record := range records {
		clone := make(storage.Record, len(record))
		for k, v := range record {
			clone[k] = v
		}
		out[i] = clone
	}
	return out, nil
}

// AppendRow inserts one row; values follow the collection's column order.
func (s *Store) AppendRow(ctx context.Context, collection string, values []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.collection(collection); err != nil {
		return err
	}
	columns := storage.Columns[collection]
	if len(values) != len(columns) {
		return fmt.Errorf("append to %s: expected %d values, got %d", collection, len(columns), len(values))
	}
	record := make(storage.Record, len(columns))
	for i, column := range columns {
		record[column] = values[i]
	}
	s.rows[collection] = append(s.rows[collection], record)
	return nil
}

// UpdateRowByKey applies field updates to every matching row.
func (s *Store) UpdateRowByKey(ctx context.Context, collection, keyColumn, keyValue string, updates map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.collection(collection)
	if err != nil {
		return err
	}
	matched := false
	for _, record := range records {
		if record[keyColumn] != keyValue {
			continue
		}
		matched = true
		for column, value := range updates {
			record[column] = value
		}
	}
	if !matched {
		return fmt.Errorf("update %s: no row with %s = %q", collection, keyColumn, keyValue)
	}
	return nil
}

// DeleteRowByKey removes every matching row.
func (s *Store) DeleteRowByKey(ctx context.Context, collection, keyColumn, keyValue string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.collection(collection)
	if err != nil {
		return err
	}
	kept := records[:0]
	matched := false
	for _, record := range records {
		if record[keyColumn] == keyValue {
			matched = true
			continue
		}
		kept = append(kept, record)
	}
	if !matched {
		return fmt.Errorf("delete from %s: no row with %s = %q", collection, keyColumn, keyValue)
	}
	s.rows[collection] = kept
	return nil
}
