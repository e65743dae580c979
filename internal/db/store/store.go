// Package store implements the generic persisted record store the sync
// engine writes through. Records are dynamic field maps keyed by column
// name, so the engine can persist configuration-driven field sets without
// compile-time knowledge of the target schema.
package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrNotFound is returned when no record matches a FindOneBy predicate.
var ErrNotFound = errors.New("record not found")

// Record is one row as a dynamic column-to-value map.
type Record map[string]any

// ID returns the record's primary key, normalized to int64.
func (r Record) ID() int64 {
	switch v := r["id"].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case uint64:
		return int64(v)
	case float64:
		return int64(v)
	}

	return 0
}

// Store wraps a gorm connection with the three operations the engine
// needs: findOneBy, insert and update.
type Store struct {
	db *gorm.DB
}

// New creates a new record store on top of the given gorm connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying gorm connection.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// FindOneBy returns the first record of table matching the predicate, or
// ErrNotFound.
func (s *Store) FindOneBy(table, query string, args ...any) (Record, error) {
	rec := Record{}

	// gorm's scan path only recognizes the exact map[string]interface{}
	// type, so the named Record type has to be converted for the query to
	// scan at all.
	err := s.db.Table(table).Where(query, args...).Take((*map[string]any)(&rec)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}

	return rec, nil
}

// Insert creates a new row from the given fields and returns its id. Since
// map-based creates don't report the generated key, the id is read back via
// the natural key columns the caller names (they must be part of fields).
func (s *Store) Insert(table string, fields Record, keyColumns ...string) (int64, error) {
	if err := s.db.Table(table).Create(map[string]any(fields)).Error; err != nil {
		return 0, fmt.Errorf("failed to insert into %s: %w", table, err)
	}

	if len(keyColumns) == 0 {
		return 0, nil
	}

	q := s.db.Table(table).Select("id")
	for _, col := range keyColumns {
		q = q.Where(col+" = ?", fields[col])
	}

	var id int64
	if err := q.Order("id DESC").Limit(1).Scan(&id).Error; err != nil {
		return 0, fmt.Errorf("failed to read back id from %s: %w", table, err)
	}

	return id, nil
}

// Update applies the given fields to the row with the given id.
func (s *Store) Update(table string, id int64, fields Record) error {
	if err := s.db.Table(table).Where("id = ?", id).Updates(map[string]any(fields)).Error; err != nil {
		return fmt.Errorf("failed to update %s: %w", table, err)
	}

	return nil
}
