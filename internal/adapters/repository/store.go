// Package repository stores the history of served predictions.
package repository

import (
	"cmp"
	"context"
	"time"
)

// Record is one served prediction.
type Record struct {
	ID            string
	CreatedAt     time.Time
	SchemaVersion string
	Scenario      []byte // JSON request
	Result        []byte // JSON response
}

// newer orders records newest first, then by id.
func newer(a, b Record) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Store provides read/write access to the prediction history.
type Store interface {
	// Save appends a record. Returns ErrDuplicateID if the id is taken.
	Save(ctx context.Context, rec Record) error

	// Get returns the record with id, or ErrNotFound.
	Get(ctx context.Context, id string) (Record, error)

	// Recent returns up to n records, newest first.
	Recent(ctx context.Context, n int) ([]Record, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) int

	Close() error
}
