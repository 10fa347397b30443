// Package localstore defines the local object-store boundary the sync engine
// consumes, plus an in-memory implementation.
package localstore

import (
	"context"

	"github.com/peakform/trainsync/internal/model"
)

// Store is an ordered, queryable collection per record kind with buffered
// single-save persistence. It is safe for use from multiple goroutines;
// individual operations are atomic, but callers that need a consistent batch
// (the sync cycle) must not run concurrently with each other.
type Store interface {
	// List returns all records of a kind in insertion order. The returned
	// pointers are live: mutations become persistent on the next Flush.
	List(ctx context.Context, kind model.Kind) ([]*model.Record, error)

	// Insert adds a record (cascading its owned media) and assigns LocalID.
	// The insert is buffered until Flush.
	Insert(ctx context.Context, rec *model.Record) error

	// Delete removes a record and its owned media. Buffered until Flush.
	Delete(ctx context.Context, kind model.Kind, localID int64) error

	// MarkDirty flags an already-stored record as changed.
	MarkDirty(rec *model.Record)

	// Flush commits all buffered mutations in a single save. A no-op when
	// nothing is dirty.
	Flush(ctx context.Context) error
}
