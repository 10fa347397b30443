package localstore

import (
	"context"
	"sync"

	"github.com/peakform/trainsync/internal/model"
)

// Memory is a volatile Store used by tests and as the working-set core of the
// sqlite store. Flush only clears the dirty flag.
type Memory struct {
	mu     sync.Mutex
	nextID int64
	recs   map[model.Kind][]*model.Record
	dirty  bool
}

var _ Store = (*Memory)(nil)

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{recs: make(map[model.Kind][]*model.Record), nextID: 1}
}

// List returns all records of a kind in insertion order.
func (s *Memory) List(_ context.Context, kind model.Kind) ([]*model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.Record(nil), s.recs[kind]...), nil
}

// Insert adds a record and assigns its LocalID.
func (s *Memory) Insert(_ context.Context, rec *model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.LocalID = s.nextID
	s.nextID++
	s.recs[rec.Kind] = append(s.recs[rec.Kind], rec)
	s.dirty = true
	return nil
}

// Delete removes a record by LocalID. Unknown ids are a no-op.
func (s *Memory) Delete(_ context.Context, kind model.Kind, localID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs := s.recs[kind]
	for i, r := range rs {
		if r.LocalID == localID {
			s.recs[kind] = append(rs[:i:i], rs[i+1:]...)
			s.dirty = true
			return nil
		}
	}
	return nil
}

// MarkDirty flags the store as needing a flush.
func (s *Memory) MarkDirty(*model.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = true
}

// Flush clears the dirty flag.
func (s *Memory) Flush(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = false
	return nil
}

// Dirty reports whether unsaved changes exist (test helper).
func (s *Memory) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}
