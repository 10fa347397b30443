// Package sqlite implements the local store on an embedded sqlite database.
// Records live in memory as the working set; mutations are buffered and
// committed in a single transaction per flush.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/peakform/trainsync/internal/localstore"
	"github.com/peakform/trainsync/internal/migrate"
	"github.com/peakform/trainsync/internal/model"
)

// Store is the sqlite-backed local store.
type Store struct {
	db *sql.DB

	mu      sync.Mutex
	nextID  int64
	recs    map[model.Kind][]*model.Record
	dirty   map[int64]*model.Record
	deleted map[int64]struct{}
}

var _ localstore.Store = (*Store)(nil)

// Open opens (or creates) the database at path, applies migrations and loads
// the full working set. Use ":memory:" for an ephemeral store.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// single writer; the store serializes access itself
	db.SetMaxOpenConns(1)

	if err := migrate.Up(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	s := &Store{
		db:      db,
		nextID:  1,
		recs:    make(map[model.Kind][]*model.Record),
		dirty:   make(map[int64]*model.Record),
		deleted: make(map[int64]struct{}),
	}
	if err := s.load(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database. Unflushed changes are lost.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) load(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT local_id, kind, body FROM records ORDER BY local_id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   int64
			kind string
			body []byte
		)
		if err := rows.Scan(&id, &kind, &body); err != nil {
			return err
		}
		var rec model.Record
		if err := json.Unmarshal(body, &rec); err != nil {
			return fmt.Errorf("record %d: %w", id, err)
		}
		rec.LocalID = id
		rec.Kind = model.Kind(kind)
		s.recs[rec.Kind] = append(s.recs[rec.Kind], &rec)
		if id >= s.nextID {
			s.nextID = id + 1
		}
	}
	return rows.Err()
}

// List returns all records of a kind in insertion order.
func (s *Store) List(_ context.Context, kind model.Kind) ([]*model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.Record(nil), s.recs[kind]...), nil
}

// Insert adds a record, assigns its LocalID and buffers the write.
func (s *Store) Insert(_ context.Context, rec *model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.LocalID = s.nextID
	s.nextID++
	s.recs[rec.Kind] = append(s.recs[rec.Kind], rec)
	s.dirty[rec.LocalID] = rec
	return nil
}

// Delete removes a record and buffers the deletion. Unknown ids are a no-op.
func (s *Store) Delete(_ context.Context, kind model.Kind, localID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs := s.recs[kind]
	for i, r := range rs {
		if r.LocalID == localID {
			s.recs[kind] = append(rs[:i:i], rs[i+1:]...)
			delete(s.dirty, localID)
			s.deleted[localID] = struct{}{}
			return nil
		}
	}
	return nil
}

// MarkDirty buffers a rewrite of an already-stored record.
func (s *Store) MarkDirty(rec *model.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty[rec.LocalID] = rec
}

// Flush commits all buffered mutations in one transaction.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.dirty) == 0 && len(s.deleted) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for id := range s.deleted {
		if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE local_id = ?`, id); err != nil {
			return err
		}
	}
	const upsert = `
		INSERT INTO records (local_id, kind, sync_id, body) VALUES (?, ?, ?, ?)
		ON CONFLICT(local_id) DO UPDATE SET sync_id = excluded.sync_id, body = excluded.body`
	for id, rec := range s.dirty {
		body, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("record %d: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, upsert, id, string(rec.Kind), rec.SyncID, body); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.dirty = make(map[int64]*model.Record)
	s.deleted = make(map[int64]struct{})
	return nil
}
