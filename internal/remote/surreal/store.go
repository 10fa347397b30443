// Package surreal implements the remote document boundary on SurrealDB's
// websocket RPC client. Merge writes map to CHANGE, the likes' non-merging
// create maps to CREATE, and contained-in queries use INSIDE with
// pre-chunked id sets.
package surreal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/peakform/trainsync/internal/document"
	"github.com/peakform/trainsync/internal/errs"
	"github.com/peakform/trainsync/internal/remote"
)

// Collection names of the global tables.
const (
	tableActivities = "activities"
	tableFollows    = "follows"
	tableLikes      = "likes"
	tableUsers      = "users"
)

// watchInterval drives the polling fallback behind WatchLikes. The v0.2 RPC
// client does not surface live-notification frames, so chunk subscriptions
// re-query on a ticker.
const watchInterval = 3 * time.Second

// rpc is the slice of the SurrealDB client the store uses. *surrealdb.DB
// satisfies it.
type rpc interface {
	Create(thing string, data any) (any, error)
	Change(thing string, data any) (any, error)
	Delete(what string) (any, error)
	Query(sql string, vars any) (any, error)
}

// Store implements remote.Documents.
type Store struct {
	db     rpc
	logger *zap.Logger
}

var _ remote.Documents = (*Store)(nil)

// New constructs the store around a connected, signed-in client.
func New(db rpc, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// thing builds a record pointer with an escaped id part.
func thing(table, id string) string {
	return table + ":⟨" + id + "⟩"
}

// recordID is the in-table key of a user record: owner and sync id joined so
// per-user documents cannot collide across tenants.
func recordID(owner, syncID string) string {
	return owner + "/" + syncID
}

// parseThing strips the table prefix and id escaping from a returned id.
func parseThing(id string) string {
	if i := strings.IndexByte(id, ':'); i >= 0 {
		id = id[i+1:]
	}
	id = strings.TrimPrefix(id, "⟨")
	id = strings.TrimSuffix(id, "⟩")
	return strings.Trim(id, "`")
}

// rows flattens a Query response into raw document bodies. The client
// returns one result set per statement; the store issues single statements.
func rows(res any, err error) ([]map[string]any, error) {
	if err != nil {
		return nil, err
	}
	sets, ok := res.([]any)
	if !ok || len(sets) == 0 {
		return nil, nil
	}
	first, ok := sets[0].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected query response %T", sets[0])
	}
	if status, _ := first["status"].(string); status != "" && status != "OK" {
		return nil, fmt.Errorf("query status %s: %v", status, first["detail"])
	}
	items, ok := first["result"].([]any)
	if !ok {
		return nil, nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// ListRecords returns every document in the owner's collection keyed by sync id.
func (s *Store) ListRecords(ctx context.Context, owner, collection string) (map[string]document.Record, error) {
	rs, err := rows(s.db.Query(
		"SELECT * FROM type::table($tb) WHERE owner = $owner",
		map[string]any{"tb": collection, "owner": owner},
	))
	if err != nil {
		return nil, err
	}
	out := make(map[string]document.Record, len(rs))
	for _, m := range rs {
		key := parseThing(str(m, "id"))
		if i := strings.IndexByte(key, '/'); i >= 0 {
			key = key[i+1:]
		}
		if key == "" {
			continue
		}
		doc, err := document.DecodeRecord(m)
		if err != nil {
			s.logger.Warn("skipping undecodable record document",
				zap.String("collection", collection), zap.String("id", key), zap.Error(err))
			continue
		}
		out[key] = doc
	}
	return out, nil
}

// MergeRecord upserts a record document under the owner's namespace.
func (s *Store) MergeRecord(ctx context.Context, owner, collection, syncID string, doc document.Record) error {
	_, err := s.db.Change(thing(collection, recordID(owner, syncID)), doc)
	return err
}

// PatchRecord merges a partial body into a record document.
func (s *Store) PatchRecord(ctx context.Context, owner, collection, syncID string, patch map[string]any) error {
	_, err := s.db.Change(thing(collection, recordID(owner, syncID)), patch)
	return err
}

// MergeActivity upserts a feed item's projection by its deterministic id.
func (s *Store) MergeActivity(ctx context.Context, activityID string, p document.ActivityProjection) error {
	_, err := s.db.Change(thing(tableActivities, activityID), p)
	return err
}

// PatchActivity merges a partial body into a feed item.
func (s *Store) PatchActivity(ctx context.Context, activityID string, patch map[string]any) error {
	_, err := s.db.Change(thing(tableActivities, activityID), patch)
	return err
}

// ActivitiesByOwners returns one chunk's activities, newest first.
func (s *Store) ActivitiesByOwners(ctx context.Context, owners []string, limit int) ([]document.Activity, error) {
	rs, err := rows(s.db.Query(
		fmt.Sprintf("SELECT * FROM activities WHERE owner INSIDE $owners ORDER BY created_at DESC LIMIT %d", limit),
		map[string]any{"owners": owners},
	))
	if err != nil {
		return nil, err
	}
	out := make([]document.Activity, 0, len(rs))
	for _, m := range rs {
		a := document.DecodeActivity(m)
		a.ID = parseThing(str(m, "id"))
		out = append(out, a)
	}
	return out, nil
}

// MergeFollow upserts a follow edge by its composite id.
func (s *Store) MergeFollow(ctx context.Context, f document.Follow) error {
	_, err := s.db.Change(thing(tableFollows, document.FollowID(f.Follower, f.Followee)), f)
	return err
}

// ActiveFollowees returns ids the user actively follows.
func (s *Store) ActiveFollowees(ctx context.Context, follower string) ([]string, error) {
	rs, err := rows(s.db.Query(
		"SELECT * FROM follows WHERE follower = $follower AND active = true",
		map[string]any{"follower": follower},
	))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rs))
	for _, m := range rs {
		f := document.DecodeFollow(m)
		if f.Followee != "" {
			out = append(out, f.Followee)
		}
	}
	return out, nil
}

// CreateLike writes a like edge without merging. An existing edge maps to
// errs.ErrAlreadyExists.
func (s *Store) CreateLike(ctx context.Context, l document.Like) error {
	_, err := s.db.Create(thing(tableLikes, document.LikeID(l.ActivityID, l.UserID)), l)
	if err != nil && strings.Contains(err.Error(), "already exists") {
		return errs.ErrAlreadyExists
	}
	return err
}

// DeleteLike removes a like edge. Deleting a missing edge is not an error.
func (s *Store) DeleteLike(ctx context.Context, likeID string) error {
	_, err := s.db.Delete(thing(tableLikes, likeID))
	return err
}

// LikesByActivities returns one chunk's like edges.
func (s *Store) LikesByActivities(ctx context.Context, activityIDs []string) ([]document.Like, error) {
	rs, err := rows(s.db.Query(
		"SELECT * FROM likes WHERE activity_id INSIDE $ids",
		map[string]any{"ids": activityIDs},
	))
	if err != nil {
		return nil, err
	}
	out := make([]document.Like, 0, len(rs))
	for _, m := range rs {
		l := document.DecodeLike(m)
		l.ID = parseThing(str(m, "id"))
		out = append(out, l)
	}
	return out, nil
}

// WatchLikes emits the chunk's like edges on an interval until ctx is done.
func (s *Store) WatchLikes(ctx context.Context, activityIDs []string) (<-chan []document.Like, error) {
	ids := append([]string(nil), activityIDs...)
	ch := make(chan []document.Like, 1)

	emit := func() {
		likes, err := s.LikesByActivities(ctx, ids)
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Warn("like watch query failed", zap.Error(err))
			}
			return
		}
		select {
		case ch <- likes:
		case <-ctx.Done():
		}
	}

	go func() {
		defer close(ch)
		emit()
		ticker := time.NewTicker(watchInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				emit()
			}
		}
	}()
	return ch, nil
}

// Profiles returns one chunk's profile documents.
func (s *Store) Profiles(ctx context.Context, userIDs []string) ([]document.Profile, error) {
	rs, err := rows(s.db.Query(
		"SELECT * FROM users WHERE user_id INSIDE $ids",
		map[string]any{"ids": userIDs},
	))
	if err != nil {
		return nil, err
	}
	out := make([]document.Profile, 0, len(rs))
	for _, m := range rs {
		out = append(out, document.DecodeProfile(m))
	}
	return out, nil
}

// MergeProfile upserts the users/{uid} profile document.
func (s *Store) MergeProfile(ctx context.Context, p document.Profile) error {
	_, err := s.db.Change(thing(tableUsers, p.UserID), p)
	return err
}

// SearchProfiles runs a prefix-range query over one whitelisted field.
func (s *Store) SearchProfiles(ctx context.Context, field, prefix string, limit int) ([]document.Profile, error) {
	switch field {
	case remote.FieldUsername, remote.FieldDisplayName, remote.FieldUsernameLC, remote.FieldDisplayNameLC:
	default:
		return nil, fmt.Errorf("unsearchable field %q", field)
	}
	rs, err := rows(s.db.Query(
		fmt.Sprintf("SELECT * FROM users WHERE %s >= $lo AND %s <= $hi ORDER BY %s LIMIT %d", field, field, field, limit),
		map[string]any{"lo": prefix, "hi": prefix + "\uffff"},
	))
	if err != nil {
		return nil, err
	}
	out := make([]document.Profile, 0, len(rs))
	for _, m := range rs {
		out = append(out, document.DecodeProfile(m))
	}
	return out, nil
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
