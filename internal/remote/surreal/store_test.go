package surreal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/peakform/trainsync/internal/document"
	"github.com/peakform/trainsync/internal/errs"
	"github.com/peakform/trainsync/internal/remote"
)

// fakeRPC records calls and replays canned responses.
type fakeRPC struct {
	creates []string
	changes []string
	deletes []string
	queries []string
	vars    []map[string]any

	queryResult []map[string]any
	queryErr    error
	createErr   error
}

var _ rpc = (*fakeRPC)(nil)

func (f *fakeRPC) Create(thing string, _ any) (any, error) {
	f.creates = append(f.creates, thing)
	return nil, f.createErr
}

func (f *fakeRPC) Change(thing string, _ any) (any, error) {
	f.changes = append(f.changes, thing)
	return nil, nil
}

func (f *fakeRPC) Delete(what string) (any, error) {
	f.deletes = append(f.deletes, what)
	return nil, nil
}

func (f *fakeRPC) Query(sql string, vars any) (any, error) {
	f.queries = append(f.queries, sql)
	if m, ok := vars.(map[string]any); ok {
		f.vars = append(f.vars, m)
	}
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	items := make([]any, 0, len(f.queryResult))
	for _, m := range f.queryResult {
		items = append(items, m)
	}
	return []any{map[string]any{"status": "OK", "result": items}}, nil
}

func newTestStore() (*Store, *fakeRPC) {
	db := &fakeRPC{}
	return New(db, zap.NewNop()), db
}

func TestMergeRecord_NamespacedThing(t *testing.T) {
	s, db := newTestStore()
	err := s.MergeRecord(context.Background(), "u1", "runs", "r1", document.Record{Kind: "runs"})
	require.NoError(t, err)
	require.Equal(t, []string{"runs:⟨u1/r1⟩"}, db.changes)
}

func TestListRecords_KeysByOwnSyncID(t *testing.T) {
	s, db := newTestStore()
	db.queryResult = []map[string]any{
		{"id": "runs:⟨u1/r1⟩", "kind": "runs", "run": map[string]any{"distance_m": float64(5000)}},
		{"id": "runs:⟨u1/r2⟩", "kind": "runs"},
		{"id": "runs:⟨u1/broken⟩"}, // no kind, skipped
	}

	out, err := s.ListRecords(context.Background(), "u1", "runs")
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Contains(t, out, "r1")
	require.Contains(t, out, "r2")
	assert.Equal(t, float64(5000), out["r1"].Run.DistanceM)
	require.Len(t, db.vars, 1)
	assert.Equal(t, "u1", db.vars[0]["owner"])
}

func TestCreateLike_ConflictMapsToAlreadyExists(t *testing.T) {
	s, db := newTestStore()
	db.createErr = errors.New("database record `likes:⟨run_r1_bob⟩` already exists")

	err := s.CreateLike(context.Background(), document.Like{ActivityID: "run_r1", UserID: "bob"})
	require.ErrorIs(t, err, errs.ErrAlreadyExists)
	require.Equal(t, []string{"likes:⟨run_r1_bob⟩"}, db.creates)
}

func TestDeleteLike_AddressesCompositeEdge(t *testing.T) {
	s, db := newTestStore()
	err := s.DeleteLike(context.Background(), document.LikeID("run_r1", "bob"))
	require.NoError(t, err)
	require.Equal(t, []string{"likes:⟨run_r1_bob⟩"}, db.deletes)
}

func TestMergeFollow_CompositeEdge(t *testing.T) {
	s, db := newTestStore()
	err := s.MergeFollow(context.Background(), document.Follow{Follower: "alice", Followee: "bob", Active: true})
	require.NoError(t, err)
	require.Equal(t, []string{"follows:⟨alice_bob⟩"}, db.changes)
}

func TestActivitiesByOwners_ContainedInQuery(t *testing.T) {
	s, db := newTestStore()
	db.queryResult = []map[string]any{
		{"id": "activities:⟨run_r1⟩", "owner": "u1", "kind": "run", "summary": "5.0 km in 25:00"},
	}

	out, err := s.ActivitiesByOwners(context.Background(), []string{"u1", "u2"}, 50)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "run_r1", out[0].ID)
	require.Len(t, db.queries, 1)
	assert.Contains(t, db.queries[0], "owner INSIDE $owners")
	assert.Contains(t, db.queries[0], "ORDER BY created_at DESC")
	assert.Equal(t, []string{"u1", "u2"}, db.vars[0]["owners"])
}

func TestSearchProfiles_PrefixRange(t *testing.T) {
	s, db := newTestStore()
	db.queryResult = []map[string]any{
		{"user_id": "u1", "username": "anna", "username_lc": "anna"},
	}

	out, err := s.SearchProfiles(context.Background(), remote.FieldUsernameLC, "an", 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "u1", out[0].UserID)
	assert.Contains(t, db.queries[0], "username_lc >= $lo AND username_lc <= $hi")
	assert.Equal(t, "an", db.vars[0]["lo"])
	assert.Equal(t, "an\uffff", db.vars[0]["hi"])
}

func TestSearchProfiles_RejectsUnknownField(t *testing.T) {
	s, db := newTestStore()
	_, err := s.SearchProfiles(context.Background(), "avatar; DROP TABLE users", "x", 10)
	require.Error(t, err)
	require.Empty(t, db.queries)
}

func TestRows_SurfacesStatementErrors(t *testing.T) {
	s, db := newTestStore()
	db.queryErr = errors.New("connection reset")

	_, err := s.ActiveFollowees(context.Background(), "u1")
	require.Error(t, err)
}

func TestParseThing(t *testing.T) {
	assert.Equal(t, "u1/r1", parseThing("runs:⟨u1/r1⟩"))
	assert.Equal(t, "run_r1", parseThing("activities:run_r1"))
	assert.Equal(t, "plain", parseThing("plain"))
}
