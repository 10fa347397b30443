package social

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/peakform/trainsync/internal/document"
	"github.com/peakform/trainsync/internal/errs"
	"github.com/peakform/trainsync/internal/model"
	"github.com/peakform/trainsync/internal/remote"
)

// fakeDocs backs the service with canned data and recorded calls.
type fakeDocs struct {
	remote.Documents

	followees  []string
	activities map[string][]document.Activity // owner -> items
	profiles   map[string]document.Profile
	likes      map[string][]document.Like // activityID -> edges

	ownerChunks    [][]string
	likeChunks     [][]string
	follows        []document.Follow
	mergedProfiles []document.Profile
	searches       []string // "field:prefix"
	created        []document.Like
	deleted        []string
	patches        map[string]map[string]any
	searchResults  map[string][]document.Profile // field -> hits

	watchChunks [][]string
	watchChans  []chan []document.Like

	mergedActivities map[string]document.ActivityProjection
}

var _ remote.Documents = (*fakeDocs)(nil)

func newFakeDocs() *fakeDocs {
	return &fakeDocs{
		activities:    make(map[string][]document.Activity),
		profiles:      make(map[string]document.Profile),
		likes:         make(map[string][]document.Like),
		patches:       make(map[string]map[string]any),
		searchResults: make(map[string][]document.Profile),
	}
}

func (f *fakeDocs) ActiveFollowees(context.Context, string) ([]string, error) {
	return f.followees, nil
}

func (f *fakeDocs) ActivitiesByOwners(_ context.Context, owners []string, _ int) ([]document.Activity, error) {
	f.ownerChunks = append(f.ownerChunks, owners)
	var out []document.Activity
	for _, o := range owners {
		out = append(out, f.activities[o]...)
	}
	return out, nil
}

func (f *fakeDocs) Profiles(_ context.Context, userIDs []string) ([]document.Profile, error) {
	var out []document.Profile
	for _, id := range userIDs {
		if p, ok := f.profiles[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeDocs) LikesByActivities(_ context.Context, activityIDs []string) ([]document.Like, error) {
	f.likeChunks = append(f.likeChunks, activityIDs)
	var out []document.Like
	for _, id := range activityIDs {
		out = append(out, f.likes[id]...)
	}
	return out, nil
}

func (f *fakeDocs) MergeFollow(_ context.Context, fo document.Follow) error {
	f.follows = append(f.follows, fo)
	return nil
}

func (f *fakeDocs) CreateLike(_ context.Context, l document.Like) error {
	for _, have := range f.likes[l.ActivityID] {
		if have.UserID == l.UserID {
			return errs.ErrAlreadyExists
		}
	}
	f.likes[l.ActivityID] = append(f.likes[l.ActivityID], l)
	f.created = append(f.created, l)
	return nil
}

func (f *fakeDocs) DeleteLike(_ context.Context, likeID string) error {
	f.deleted = append(f.deleted, likeID)
	for actID, edges := range f.likes {
		for i, e := range edges {
			if document.LikeID(e.ActivityID, e.UserID) == likeID {
				f.likes[actID] = append(edges[:i:i], edges[i+1:]...)
				return nil
			}
		}
	}
	return nil // deleting a missing edge is fine
}

func (f *fakeDocs) PatchActivity(_ context.Context, activityID string, patch map[string]any) error {
	f.patches[activityID] = patch
	return nil
}

func (f *fakeDocs) MergeProfile(_ context.Context, p document.Profile) error {
	f.mergedProfiles = append(f.mergedProfiles, p)
	return nil
}

func (f *fakeDocs) SearchProfiles(_ context.Context, field, prefix string, _ int) ([]document.Profile, error) {
	f.searches = append(f.searches, field+":"+prefix)
	return f.searchResults[field], nil
}

func newTestService() (*Service, *fakeDocs) {
	docs := newFakeDocs()
	return NewService(docs, zap.NewNop()), docs
}

func TestService_FollowUnfollow(t *testing.T) {
	t.Parallel()
	s, docs := newTestService()
	ctx := context.Background()

	if err := s.Follow(ctx, "alice", "bob"); err != nil {
		t.Fatal(err)
	}
	if err := s.Unfollow(ctx, "alice", "bob"); err != nil {
		t.Fatal(err)
	}
	if len(docs.follows) != 2 {
		t.Fatalf("want 2 edge writes, got %d", len(docs.follows))
	}
	if !docs.follows[0].Active || docs.follows[1].Active {
		t.Fatalf("active flags want [true false], got %+v", docs.follows)
	}
	// Both writes address the same composite edge; no second document.
	for _, fo := range docs.follows {
		if fo.Follower != "alice" || fo.Followee != "bob" {
			t.Fatalf("edge endpoints wrong: %+v", fo)
		}
	}
}

func TestService_Feed_ChunksOwnerQueries(t *testing.T) {
	t.Parallel()
	s, docs := newTestService()

	// 10 followees plus the user = 11 owners: two queries of 10 and 1.
	for i := 0; i < 10; i++ {
		docs.followees = append(docs.followees, fmt.Sprintf("f%02d", i))
	}

	if _, err := s.Feed(context.Background(), "me", 50); err != nil {
		t.Fatal(err)
	}
	if len(docs.ownerChunks) != 2 {
		t.Fatalf("want exactly 2 chunked queries, got %d", len(docs.ownerChunks))
	}
	if len(docs.ownerChunks[0]) != 10 || len(docs.ownerChunks[1]) != 1 {
		t.Fatalf("chunk sizes want [10 1], got [%d %d]",
			len(docs.ownerChunks[0]), len(docs.ownerChunks[1]))
	}
}

func TestService_Feed_MergesSortsAndTruncates(t *testing.T) {
	t.Parallel()
	s, docs := newTestService()
	docs.followees = []string{"bob"}

	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	docs.activities["me"] = []document.Activity{
		{ID: "run_a", Owner: "me", CreatedAt: base.Add(1 * time.Hour)},
		{ID: "run_c", Owner: "me", CreatedAt: base.Add(3 * time.Hour)},
	}
	docs.activities["bob"] = []document.Activity{
		{ID: "training_b", Owner: "bob", CreatedAt: base.Add(2 * time.Hour)},
		{ID: "run_d", Owner: "bob", CreatedAt: base.Add(4 * time.Hour)},
	}

	items, err := s.Feed(context.Background(), "me", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 3 {
		t.Fatalf("want 3 items after truncation, got %d", len(items))
	}
	want := []string{"run_d", "run_c", "training_b"}
	for i, id := range want {
		if items[i].ID != id {
			t.Fatalf("item %d: want %s, got %s (order %v)", i, id, items[i].ID, items)
		}
	}
}

func TestService_Feed_EnrichesProfilesAndLikes(t *testing.T) {
	t.Parallel()
	s, docs := newTestService()
	docs.activities["me"] = []document.Activity{
		{ID: "run_a", Owner: "me", CreatedAt: time.Now()},
	}
	docs.profiles["me"] = document.Profile{UserID: "me", Username: "runner", DisplayName: "Me"}
	docs.likes["run_a"] = []document.Like{
		{ActivityID: "run_a", UserID: "bob"},
		{ActivityID: "run_a", UserID: "carol"},
	}

	items, err := s.Feed(context.Background(), "me", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("want 1 item, got %d", len(items))
	}
	it := items[0]
	if it.Profile == nil || it.Profile.Username != "runner" {
		t.Fatalf("profile snapshot missing: %+v", it.Profile)
	}
	if it.LikeCount != 2 || len(it.LikerIDs) != 2 {
		t.Fatalf("like aggregate want 2 likers, got count=%d ids=%v", it.LikeCount, it.LikerIDs)
	}
}

func TestService_Like_TwiceIsNoOp(t *testing.T) {
	t.Parallel()
	s, docs := newTestService()
	ctx := context.Background()

	if err := s.Like(ctx, "bob", "run_a"); err != nil {
		t.Fatal(err)
	}
	if err := s.Like(ctx, "bob", "run_a"); err != nil {
		t.Fatalf("second like must be a no-op, got %v", err)
	}
	if len(docs.created) != 1 {
		t.Fatalf("want exactly one like edge, got %d", len(docs.created))
	}
	patch := docs.patches["run_a"]
	if patch == nil {
		t.Fatal("like aggregate not patched")
	}
	if patch["like_count"] != 1 {
		t.Fatalf("like_count want 1, got %v", patch["like_count"])
	}
}

func TestService_Unlike_MissingEdgeIsNoOp(t *testing.T) {
	t.Parallel()
	s, docs := newTestService()
	ctx := context.Background()

	if err := s.Unlike(ctx, "bob", "run_a"); err != nil {
		t.Fatalf("unliking a never-liked item must succeed, got %v", err)
	}
	wantID := document.LikeID("run_a", "bob")
	if len(docs.deleted) != 1 || docs.deleted[0] != wantID {
		t.Fatalf("deleted want [%s], got %v", wantID, docs.deleted)
	}
	if patch := docs.patches["run_a"]; patch == nil || patch["like_count"] != 0 {
		t.Fatalf("aggregate not patched to zero: %v", patch)
	}
}

func TestService_UpdateProfile_MaintainsShadowFields(t *testing.T) {
	t.Parallel()
	s, docs := newTestService()

	err := s.UpdateProfile(context.Background(), model.Profile{
		UserID:      "u1",
		Username:    "IronMike",
		DisplayName: "Mike O'Neil",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(docs.mergedProfiles) != 1 {
		t.Fatalf("want 1 profile merge, got %d", len(docs.mergedProfiles))
	}
	p := docs.mergedProfiles[0]
	if p.UsernameLC != "ironmike" || p.DisplayNameLC != "mike o'neil" {
		t.Fatalf("shadow fields not folded: %q %q", p.UsernameLC, p.DisplayNameLC)
	}
}

func TestService_UpdateProfile_RejectsOversizedAvatar(t *testing.T) {
	t.Parallel()
	s, _ := newTestService()

	err := s.UpdateProfile(context.Background(), model.Profile{
		UserID:       "u1",
		AvatarInline: strings.Repeat("a", maxAvatarLen+1),
	})
	if err == nil {
		t.Fatal("want size error")
	}
}

func TestService_SearchUsers_FoldsDeduplicatesAndSorts(t *testing.T) {
	t.Parallel()
	s, docs := newTestService()

	// u1 matches on both the folded shadow and the legacy field.
	docs.searchResults[remote.FieldUsernameLC] = []document.Profile{
		{UserID: "u1", Username: "Anna", DisplayName: "Zoe A"},
	}
	docs.searchResults[remote.FieldUsername] = []document.Profile{
		{UserID: "u1", Username: "Anna", DisplayName: "Zoe A"},
		{UserID: "u2", Username: "annabel"},
	}

	out, err := s.SearchUsers(context.Background(), "An", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("want 2 deduplicated hits, got %d: %v", len(out), out)
	}
	// Sorted by display name, falling back to username.
	if out[0].UserID != "u2" || out[1].UserID != "u1" {
		t.Fatalf("sort order wrong: %v", out)
	}

	wantSearches := []string{
		remote.FieldUsernameLC + ":an",
		remote.FieldDisplayNameLC + ":an",
		remote.FieldUsername + ":An",
		remote.FieldDisplayName + ":An",
	}
	if len(docs.searches) != len(wantSearches) {
		t.Fatalf("searches want %v, got %v", wantSearches, docs.searches)
	}
	for i, w := range wantSearches {
		if docs.searches[i] != w {
			t.Fatalf("search %d: want %q, got %q", i, w, docs.searches[i])
		}
	}
}

func TestService_SearchUsers_EmptyQuery(t *testing.T) {
	t.Parallel()
	s, docs := newTestService()

	out, err := s.SearchUsers(context.Background(), "   ", 10)
	if err != nil || out != nil {
		t.Fatalf("blank query want (nil, nil), got (%v, %v)", out, err)
	}
	if len(docs.searches) != 0 {
		t.Fatalf("blank query must not hit the backend: %v", docs.searches)
	}
}
