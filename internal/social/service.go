package social

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/peakform/trainsync/internal/convert"
	"github.com/peakform/trainsync/internal/document"
	"github.com/peakform/trainsync/internal/errs"
	"github.com/peakform/trainsync/internal/model"
	"github.com/peakform/trainsync/internal/remote"
)

// chunkSize is the backend's value-in-set query cardinality limit. Every
// id-set query is cut into groups of at most this many ids.
const chunkSize = 10

// maxAvatarLen caps the inline-encoded avatar in the profile document. Same
// compatibility ceiling as inline media encoding.
const maxAvatarLen = 1_000_000

// Service is the social graph: follow edges, feed aggregation, likes,
// profiles and user search.
type Service struct {
	docs   remote.Documents
	logger *zap.Logger
}

// NewService constructs the service.
func NewService(docs remote.Documents, logger *zap.Logger) *Service {
	return &Service{docs: docs, logger: logger}
}

// Follow activates the follower→followee edge. Re-following an inactive
// edge reactivates the same composite-id document.
func (s *Service) Follow(ctx context.Context, follower, followee string) error {
	return s.docs.MergeFollow(ctx, document.Follow{
		V:        document.SchemaVersion,
		Follower: follower,
		Followee: followee,
		Active:   true,
	})
}

// Unfollow deactivates the edge without deleting it; followership history
// is audit-preserving.
func (s *Service) Unfollow(ctx context.Context, follower, followee string) error {
	return s.docs.MergeFollow(ctx, document.Follow{
		V:        document.SchemaVersion,
		Follower: follower,
		Followee: followee,
		Active:   false,
	})
}

// Feed aggregates the newest activities of the user and everyone they
// actively follow. Followee ids are chunked to the backend limit, each
// chunk queried newest-first, then merged by creation time, truncated and
// enriched with current profile snapshots and like aggregates.
func (s *Service) Feed(ctx context.Context, userID string, limit int) ([]document.Activity, error) {
	followees, err := s.docs.ActiveFollowees(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve followees: %w", err)
	}
	owners := append([]string{userID}, followees...)

	seen := make(map[string]struct{})
	var items []document.Activity
	for _, chunk := range chunks(owners) {
		part, err := s.docs.ActivitiesByOwners(ctx, chunk, limit)
		if err != nil {
			return nil, fmt.Errorf("query activities: %w", err)
		}
		for _, a := range part {
			if _, dup := seen[a.ID]; dup {
				continue
			}
			seen[a.ID] = struct{}{}
			items = append(items, a)
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}

	s.enrich(ctx, items)
	return items, nil
}

// enrich attaches current profile snapshots and like aggregates, both
// fetched in chunked queries. Enrichment failures degrade to bare items.
func (s *Service) enrich(ctx context.Context, items []document.Activity) {
	if len(items) == 0 {
		return
	}

	ownerSet := make(map[string]struct{})
	ids := make([]string, 0, len(items))
	for _, a := range items {
		ownerSet[a.Owner] = struct{}{}
		ids = append(ids, a.ID)
	}
	owners := make([]string, 0, len(ownerSet))
	for o := range ownerSet {
		owners = append(owners, o)
	}

	profiles := make(map[string]document.Profile)
	for _, chunk := range chunks(owners) {
		ps, err := s.docs.Profiles(ctx, chunk)
		if err != nil {
			s.logger.Warn("feed profile enrichment failed", zap.Error(err))
			continue
		}
		for _, p := range ps {
			profiles[p.UserID] = p
		}
	}

	likers := make(map[string][]string)
	for _, chunk := range chunks(ids) {
		ls, err := s.docs.LikesByActivities(ctx, chunk)
		if err != nil {
			s.logger.Warn("feed like enrichment failed", zap.Error(err))
			continue
		}
		for _, l := range ls {
			likers[l.ActivityID] = append(likers[l.ActivityID], l.UserID)
		}
	}

	for i := range items {
		if p, ok := profiles[items[i].Owner]; ok {
			items[i].Profile = &document.ProfileSnapshot{
				Username:    p.Username,
				DisplayName: p.DisplayName,
				Avatar:      p.Avatar,
			}
		}
		ls := likers[items[i].ID]
		items[i].LikerIDs = ls
		items[i].LikeCount = len(ls)
	}
}

// Like creates the like edge with a non-merging write; liking twice is a
// no-op, never a second document. The activity's denormalized aggregate is
// patched best-effort.
func (s *Service) Like(ctx context.Context, userID, activityID string) error {
	err := s.docs.CreateLike(ctx, document.Like{
		V:          document.SchemaVersion,
		ActivityID: activityID,
		UserID:     userID,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil && !errors.Is(err, errs.ErrAlreadyExists) {
		return err
	}
	s.patchLikeAggregate(ctx, activityID)
	return nil
}

// Unlike hard-deletes the like edge; a missing edge is not an error.
func (s *Service) Unlike(ctx context.Context, userID, activityID string) error {
	if err := s.docs.DeleteLike(ctx, document.LikeID(activityID, userID)); err != nil {
		return err
	}
	s.patchLikeAggregate(ctx, activityID)
	return nil
}

func (s *Service) patchLikeAggregate(ctx context.Context, activityID string) {
	likes, err := s.docs.LikesByActivities(ctx, []string{activityID})
	if err != nil {
		s.logger.Warn("like aggregate read failed", zap.String("activity", activityID), zap.Error(err))
		return
	}
	ids := make([]string, 0, len(likes))
	for _, l := range likes {
		ids = append(ids, l.UserID)
	}
	patch := map[string]any{"like_count": len(ids), "liker_ids": ids}
	if err := s.docs.PatchActivity(ctx, activityID, patch); err != nil {
		s.logger.Warn("like aggregate patch failed", zap.String("activity", activityID), zap.Error(err))
	}
}

// UpdateProfile merges the users/{uid} document, maintaining the
// lower-cased shadow fields. Oversized inline avatars are rejected.
func (s *Service) UpdateProfile(ctx context.Context, p model.Profile) error {
	if p.UserID == "" {
		return errors.New("validation: empty user id")
	}
	if len(p.AvatarInline) > maxAvatarLen {
		return fmt.Errorf("avatar: %w", errs.ErrMediaTooLarge)
	}
	return s.docs.MergeProfile(ctx, convert.ToDocumentProfile(p, strings.ToLower))
}

// SearchUsers runs case-folded prefix queries over username and display
// name, plus the un-folded legacy fields for documents written before the
// shadows existed, deduplicates by user id and sorts by display name
// falling back to username.
func (s *Service) SearchUsers(ctx context.Context, query string, limit int) ([]model.Profile, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	folded := strings.ToLower(query)

	fields := []struct{ field, prefix string }{
		{remote.FieldUsernameLC, folded},
		{remote.FieldDisplayNameLC, folded},
		{remote.FieldUsername, query},
		{remote.FieldDisplayName, query},
	}

	seen := make(map[string]struct{})
	var out []model.Profile
	for _, f := range fields {
		ps, err := s.docs.SearchProfiles(ctx, f.field, f.prefix, limit)
		if err != nil {
			return nil, fmt.Errorf("search %s: %w", f.field, err)
		}
		for _, p := range ps {
			if p.UserID == "" {
				continue
			}
			if _, dup := seen[p.UserID]; dup {
				continue
			}
			seen[p.UserID] = struct{}{}
			out = append(out, model.Profile{
				UserID:       p.UserID,
				Username:     p.Username,
				DisplayName:  p.DisplayName,
				AvatarInline: p.Avatar,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return sortName(out[i]) < sortName(out[j])
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortName(p model.Profile) string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Username
}

// chunks cuts ids into groups of at most chunkSize.
func chunks(ids []string) [][]string {
	var out [][]string
	for len(ids) > chunkSize {
		out = append(out, ids[:chunkSize])
		ids = ids[chunkSize:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}
