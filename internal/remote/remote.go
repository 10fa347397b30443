// Package remote defines the remote document-database and blob-storage
// boundaries consumed by the sync engine and the social graph service.
package remote

import (
	"context"

	"github.com/peakform/trainsync/internal/document"
)

// Documents is the multi-tenant document database. Record documents are keyed
// under the owner's namespace; activities, follows, likes and profiles are
// global collections. All id-set arguments are single chunks already cut to
// the backend's value-in-set limit by the caller.
type Documents interface {
	// ListRecords returns every document in the owner's collection, keyed by
	// sync identifier.
	ListRecords(ctx context.Context, owner, collection string) (map[string]document.Record, error)
	// MergeRecord upserts a record document, preserving unspecified fields.
	MergeRecord(ctx context.Context, owner, collection, syncID string, doc document.Record) error
	// PatchRecord merges a partial body into a record document.
	PatchRecord(ctx context.Context, owner, collection, syncID string, patch map[string]any) error

	// MergeActivity upserts a feed item's projection by its deterministic id.
	MergeActivity(ctx context.Context, activityID string, p document.ActivityProjection) error
	// PatchActivity merges a partial body into a feed item.
	PatchActivity(ctx context.Context, activityID string, patch map[string]any) error
	// ActivitiesByOwners returns one chunk's activities, newest first.
	ActivitiesByOwners(ctx context.Context, owners []string, limit int) ([]document.Activity, error)

	// MergeFollow upserts a follow edge by its composite id.
	MergeFollow(ctx context.Context, f document.Follow) error
	// ActiveFollowees returns ids the user actively follows.
	ActiveFollowees(ctx context.Context, follower string) ([]string, error)

	// CreateLike writes a like edge without merging; an existing edge yields
	// errs.ErrAlreadyExists.
	CreateLike(ctx context.Context, l document.Like) error
	// DeleteLike removes a like edge; deleting a missing edge is not an error.
	DeleteLike(ctx context.Context, likeID string) error
	// LikesByActivities returns one chunk's like edges.
	LikesByActivities(ctx context.Context, activityIDs []string) ([]document.Like, error)
	// WatchLikes emits the chunk's like edges on every observed change until
	// ctx is done. The first emission is the current state.
	WatchLikes(ctx context.Context, activityIDs []string) (<-chan []document.Like, error)

	// Profiles returns one chunk's profile documents.
	Profiles(ctx context.Context, userIDs []string) ([]document.Profile, error)
	// MergeProfile upserts the users/{uid} profile document.
	MergeProfile(ctx context.Context, p document.Profile) error
	// SearchProfiles runs a prefix-range query over one profile field.
	SearchProfiles(ctx context.Context, field, prefix string, limit int) ([]document.Profile, error)
}

// Profile fields accepted by SearchProfiles. The _lc fields are the
// case-folded shadows; the plain fields remain queryable for documents
// written before the shadows existed.
const (
	FieldUsername      = "username"
	FieldDisplayName   = "display_name"
	FieldUsernameLC    = "username_lc"
	FieldDisplayNameLC = "display_name_lc"
)

// Blobs is the object-storage boundary for media payloads.
type Blobs interface {
	// Put stores data under path and returns a durable fetch URL.
	Put(ctx context.Context, path, contentType string, data []byte) (string, error)
	// Remove deletes the object at path. Missing objects are not an error.
	Remove(ctx context.Context, path string) error
}
