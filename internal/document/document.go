// Package document defines the typed wire DTOs exchanged with the remote
// document database, plus a lenient decoder for documents produced by older
// client versions.
package document

import "time"

// SchemaVersion is stamped into every encoded document as "v".
const SchemaVersion = 1

// Record is the remote representation of a syncable record. It lives at
// users/{owner}/{collection}/{syncID}; writes are always merges.
type Record struct {
	V     int       `json:"v"`
	Owner string    `json:"owner"`
	Kind  string    `json:"kind"`
	Date  time.Time `json:"date"`

	Training  *Training  `json:"training,omitempty"`
	Run       *Run       `json:"run,omitempty"`
	Benchmark *Benchmark `json:"benchmark,omitempty"`
	Weight    *Weight    `json:"weight,omitempty"`

	Media []Media `json:"media,omitempty"`
}

// Training is the wire form of a strength workout.
type Training struct {
	Title       string     `json:"title,omitempty"`
	DurationSec float64    `json:"duration_sec,omitempty"`
	Exercises   []Exercise `json:"exercises,omitempty"`
	Notes       string     `json:"notes,omitempty"`
}

// Exercise is one recorded exercise entry on the wire.
type Exercise struct {
	Name string `json:"name"`
	Sets []Set  `json:"sets,omitempty"`
}

// Set is a single set on the wire.
type Set struct {
	Reps     int     `json:"reps"`
	WeightKg float64 `json:"weight_kg,omitempty"`
}

// Run is the wire form of a running session.
type Run struct {
	DistanceM   float64   `json:"distance_m"`
	DurationSec float64   `json:"duration_sec"`
	Splits      []float64 `json:"splits,omitempty"`
	Notes       string    `json:"notes,omitempty"`
}

// Benchmark is the wire form of a planned benchmark.
type Benchmark struct {
	Name   string `json:"name"`
	Target string `json:"target,omitempty"`
}

// Weight is the wire form of a body-weight entry.
type Weight struct {
	Kg float64 `json:"kg"`
}

// Media is a media descriptor inside a record document: either an inline
// base64 payload or a blob-storage URL (with its object path kept for
// deletion), never both.
type Media struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Inline    string `json:"inline,omitempty"`
	URL       string `json:"url,omitempty"`
	Path      string `json:"path,omitempty"`
	ThumbURL  string `json:"thumb_url,omitempty"`
	ThumbPath string `json:"thumb_path,omitempty"`
}

// Activity is the denormalized feed projection of a record. One per record,
// keyed "<kind>_<syncID>"; re-projection merges over the same id.
type Activity struct {
	V         int              `json:"v"`
	ID        string           `json:"-"`
	Owner     string           `json:"owner"`
	Kind      string           `json:"kind"`
	Summary   string           `json:"summary"`
	CreatedAt time.Time        `json:"created_at"` // the record's own date
	Payload   map[string]any   `json:"payload,omitempty"`
	Profile   *ProfileSnapshot `json:"profile,omitempty"`
	LikeCount int              `json:"like_count"`
	LikerIDs  []string         `json:"liker_ids,omitempty"`
}

// ActivityProjection is the merge payload the projector writes. It carries
// no like fields: like aggregates are patched by like operations and must
// not be clobbered by re-projection.
type ActivityProjection struct {
	V         int              `json:"v"`
	Owner     string           `json:"owner"`
	Kind      string           `json:"kind"`
	Summary   string           `json:"summary"`
	CreatedAt time.Time        `json:"created_at"`
	Payload   map[string]any   `json:"payload,omitempty"`
	Profile   *ProfileSnapshot `json:"profile,omitempty"`
}

// ProfileSnapshot is the owner profile embedded into a feed item at read time.
type ProfileSnapshot struct {
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
}

// Follow is a follower edge, keyed "<follower>_<followee>". Unfollow flips
// Active instead of deleting the edge.
type Follow struct {
	V        int    `json:"v"`
	ID       string `json:"-"`
	Follower string `json:"follower"`
	Followee string `json:"followee"`
	Active   bool   `json:"active"`
}

// FollowID builds the composite follow-edge id.
func FollowID(follower, followee string) string { return follower + "_" + followee }

// Like is a like edge, keyed "<activityID>_<userID>". Existence means liked;
// likes are created with a non-merging write and hard-deleted on unlike.
type Like struct {
	V          int       `json:"v"`
	ID         string    `json:"-"`
	ActivityID string    `json:"activity_id"`
	UserID     string    `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// LikeID builds the composite like-edge id.
func LikeID(activityID, userID string) string { return activityID + "_" + userID }

// ActivityID builds the deterministic feed-item id for a record.
func ActivityID(kind, syncID string) string { return kind + "_" + syncID }

// Profile is the users/{uid} document. The _lc fields are lower-cased shadows
// maintained for case-insensitive prefix search.
type Profile struct {
	V             int    `json:"v"`
	UserID        string `json:"user_id"`
	Username      string `json:"username"`
	DisplayName   string `json:"display_name"`
	UsernameLC    string `json:"username_lc"`
	DisplayNameLC string `json:"display_name_lc"`
	Avatar        string `json:"avatar,omitempty"`
}
