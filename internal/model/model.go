// Package model defines domain entities used by the sync engine and services.
package model

import (
	"strings"
	"time"
)

// Kind identifies a syncable record kind. It doubles as the remote collection
// name under the user's namespace.
type Kind string

// Record kinds. The string values are the remote collection names.
const (
	KindTraining         Kind = "trainings"
	KindRun              Kind = "runs"
	KindPlannedTraining  Kind = "planned_trainings"
	KindPlannedRun       Kind = "planned_runs"
	KindPlannedBenchmark Kind = "planned_benchmarks"
	KindWeight           Kind = "weights"
)

// Kinds lists every syncable kind in cycle order.
var Kinds = []Kind{
	KindTraining,
	KindRun,
	KindPlannedTraining,
	KindPlannedRun,
	KindPlannedBenchmark,
	KindWeight,
}

// Record is the local syncable envelope. Exactly one payload pointer matching
// Kind is set. Media is populated for trainings and runs only.
type Record struct {
	LocalID int64  // store-assigned, local only
	SyncID  string // stable remote document key; never changes once set
	Kind    Kind
	Date    time.Time // the record's own date, not its upload time

	Training  *TrainingData  // trainings, planned_trainings
	Run       *RunData       // runs, planned_runs
	Benchmark *BenchmarkData // planned_benchmarks
	Weight    *WeightData    // weights

	Media []*MediaAttachment
}

// HasSyncID reports whether the record carries a usable sync identifier.
// Whitespace-only identifiers count as unassigned.
func (r *Record) HasSyncID() bool {
	return strings.TrimSpace(r.SyncID) != ""
}

// MediaByID returns the attachment with the given id, or nil.
func (r *Record) MediaByID(id string) *MediaAttachment {
	for _, m := range r.Media {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// TrainingData holds a strength workout: recorded exercises with their sets.
type TrainingData struct {
	Title     string
	Duration  time.Duration
	Exercises []Exercise
	Notes     string
}

// Exercise is one recorded exercise entry.
type Exercise struct {
	Name string
	Sets []Set
}

// Set is a single set of an exercise.
type Set struct {
	Reps     int
	WeightKg float64
}

// RunData holds a running session.
type RunData struct {
	DistanceMeters float64
	Duration       time.Duration
	SplitsSeconds  []float64 // per-kilometer splits
	Notes          string
}

// BenchmarkData holds a planned benchmark target.
type BenchmarkData struct {
	Name   string
	Target string
}

// WeightData holds a body-weight entry.
type WeightData struct {
	Kg float64
}

// Profile is the user's public profile snapshot stored in the global users
// collection and embedded into feed items.
type Profile struct {
	UserID       string
	Username     string
	DisplayName  string
	AvatarInline string // base64-encoded, capped at the inline encoded ceiling
}

// ActivityKind maps a record kind to its feed kind, or "" for kinds that are
// not projected into the feed.
func ActivityKind(k Kind) string {
	switch k {
	case KindTraining:
		return "training"
	case KindRun:
		return "run"
	}
	return ""
}
