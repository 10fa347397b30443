// Package social derives the activity-feed projection and serves the social
// graph: follows, likes, feed aggregation, profile search.
package social

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/peakform/trainsync/internal/document"
	"github.com/peakform/trainsync/internal/model"
	"github.com/peakform/trainsync/internal/remote"
)

// Projector writes one denormalized feed item per training/run record,
// keyed "<kind>_<syncID>". Repeated calls for an unchanged record produce
// the same document: the write is a merge, never a duplicate.
type Projector struct {
	docs   remote.Documents
	logger *zap.Logger
}

// NewProjector constructs the projector.
func NewProjector(docs remote.Documents, logger *zap.Logger) *Projector {
	return &Projector{docs: docs, logger: logger}
}

// Project merges the record's feed item. Kinds outside the feed (planned
// workouts, weight entries) and records without identifiers are no-ops.
func (p *Projector) Project(ctx context.Context, owner string, rec *model.Record, profile *model.Profile) error {
	kind := model.ActivityKind(rec.Kind)
	if kind == "" || !rec.HasSyncID() {
		return nil
	}

	proj := document.ActivityProjection{
		V:         document.SchemaVersion,
		Owner:     owner,
		Kind:      kind,
		Summary:   Summary(rec),
		CreatedAt: rec.Date.UTC(), // the record's own date, not upload time
		Payload:   payload(rec),
	}
	if profile != nil {
		proj.Profile = &document.ProfileSnapshot{
			Username:    profile.Username,
			DisplayName: profile.DisplayName,
			Avatar:      profile.AvatarInline,
		}
	}
	return p.docs.MergeActivity(ctx, document.ActivityID(kind, rec.SyncID), proj)
}

// Summary builds the kind-specific human summary of a record.
func Summary(rec *model.Record) string {
	switch {
	case rec.Run != nil:
		return fmt.Sprintf("%.1f km in %s",
			rec.Run.DistanceMeters/1000, formatDuration(rec.Run.Duration))
	case rec.Training != nil:
		title := rec.Training.Title
		if title == "" {
			title = "Strength training"
		}
		return fmt.Sprintf("%s · %s · %d exercises",
			title, formatDuration(rec.Training.Duration), len(rec.Training.Exercises))
	}
	return ""
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// payload builds the enriched feed payload: exercise names, splits and
// resolved media references.
func payload(rec *model.Record) map[string]any {
	out := make(map[string]any)
	switch {
	case rec.Training != nil:
		names := make([]string, 0, len(rec.Training.Exercises))
		for _, ex := range rec.Training.Exercises {
			names = append(names, ex.Name)
		}
		out["exercises"] = names
		out["duration_sec"] = rec.Training.Duration.Seconds()
	case rec.Run != nil:
		out["distance_m"] = rec.Run.DistanceMeters
		out["duration_sec"] = rec.Run.Duration.Seconds()
		if len(rec.Run.SplitsSeconds) > 0 {
			out["splits"] = append([]float64(nil), rec.Run.SplitsSeconds...)
		}
	}

	media := make([]document.Media, 0, len(rec.Media))
	for _, m := range rec.Media {
		if !m.Uploaded() {
			continue
		}
		media = append(media, document.Media{
			ID:       m.ID,
			Kind:     string(m.Kind),
			Inline:   m.Remote.Inline,
			URL:      m.Remote.URL,
			ThumbURL: m.ThumbURL,
		})
	}
	if len(media) > 0 {
		out["media"] = media
	}
	return out
}
