// Package convert maps domain entities to wire DTOs and back.
package convert

import (
	"time"

	"github.com/peakform/trainsync/internal/document"
	"github.com/peakform/trainsync/internal/model"
)

// --- Record (local -> remote) ---

// ToDocumentRecord builds the remote representation of a local record.
// Media descriptors carry only resolved remote locations; attachments that
// have not been uploaded yet are omitted.
func ToDocumentRecord(owner string, rec *model.Record) document.Record {
	doc := document.Record{
		V:     document.SchemaVersion,
		Owner: owner,
		Kind:  string(rec.Kind),
		Date:  rec.Date.UTC(),
	}
	if rec.Training != nil {
		doc.Training = toDocumentTraining(rec.Training)
	}
	if rec.Run != nil {
		doc.Run = toDocumentRun(rec.Run)
	}
	if rec.Benchmark != nil {
		doc.Benchmark = &document.Benchmark{Name: rec.Benchmark.Name, Target: rec.Benchmark.Target}
	}
	if rec.Weight != nil {
		doc.Weight = &document.Weight{Kg: rec.Weight.Kg}
	}
	for _, m := range rec.Media {
		if !m.Uploaded() {
			continue
		}
		doc.Media = append(doc.Media, document.Media{
			ID:        m.ID,
			Kind:      string(m.Kind),
			Inline:    m.Remote.Inline,
			URL:       m.Remote.URL,
			Path:      m.Remote.Path,
			ThumbURL:  m.ThumbURL,
			ThumbPath: m.ThumbPath,
		})
	}
	return doc
}

func toDocumentTraining(t *model.TrainingData) *document.Training {
	out := &document.Training{
		Title:       t.Title,
		DurationSec: t.Duration.Seconds(),
		Notes:       t.Notes,
	}
	for _, ex := range t.Exercises {
		dex := document.Exercise{Name: ex.Name}
		for _, s := range ex.Sets {
			dex.Sets = append(dex.Sets, document.Set{Reps: s.Reps, WeightKg: s.WeightKg})
		}
		out.Exercises = append(out.Exercises, dex)
	}
	return out
}

func toDocumentRun(r *model.RunData) *document.Run {
	return &document.Run{
		DistanceM:   r.DistanceMeters,
		DurationSec: r.Duration.Seconds(),
		Splits:      append([]float64(nil), r.SplitsSeconds...),
		Notes:       r.Notes,
	}
}

// --- Record (remote -> local) ---

// FromDocumentRecord reconstructs the full local entity graph from a remote
// document, including nested exercise entries and media descriptors. Media
// arrives already uploaded: descriptors become attachments in the uploaded
// state with no local payload bytes.
func FromDocumentRecord(syncID string, doc document.Record) *model.Record {
	rec := &model.Record{
		SyncID: syncID,
		Kind:   model.Kind(doc.Kind),
		Date:   doc.Date,
	}
	if doc.Training != nil {
		rec.Training = fromDocumentTraining(doc.Training)
	}
	if doc.Run != nil {
		rec.Run = fromDocumentRun(doc.Run)
	}
	if doc.Benchmark != nil {
		rec.Benchmark = &model.BenchmarkData{Name: doc.Benchmark.Name, Target: doc.Benchmark.Target}
	}
	if doc.Weight != nil {
		rec.Weight = &model.WeightData{Kg: doc.Weight.Kg}
	}
	for _, md := range doc.Media {
		rec.Media = append(rec.Media, fromDocumentMedia(md))
	}
	return rec
}

func fromDocumentTraining(t *document.Training) *model.TrainingData {
	out := &model.TrainingData{
		Title:    t.Title,
		Duration: time.Duration(t.DurationSec * float64(time.Second)),
		Notes:    t.Notes,
	}
	for _, ex := range t.Exercises {
		mex := model.Exercise{Name: ex.Name}
		for _, s := range ex.Sets {
			mex.Sets = append(mex.Sets, model.Set{Reps: s.Reps, WeightKg: s.WeightKg})
		}
		out.Exercises = append(out.Exercises, mex)
	}
	return out
}

func fromDocumentRun(r *document.Run) *model.RunData {
	return &model.RunData{
		DistanceMeters: r.DistanceM,
		Duration:       time.Duration(r.DurationSec * float64(time.Second)),
		SplitsSeconds:  append([]float64(nil), r.Splits...),
		Notes:          r.Notes,
	}
}

func fromDocumentMedia(md document.Media) *model.MediaAttachment {
	return &model.MediaAttachment{
		ID:    md.ID,
		Kind:  model.MediaKind(md.Kind),
		State: model.UploadUploaded,
		Remote: &model.MediaLocation{
			Inline: md.Inline,
			URL:    md.URL,
			Path:   md.Path,
		},
		ThumbURL:  md.ThumbURL,
		ThumbPath: md.ThumbPath,
	}
}

// --- Profile ---

// ToDocumentProfile builds the users/{uid} document with lower-cased shadow
// fields for case-insensitive search.
func ToDocumentProfile(p model.Profile, lower func(string) string) document.Profile {
	return document.Profile{
		V:             document.SchemaVersion,
		UserID:        p.UserID,
		Username:      p.Username,
		DisplayName:   p.DisplayName,
		UsernameLC:    lower(p.Username),
		DisplayNameLC: lower(p.DisplayName),
		Avatar:        p.AvatarInline,
	}
}

// FromDocumentProfile unwraps a profile document into the domain snapshot.
func FromDocumentProfile(doc document.Profile) model.Profile {
	return model.Profile{
		UserID:       doc.UserID,
		Username:     doc.Username,
		DisplayName:  doc.DisplayName,
		AvatarInline: doc.Avatar,
	}
}
