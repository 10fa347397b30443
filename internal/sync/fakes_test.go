package sync

import (
	"context"

	"github.com/peakform/trainsync/internal/document"
	"github.com/peakform/trainsync/internal/model"
	"github.com/peakform/trainsync/internal/remote"
)

// fakeDocs implements the document-database boundary over in-memory maps.
// Unset function hooks fall through to the default behaviour.
type fakeDocs struct {
	remote.Documents

	records  map[string]map[string]document.Record // collection -> syncID -> doc
	merged   []string                              // "collection/syncID" in call order
	listErr  error
	mergeErr error

	activities []document.ActivityProjection
	profiles   []document.Profile
}

var _ remote.Documents = (*fakeDocs)(nil)

func newFakeDocs() *fakeDocs {
	return &fakeDocs{records: make(map[string]map[string]document.Record)}
}

func (f *fakeDocs) put(collection, syncID string, doc document.Record) {
	if f.records[collection] == nil {
		f.records[collection] = make(map[string]document.Record)
	}
	f.records[collection][syncID] = doc
}

func (f *fakeDocs) ListRecords(_ context.Context, _, collection string) (map[string]document.Record, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make(map[string]document.Record, len(f.records[collection]))
	for id, doc := range f.records[collection] {
		out[id] = doc
	}
	return out, nil
}

func (f *fakeDocs) MergeRecord(_ context.Context, _, collection, syncID string, doc document.Record) error {
	if f.mergeErr != nil {
		return f.mergeErr
	}
	f.put(collection, syncID, doc)
	f.merged = append(f.merged, collection+"/"+syncID)
	return nil
}

func (f *fakeDocs) MergeActivity(_ context.Context, _ string, p document.ActivityProjection) error {
	f.activities = append(f.activities, p)
	return nil
}

func (f *fakeDocs) Profiles(context.Context, []string) ([]document.Profile, error) {
	return f.profiles, nil
}

// nopMedia satisfies the media hook without touching attachments.
type nopMedia struct{}

func (nopMedia) Process(context.Context, string, *model.Record) {}

// nopProjector records projected sync ids.
type nopProjector struct {
	projected []string
}

func (p *nopProjector) Project(_ context.Context, _ string, rec *model.Record, _ *model.Profile) error {
	p.projected = append(p.projected, rec.SyncID)
	return nil
}
