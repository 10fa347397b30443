package sync

import (
	"context"

	"go.uber.org/zap"

	"github.com/peakform/trainsync/internal/convert"
	"github.com/peakform/trainsync/internal/localstore"
	"github.com/peakform/trainsync/internal/model"
	"github.com/peakform/trainsync/internal/observability"
	"github.com/peakform/trainsync/internal/remote"
)

// MediaResolver advances a record's attachment state machines before its
// document is written. Implemented by media.Pipeline.
type MediaResolver interface {
	Process(ctx context.Context, owner string, rec *model.Record)
}

// ActivityProjector derives the feed projection of a record. Implemented by
// social.Projector.
type ActivityProjector interface {
	Project(ctx context.Context, owner string, rec *model.Record, profile *model.Profile) error
}

// Uploader pushes local records to their remote collections as merge writes
// keyed by sync identifier, then triggers the feed projection.
type Uploader struct {
	store     localstore.Store
	docs      remote.Documents
	media     MediaResolver
	projector ActivityProjector
	logger    *zap.Logger
}

// NewUploader constructs the uploader.
func NewUploader(store localstore.Store, docs remote.Documents, media MediaResolver, projector ActivityProjector, logger *zap.Logger) *Uploader {
	return &Uploader{store: store, docs: docs, media: media, projector: projector, logger: logger}
}

// Upload writes every identified record of a kind. Records without an
// identifier are skipped silently; they gain one on the next cycle's
// identifier pass. Per-record failures are logged and do not stop the batch;
// media state transitions are persisted in one flush at the end.
func (u *Uploader) Upload(ctx context.Context, owner string, profile *model.Profile, kind model.Kind) error {
	recs, err := u.store.List(ctx, kind)
	if err != nil {
		return err
	}

	for _, rec := range recs {
		if !rec.HasSyncID() {
			continue
		}
		u.media.Process(ctx, owner, rec)

		doc := convert.ToDocumentRecord(owner, rec)
		if err := u.docs.MergeRecord(ctx, owner, string(kind), rec.SyncID, doc); err != nil {
			u.logger.Warn("record upload failed",
				zap.String("kind", string(kind)), zap.String("record", rec.SyncID), zap.Error(err))
			continue
		}
		observability.RecordUploaded(string(kind))

		if err := u.projector.Project(ctx, owner, rec, profile); err != nil {
			u.logger.Warn("activity projection failed",
				zap.String("record", rec.SyncID), zap.Error(err))
		}
	}

	return u.store.Flush(ctx)
}
