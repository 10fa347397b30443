package sync

import (
	"context"

	"go.uber.org/zap"

	"github.com/peakform/trainsync/internal/localstore"
	"github.com/peakform/trainsync/internal/model"
)

// Deduplicator removes local records that share a sync identifier. Duplicates
// appear when a download-merge races a restore or a concurrent merge.
type Deduplicator struct {
	store  localstore.Store
	logger *zap.Logger
}

// NewDeduplicator constructs the deduplicator.
func NewDeduplicator(store localstore.Store, logger *zap.Logger) *Deduplicator {
	return &Deduplicator{store: store, logger: logger}
}

// Run deletes every record of a kind whose identifier was already seen,
// keeping the first occurrence. Records without identifiers are ignored.
// A single persistence commit happens if anything was deleted.
func (d *Deduplicator) Run(ctx context.Context, kind model.Kind) (int, error) {
	recs, err := d.store.List(ctx, kind)
	if err != nil {
		return 0, err
	}

	seen := make(map[string]struct{}, len(recs))
	removed := 0
	for _, rec := range recs {
		if !rec.HasSyncID() {
			continue
		}
		if _, dup := seen[rec.SyncID]; dup {
			if err := d.store.Delete(ctx, kind, rec.LocalID); err != nil {
				return removed, err
			}
			removed++
			continue
		}
		seen[rec.SyncID] = struct{}{}
	}

	if removed == 0 {
		return 0, nil
	}
	if err := d.store.Flush(ctx); err != nil {
		return removed, err
	}
	d.logger.Info("removed duplicate records",
		zap.String("kind", string(kind)), zap.Int("count", removed))
	return removed, nil
}
