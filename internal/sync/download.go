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

// Merger pulls the remote collection and inserts every document the local
// store does not yet contain.
type Merger struct {
	store  localstore.Store
	docs   remote.Documents
	logger *zap.Logger
}

// NewMerger constructs the merger.
func NewMerger(store localstore.Store, docs remote.Documents, logger *zap.Logger) *Merger {
	return &Merger{store: store, docs: docs, logger: logger}
}

// Download merges the owner's remote collection into the local store and
// returns the resulting local set. An empty remote returns the local set
// unchanged: a remote that simply has not synced yet must never wipe
// local-only offline data. A persistence failure is logged and the pre-merge
// set is returned; sync degrades instead of failing the cycle.
func (m *Merger) Download(ctx context.Context, owner string, kind model.Kind) ([]*model.Record, error) {
	local, err := m.store.List(ctx, kind)
	if err != nil {
		return nil, err
	}

	docs, err := m.docs.ListRecords(ctx, owner, string(kind))
	if err != nil {
		return local, err
	}
	if len(docs) == 0 {
		return local, nil
	}

	have := make(map[string]struct{}, len(local))
	for _, rec := range local {
		if rec.HasSyncID() {
			have[rec.SyncID] = struct{}{}
		}
	}

	inserted := 0
	for syncID, doc := range docs {
		if _, ok := have[syncID]; ok {
			continue
		}
		rec := convert.FromDocumentRecord(syncID, doc)
		rec.Kind = kind // the collection, not the document body, is authoritative
		if err := m.store.Insert(ctx, rec); err != nil {
			return local, err
		}
		inserted++
	}
	if inserted == 0 {
		return local, nil
	}

	if err := m.store.Flush(ctx); err != nil {
		m.logger.Error("merge persist failed, keeping pre-merge set",
			zap.String("kind", string(kind)), zap.Error(err))
		return local, nil
	}

	observability.RecordMerged(string(kind), inserted)
	m.logger.Info("merged remote records",
		zap.String("kind", string(kind)), zap.Int("count", inserted))
	return m.store.List(ctx, kind)
}
