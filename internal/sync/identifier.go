// Package sync implements the synchronization engine: identifier assignment,
// deduplication, download/merge, upload and the cycle coordinator.
package sync

import (
	"context"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/peakform/trainsync/internal/localstore"
	"github.com/peakform/trainsync/internal/model"
)

// IdentifierManager guarantees every local record has a stable sync
// identifier before any network operation touches it.
type IdentifierManager struct {
	store  localstore.Store
	logger *zap.Logger
}

// NewIdentifierManager constructs the manager.
func NewIdentifierManager(store localstore.Store, logger *zap.Logger) *IdentifierManager {
	return &IdentifierManager{store: store, logger: logger}
}

// Ensure assigns a fresh identifier to every record (of every kind) whose
// identifier is empty or whitespace-only, then persists once. Returns the
// number of assignments; a persistence failure is returned for logging but
// assignments stay in memory so the cycle can proceed.
func (m *IdentifierManager) Ensure(ctx context.Context) (int, error) {
	assigned := 0
	for _, kind := range model.Kinds {
		recs, err := m.store.List(ctx, kind)
		if err != nil {
			return assigned, err
		}
		for _, rec := range recs {
			if rec.HasSyncID() {
				continue
			}
			id, err := uuid.NewV4()
			if err != nil {
				return assigned, err
			}
			rec.SyncID = id.String()
			m.store.MarkDirty(rec)
			assigned++
		}
	}
	if assigned == 0 {
		return 0, nil
	}
	if err := m.store.Flush(ctx); err != nil {
		return assigned, err
	}
	m.logger.Info("assigned sync identifiers", zap.Int("count", assigned))
	return assigned, nil
}
