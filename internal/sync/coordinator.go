package sync

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/peakform/trainsync/internal/convert"
	"github.com/peakform/trainsync/internal/model"
	"github.com/peakform/trainsync/internal/observability"
	"github.com/peakform/trainsync/internal/remote"
)

// Coordinator runs one full cycle per trigger: ensure-identifiers,
// download/merge, dedup, upload (projecting activities). A single in-flight
// guard makes a concurrent trigger a silent no-op: triggers may be lost,
// sync is best-effort, not guaranteed-eventual.
type Coordinator struct {
	ids      *IdentifierManager
	dedup    *Deduplicator
	merger   *Merger
	uploader *Uploader
	docs     remote.Documents
	logger   *zap.Logger

	inFlight atomic.Bool
}

// NewCoordinator constructs the coordinator.
func NewCoordinator(ids *IdentifierManager, dedup *Deduplicator, merger *Merger, uploader *Uploader, docs remote.Documents, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		ids:      ids,
		dedup:    dedup,
		merger:   merger,
		uploader: uploader,
		docs:     docs,
		logger:   logger,
	}
}

// RunCycle executes one full sync cycle for the authenticated user. Returns
// false when the trigger was dropped (no user, or a cycle is already
// running). Every stage failure is logged and counted; later stages still
// execute with whatever state exists.
func (c *Coordinator) RunCycle(ctx context.Context, owner string) bool {
	if owner == "" {
		return false // no user, no sync
	}
	if !c.inFlight.CompareAndSwap(false, true) {
		return false
	}
	defer c.inFlight.Store(false)

	start := time.Now()
	c.logger.Info("sync cycle start", zap.String("owner", owner))

	if _, err := c.ids.Ensure(ctx); err != nil {
		observability.RecordStageError("identifiers")
		c.logger.Error("identifier stage failed", zap.Error(err))
	}

	for _, kind := range model.Kinds {
		if _, err := c.merger.Download(ctx, owner, kind); err != nil {
			observability.RecordStageError("download")
			c.logger.Warn("download stage failed",
				zap.String("kind", string(kind)), zap.Error(err))
		}
	}

	for _, kind := range model.Kinds {
		if _, err := c.dedup.Run(ctx, kind); err != nil {
			observability.RecordStageError("dedup")
			c.logger.Warn("dedup stage failed",
				zap.String("kind", string(kind)), zap.Error(err))
		}
	}

	profile := c.ownProfile(ctx, owner)
	for _, kind := range model.Kinds {
		if err := c.uploader.Upload(ctx, owner, profile, kind); err != nil {
			observability.RecordStageError("upload")
			c.logger.Warn("upload stage failed",
				zap.String("kind", string(kind)), zap.Error(err))
		}
	}

	observability.RecordCycle(time.Now())
	c.logger.Info("sync cycle done",
		zap.String("owner", owner), zap.Duration("took", time.Since(start)))
	return true
}

// ownProfile fetches the owner's profile snapshot for projection enrichment.
// Missing profiles are fine; projections then carry no snapshot.
func (c *Coordinator) ownProfile(ctx context.Context, owner string) *model.Profile {
	docs, err := c.docs.Profiles(ctx, []string{owner})
	if err != nil {
		c.logger.Warn("profile fetch failed", zap.Error(err))
		return nil
	}
	for _, d := range docs {
		if d.UserID == owner {
			p := convert.FromDocumentProfile(d)
			return &p
		}
	}
	return nil
}
