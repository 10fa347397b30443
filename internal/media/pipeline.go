// Package media implements the per-attachment upload pipeline: a state
// machine that inlines small images into the record document and pushes
// videos (plus their thumbnails) to blob storage.
package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/peakform/trainsync/internal/document"
	"github.com/peakform/trainsync/internal/errs"
	"github.com/peakform/trainsync/internal/localstore"
	"github.com/peakform/trainsync/internal/model"
	"github.com/peakform/trainsync/internal/observability"
	"github.com/peakform/trainsync/internal/remote"
)

// Inline ceilings. Raw image bytes above InlineRawCeiling are recompressed;
// an encoded payload above InlineEncodedCeiling is a terminal failure. The
// values are compatibility constants shared with other client platforms.
const (
	InlineRawCeiling     = 600_000
	InlineEncodedCeiling = 1_000_000
)

// Pipeline advances attachment state machines. Failed uploads are retried
// only through Retry; there is no automatic backoff.
type Pipeline struct {
	store  localstore.Store
	docs   remote.Documents
	blobs  remote.Blobs
	logger *zap.Logger

	// ceilings are fields so tests can exercise the failure paths with
	// small payloads.
	rawCeiling     int
	encodedCeiling int

	// mu serializes state transitions: the cycle path and the immediate
	// per-item path may race on the same attachment.
	mu sync.Mutex
}

// New constructs a pipeline with the production ceilings.
func New(store localstore.Store, docs remote.Documents, blobs remote.Blobs, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		store:          store,
		docs:           docs,
		blobs:          blobs,
		logger:         logger,
		rawCeiling:     InlineRawCeiling,
		encodedCeiling: InlineEncodedCeiling,
	}
}

// SetCeilings overrides the inline ceilings (tests only).
func (p *Pipeline) SetCeilings(raw, encoded int) {
	p.rawCeiling = raw
	p.encodedCeiling = encoded
}

// Process resolves every attachment of a record. Already-uploaded items are
// no-op re-confirmations; per-item failures end in the failed state and do
// not abort the remaining attachments. The store is marked dirty but not
// flushed; the caller owns the save.
func (p *Pipeline) Process(ctx context.Context, owner string, rec *model.Record) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range rec.Media {
		p.process(ctx, owner, rec, m)
	}
}

func (p *Pipeline) process(ctx context.Context, owner string, rec *model.Record, m *model.MediaAttachment) {
	switch {
	case m.Uploaded():
		return // idempotent re-confirmation
	case m.State == model.UploadFailed:
		return // waits for explicit retry
	}

	if len(m.Data) == 0 && m.Remote == nil {
		p.fail(rec, m, errs.ErrNoPayload.Error())
		return
	}

	m.MarkUploading()
	p.store.MarkDirty(rec)

	var (
		loc *model.MediaLocation
		err error
	)
	switch m.Kind {
	case model.MediaVideo:
		loc, err = p.uploadVideo(ctx, owner, rec, m)
	default:
		loc, err = p.inlineImage(m)
	}
	if err != nil {
		p.fail(rec, m, err.Error())
		return
	}

	m.MarkUploaded(loc)
	m.Data = nil
	m.Thumb = nil
	p.store.MarkDirty(rec)
	observability.RecordMediaOutcome("uploaded")
}

func (p *Pipeline) fail(rec *model.Record, m *model.MediaAttachment, msg string) {
	m.MarkFailed(msg)
	p.store.MarkDirty(rec)
	observability.RecordMediaOutcome("failed")
	p.logger.Warn("media upload failed",
		zap.String("media", m.ID), zap.String("kind", string(m.Kind)), zap.String("reason", msg))
}

// inlineImage recompresses the payload under the raw ceiling and encodes it
// into the record document instead of blob storage.
func (p *Pipeline) inlineImage(m *model.MediaAttachment) (*model.MediaLocation, error) {
	data, err := shrinkJPEG(m.Data, p.rawCeiling)
	if err != nil {
		return nil, err
	}
	encoded := base64.StdEncoding.EncodeToString(data)
	if len(encoded) > p.encodedCeiling {
		return nil, fmt.Errorf("%w: encoded %d chars over ceiling %d", errs.ErrMediaTooLarge, len(encoded), p.encodedCeiling)
	}
	return &model.MediaLocation{Inline: encoded}, nil
}

// uploadVideo stores the payload under a deterministic path and uploads the
// thumbnail as a side channel; a thumbnail failure is logged but does not
// fail the parent upload.
func (p *Pipeline) uploadVideo(ctx context.Context, owner string, rec *model.Record, m *model.MediaAttachment) (*model.MediaLocation, error) {
	path := BlobPath(owner, rec.Kind, rec.SyncID, m.ID, "mp4")
	url, err := p.blobs.Put(ctx, path, "video/mp4", m.Data)
	if err != nil {
		return nil, err
	}

	if len(m.Thumb) > 0 && m.ThumbURL == "" {
		tpath := ThumbPath(owner, rec.Kind, rec.SyncID, m.ID)
		turl, terr := p.blobs.Put(ctx, tpath, "image/jpeg", m.Thumb)
		if terr != nil {
			p.logger.Warn("thumbnail upload failed", zap.String("media", m.ID), zap.Error(terr))
		} else {
			m.ThumbURL = turl
			m.ThumbPath = tpath
		}
	}
	return &model.MediaLocation{URL: url, Path: path}, nil
}

// Retry re-enters the state machine for a failed attachment, flushes the
// transition and patches the remote record document.
func (p *Pipeline) Retry(ctx context.Context, owner string, rec *model.Record, mediaID string) error {
	m := rec.MediaByID(mediaID)
	if m == nil {
		return errs.ErrNotFound
	}
	p.mu.Lock()
	if m.State == model.UploadFailed {
		m.State = model.UploadPending
		m.UploadErr = nil
	}
	p.process(ctx, owner, rec, m)
	p.mu.Unlock()
	return p.finish(ctx, owner, rec)
}

// UploadImmediately advances one attachment outside the full sync cycle,
// flushes the store and patches the remote record document so the remote
// copy reflects the new location without waiting for the next cycle.
func (p *Pipeline) UploadImmediately(ctx context.Context, owner string, rec *model.Record, mediaID string) error {
	m := rec.MediaByID(mediaID)
	if m == nil {
		return errs.ErrNotFound
	}
	p.mu.Lock()
	p.process(ctx, owner, rec, m)
	p.mu.Unlock()
	return p.finish(ctx, owner, rec)
}

func (p *Pipeline) finish(ctx context.Context, owner string, rec *model.Record) error {
	if err := p.store.Flush(ctx); err != nil {
		p.logger.Error("media flush failed", zap.Error(err))
	}
	if !rec.HasSyncID() {
		return nil // record not synced yet; the next cycle uploads everything
	}
	patch := map[string]any{"media": mediaDescriptors(rec)}
	if err := p.docs.PatchRecord(ctx, owner, string(rec.Kind), rec.SyncID, patch); err != nil {
		return fmt.Errorf("patch record media: %w", err)
	}
	return nil
}

// Remove deletes an attachment: best-effort blob cleanup (main object, then
// thumbnail), then best-effort patches of the owning record document and its
// projected feed item. Each step's failure is logged independently and does
// not block the others.
func (p *Pipeline) Remove(ctx context.Context, owner string, rec *model.Record, mediaID string) {
	m := rec.MediaByID(mediaID)
	if m == nil {
		return
	}

	if m.Remote != nil && m.Remote.Path != "" {
		if err := p.blobs.Remove(ctx, m.Remote.Path); err != nil {
			p.logger.Warn("blob delete failed", zap.String("path", m.Remote.Path), zap.Error(err))
		}
	}
	if m.ThumbPath != "" {
		if err := p.blobs.Remove(ctx, m.ThumbPath); err != nil {
			p.logger.Warn("thumbnail delete failed", zap.String("path", m.ThumbPath), zap.Error(err))
		}
	}

	p.mu.Lock()
	for i, cur := range rec.Media {
		if cur.ID == mediaID {
			rec.Media = append(rec.Media[:i:i], rec.Media[i+1:]...)
			break
		}
	}
	p.store.MarkDirty(rec)
	p.mu.Unlock()
	if err := p.store.Flush(ctx); err != nil {
		p.logger.Error("media flush failed", zap.Error(err))
	}

	if !rec.HasSyncID() {
		return
	}
	descriptors := mediaDescriptors(rec)
	if err := p.docs.PatchRecord(ctx, owner, string(rec.Kind), rec.SyncID, map[string]any{"media": descriptors}); err != nil {
		p.logger.Warn("record media patch failed", zap.String("record", rec.SyncID), zap.Error(err))
	}
	if kind := model.ActivityKind(rec.Kind); kind != "" {
		id := document.ActivityID(kind, rec.SyncID)
		patch := map[string]any{"payload": map[string]any{"media": descriptors}}
		if err := p.docs.PatchActivity(ctx, id, patch); err != nil {
			p.logger.Warn("activity media patch failed", zap.String("activity", id), zap.Error(err))
		}
	}
}

// mediaDescriptors lists the record's resolved media for document patches.
func mediaDescriptors(rec *model.Record) []document.Media {
	out := make([]document.Media, 0, len(rec.Media))
	for _, m := range rec.Media {
		if !m.Uploaded() {
			continue
		}
		out = append(out, document.Media{
			ID:        m.ID,
			Kind:      string(m.Kind),
			Inline:    m.Remote.Inline,
			URL:       m.Remote.URL,
			Path:      m.Remote.Path,
			ThumbURL:  m.ThumbURL,
			ThumbPath: m.ThumbPath,
		})
	}
	return out
}

// BlobPath is the deterministic object path for a primary media payload.
func BlobPath(owner string, kind model.Kind, syncID, mediaID, ext string) string {
	return fmt.Sprintf("users/%s/%s/%s/%s.%s", owner, kind, syncID, mediaID, ext)
}

// ThumbPath is the object path of a video thumbnail.
func ThumbPath(owner string, kind model.Kind, syncID, mediaID string) string {
	return fmt.Sprintf("users/%s/%s/%s/%s_thumb.jpg", owner, kind, syncID, mediaID)
}
