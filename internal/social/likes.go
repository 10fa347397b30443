package social

import (
	"context"

	"github.com/peakform/trainsync/internal/document"
)

// Likes is the merged like aggregate: activity id to liker ids. Every
// watched activity has an entry, liked or not.
type Likes map[string][]string

// WatchLikes subscribes to like changes for the given activities through
// chunked subscriptions. A single aggregator goroutine owns the per-chunk
// state; on every chunk update the callback receives the latest FULL merged
// aggregate, not a diff. The callback runs on the aggregator goroutine and
// must not block for long. Watching stops when ctx is done.
func (s *Service) WatchLikes(ctx context.Context, activityIDs []string, fn func(Likes)) error {
	ids := append([]string(nil), activityIDs...)
	parts := chunks(ids)

	type update struct {
		idx   int
		likes []document.Like
	}
	updates := make(chan update)

	for i, part := range parts {
		ch, err := s.docs.WatchLikes(ctx, part)
		if err != nil {
			return err
		}
		go func(idx int, ch <-chan []document.Like) {
			for likes := range ch {
				select {
				case updates <- update{idx: idx, likes: likes}:
				case <-ctx.Done():
					return
				}
			}
		}(i, ch)
	}

	go func() {
		chunkState := make(map[int][]document.Like, len(parts))
		for {
			select {
			case <-ctx.Done():
				return
			case u := <-updates:
				chunkState[u.idx] = u.likes
				merged := make(Likes, len(ids))
				for _, id := range ids {
					merged[id] = nil
				}
				for _, likes := range chunkState {
					for _, l := range likes {
						merged[l.ActivityID] = append(merged[l.ActivityID], l.UserID)
					}
				}
				fn(merged)
			}
		}
	}()
	return nil
}
