package catalog

import (
	"context"
	"log/slog"
	"time"
)

// Saver persists a full catalog snapshot. Implemented by the snapshot
// providers.
type Saver interface {
	Save(ws []Wallpaper) error
}

const (
	// persistDebounce coalesces bursts of mutations into one write.
	persistDebounce = 250 * time.Millisecond
	// persistMaxBackoff bounds the retry delay after a failed write.
	persistMaxBackoff = 30 * time.Second
)

// RunPersister serializes snapshot writes: it waits for dirty marks,
// debounces them, and writes the whole catalog through saver. A failed
// write is retried with exponential backoff and logged loudly, since
// catalog state diverges from disk until it succeeds. A final write is
// attempted on shutdown when unsaved changes remain.
func (s *Store) RunPersister(ctx context.Context, saver Saver) error {
	backoff := time.Second
	pending := false

	for {
		if !pending {
			select {
			case <-ctx.Done():
				return nil
			case <-s.dirty:
				pending = true
			}
		}

		select {
		case <-ctx.Done():
			if err := saver.Save(s.All()); err != nil {
				s.logger.Error("catalog: final snapshot write failed",
					slog.String("error", err.Error()))
				return err
			}
			return nil
		case <-time.After(persistDebounce):
		}

		// Drain any mark that arrived during the debounce window; the
		// snapshot below observes those mutations anyway.
		select {
		case <-s.dirty:
		default:
		}

		if err := saver.Save(s.All()); err != nil {
			s.logger.Error("catalog: snapshot write failed, retrying",
				slog.String("error", err.Error()),
				slog.Duration("backoff", backoff))
			select {
			case <-ctx.Done():
				return err
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > persistMaxBackoff {
				backoff = persistMaxBackoff
			}
			continue
		}

		backoff = time.Second
		pending = false
		s.logger.Debug("catalog: snapshot written", slog.Int("records", s.Len()))
	}
}
