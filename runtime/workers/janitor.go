package workers

import (
	"context"
	"log/slog"
	"time"

	"courier-lab/infrastructure/storage"
)

// JanitorWorker periodically purges archive records older than the
// retention window.
type JanitorWorker struct {
	log       *slog.Logger
	archive   storage.ITransferRepository
	interval  time.Duration
	retention time.Duration
}

func NewJanitorWorker(
	log *slog.Logger,
	archive storage.ITransferRepository,
	interval, retention time.Duration,
) *JanitorWorker {
	return &JanitorWorker{log: log, archive: archive, interval: interval, retention: retention}
}

func (w *JanitorWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-w.retention)
			purged, err := w.archive.PurgeOlderThan(cutoff)
			if err != nil {
				w.log.Error("Archive purge failed", "error", err)
				continue
			}
			if purged > 0 {
				w.log.Info("Archive purged", "records", purged, "cutoff", cutoff)
			}
		}
	}
}
