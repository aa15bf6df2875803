package gateway

import (
	"context"
	"log/slog"
	"time"
)

// RetentionWorker periodically evicts stale job handles and their status
// lines from the gateway, on the same window the archive janitor uses.
type RetentionWorker struct {
	log      *slog.Logger
	server   *Server
	interval time.Duration
	ttl      time.Duration
}

func NewRetentionWorker(log *slog.Logger, server *Server, interval, ttl time.Duration) *RetentionWorker {
	return &RetentionWorker{log: log, server: server, interval: interval, ttl: ttl}
}

func (w *RetentionWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if evicted := w.server.EvictStale(w.ttl); evicted > 0 {
				w.log.Info("Stale status handles evicted", "count", evicted)
			}
		}
	}
}
