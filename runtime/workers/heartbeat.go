package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"

	"courier-lab/observability"
)

// PipelineProbe exposes the live pipeline numbers the heartbeat reports.
type PipelineProbe interface {
	QueueLen() int
	Paused() bool
}

// HeartbeatWorker logs process self-stats (RSS, CPU) and pipeline counters
// at a fixed interval, giving operators a pulse without a metrics stack.
type HeartbeatWorker struct {
	log      *slog.Logger
	interval time.Duration
	stats    *observability.PipelineStats
	probe    PipelineProbe
}

func NewHeartbeatWorker(
	log *slog.Logger,
	interval time.Duration,
	stats *observability.PipelineStats,
	probe PipelineProbe,
) *HeartbeatWorker {
	return &HeartbeatWorker{log: log, interval: interval, stats: stats, probe: probe}
}

func (w *HeartbeatWorker) Run(ctx context.Context) error {
	w.log.Info("Starting courier heartbeat worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			rss, cpu, err := selfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}

			snapshot := w.stats.Snapshot(w.probe.QueueLen(), w.probe.Paused())
			w.log.Info("heartbeat",
				"ram_bytes", rss,
				"cpu_percent", cpu,
				"queue_size", snapshot.QueueSize,
				"paused", snapshot.Paused,
				"submitted", snapshot.Submitted,
				"completed", snapshot.Completed,
				"failed", snapshot.Failed,
				"cancelled", snapshot.Cancelled,
				"bytes_moved", snapshot.BytesMoved,
			)
		}
	}
}

func selfStats(p *process.Process) (uint64, float64, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpuPercent, nil
}
