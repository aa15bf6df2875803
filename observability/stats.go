package observability

import (
	"sync/atomic"
)

// PipelineSnapshot aggregates the pipeline counters for the stats endpoint
// and the heartbeat log.
type PipelineSnapshot struct {
	Submitted  uint64 `json:"submitted"`
	Rejected   uint64 `json:"rejected"`
	Completed  uint64 `json:"completed"`
	Failed     uint64 `json:"failed"`
	Cancelled  uint64 `json:"cancelled"`
	BytesMoved uint64 `json:"bytes_moved"`
	QueueSize  int    `json:"queue_size"`
	Paused     bool   `json:"paused"`
}

// PipelineStats tracks transfer pipeline counters with atomics.
// Safe for concurrent use.
type PipelineStats struct {
	submitted  atomic.Uint64
	rejected   atomic.Uint64
	completed  atomic.Uint64
	failed     atomic.Uint64
	cancelled  atomic.Uint64
	bytesMoved atomic.Uint64
}

func NewPipelineStats() *PipelineStats {
	return &PipelineStats{}
}

func (p *PipelineStats) IncrSubmitted() { p.submitted.Add(1) }
func (p *PipelineStats) IncrRejected()  { p.rejected.Add(1) }
func (p *PipelineStats) IncrCompleted() { p.completed.Add(1) }
func (p *PipelineStats) IncrFailed()    { p.failed.Add(1) }

func (p *PipelineStats) IncrCancelled(n int) {
	if n > 0 {
		p.cancelled.Add(uint64(n))
	}
}

func (p *PipelineStats) AddBytesMoved(n int64) {
	if n > 0 {
		p.bytesMoved.Add(uint64(n))
	}
}

func (p *PipelineStats) Snapshot(queueSize int, paused bool) PipelineSnapshot {
	return PipelineSnapshot{
		Submitted:  p.submitted.Load(),
		Rejected:   p.rejected.Load(),
		Completed:  p.completed.Load(),
		Failed:     p.failed.Load(),
		Cancelled:  p.cancelled.Load(),
		BytesMoved: p.bytesMoved.Load(),
		QueueSize:  queueSize,
		Paused:     paused,
	}
}
