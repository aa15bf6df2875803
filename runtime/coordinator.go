// Package runtime holds the transfer pipeline core: the admission queue,
// the single-worker processing loop, the pause/resume control protocol and
// progress throttling. It coordinates collaborators without containing any
// storage or transport logic of its own.
package runtime

import (
	"bytes"
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"courier-lab/contract"
	"courier-lab/domain"
	"courier-lab/errors"
	"courier-lab/infrastructure/storage"
	"courier-lab/observability"
)

// SubmitRequest is one inbound transfer submission. Authorization happens
// before admission; Requester is only used to address status text.
type SubmitRequest struct {
	Name        string
	ContentType string
	Size        int64
	Requester   string
	Handle      domain.StatusHandle
	Source      domain.PayloadSource
}

// Coordinator owns the job lifecycle end to end: admission, the worker
// activation that processes jobs strictly one at a time in submission
// order, throttled progress notification, and the operator pause protocol.
//
// The single-worker invariant is structural: a capacity-1 slot channel is
// the only way to start an activation. Admission, drain and active-job
// cancellation all happen under one mutex, so no submission can slip in
// between a pause draining the queue and the active job being cancelled.
type Coordinator struct {
	mu           sync.Mutex
	paused       atomic.Bool
	queue        *Queue
	slot         chan struct{}
	activeCancel context.CancelFunc
	baseCtx      context.Context
	wg           sync.WaitGroup

	notifier contract.Notifier
	backend  contract.TransferBackend
	archive  storage.ITransferRepository
	throttle *Throttler
	stats    *observability.PipelineStats
	log      *slog.Logger
}

func NewCoordinator(
	log *slog.Logger,
	notifier contract.Notifier,
	backend contract.TransferBackend,
	archive storage.ITransferRepository,
	throttle *Throttler,
	stats *observability.PipelineStats,
) *Coordinator {
	return &Coordinator{
		queue:    NewQueue(),
		slot:     make(chan struct{}, 1),
		notifier: notifier,
		backend:  backend,
		archive:  archive,
		throttle: throttle,
		stats:    stats,
		log:      log,
	}
}

// Start pins the context that worker activations derive from. Submissions
// before Start fall back to context.Background().
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseCtx = ctx
}

// Shutdown waits for the in-flight activation, if any, to finish.
func (c *Coordinator) Shutdown() {
	c.wg.Wait()
}

// Submit admits a request into the queue, or refuses it with ErrPaused
// while an operator pause is in effect. On first admission while the
// worker is idle, an activation starts; a running activation is never
// doubled.
func (c *Coordinator) Submit(ctx context.Context, req SubmitRequest) (domain.JobID, error) {
	if req.Source == nil {
		return "", errors.ErrEmptyPayload
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.paused.Load() {
		c.stats.IncrRejected()
		return "", errors.ErrPaused
	}

	job := domain.NewJob(req.Name, req.ContentType, req.Size, req.Requester, req.Handle, req.Source)
	c.queue.Enqueue(job)
	c.stats.IncrSubmitted()
	c.log.Info("Job admitted", "job", job.ID, "name", job.Name, "requester", job.Requester)

	c.tryActivate()

	if position, ok := c.queue.PositionOf(job.ID); ok {
		c.notify(ctx, job.Handle, fmt.Sprintf("Queued, position in line: %d", position))
	}
	return job.ID, nil
}

// Pause halts the pipeline as one atomic action: admission is closed, the
// queue is drained with every drained job cancelled and notified, and the
// active transfer (if any) is signalled to abort. Returns the drained
// count, not counting the active job. Idempotent.
func (c *Coordinator) Pause(ctx context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.paused.Store(true)
	drained := c.queue.DrainAll()
	for _, job := range drained {
		c.terminate(job, domain.Cancelled, "", errors.ErrTransferCancelled.Error())
		c.notify(ctx, job.Handle, "Cancelled: the courier was paused by an operator before this transfer started")
		c.stats.IncrCancelled(1)
	}
	if c.activeCancel != nil {
		c.activeCancel()
	}
	c.log.Info("Pipeline paused", "drained", len(drained))
	return len(drained)
}

// Resume reopens admission. The worker restarts naturally on the next
// successful submission; nothing is replayed.
func (c *Coordinator) Resume() {
	c.paused.Store(false)
	c.log.Info("Pipeline resumed")
}

func (c *Coordinator) Paused() bool {
	return c.paused.Load()
}

func (c *Coordinator) QueueLen() int {
	return c.queue.Len()
}

// PositionOf reports a queued job's 1-based place in line.
func (c *Coordinator) PositionOf(id domain.JobID) (int, bool) {
	return c.queue.PositionOf(id)
}

// tryActivate starts a worker activation when the slot is free.
// Callers must hold c.mu.
func (c *Coordinator) tryActivate() {
	select {
	case c.slot <- struct{}{}:
		c.wg.Add(1)
		go c.activation()
	default:
	}
}

// activation is the single sequential worker: dequeue the head, execute it
// to a terminal state, republish positions, repeat until the queue is
// empty or a pause intervenes. Operator cancellation of the in-flight job
// ends the activation outright; the pause controller has already drained
// the rest.
func (c *Coordinator) activation() {
	defer c.wg.Done()
	defer func() { <-c.slot }()

	for {
		c.mu.Lock()
		if c.paused.Load() {
			c.mu.Unlock()
			return
		}
		job, ok := c.queue.DequeueHead()
		if !ok {
			c.mu.Unlock()
			return
		}
		base := c.baseCtx
		if base == nil {
			base = context.Background()
		}
		jobCtx, cancel := context.WithCancel(base)
		c.activeCancel = cancel
		c.mu.Unlock()

		cancelled := c.execute(jobCtx, job)
		cancel()

		c.mu.Lock()
		c.activeCancel = nil
		c.republishPositions(context.Background())
		c.mu.Unlock()

		if cancelled {
			return
		}
	}
}

type transferResult struct {
	destination string
	err         error
}

// execute drives one job through Downloading and Uploading to exactly one
// terminal state. It never lets an error escape: even a panic marks the
// job Failed and leaves the loop ready for the next submission.
func (c *Coordinator) execute(ctx context.Context, job *domain.Job) (cancelled bool) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("Job execution panicked", "job", job.ID, "panic", r)
			c.throttle.Forget(job.Handle)
			c.terminate(job, domain.Failed, "", fmt.Sprintf("internal error: %v", r))
			c.notify(ctx, job.Handle, fmt.Sprintf("Transfer failed: internal error while processing %s", job.Name))
			c.stats.IncrFailed()
			cancelled = false
		}
	}()

	job.Status = domain.Downloading
	c.notify(ctx, job.Handle, fmt.Sprintf("Downloading %s...", job.Name))

	data, err := job.Source.Fetch(ctx)
	if err != nil {
		if c.paused.Load() {
			c.throttle.Forget(job.Handle)
			c.terminate(job, domain.Cancelled, "", errors.ErrTransferCancelled.Error())
			c.notify(ctx, job.Handle, "Transfer stopped: cancelled by an operator pause")
			c.stats.IncrCancelled(1)
			return true
		}
		c.terminate(job, domain.Failed, "", err.Error())
		c.notify(ctx, job.Handle, fmt.Sprintf("Download failed: %v", err))
		c.stats.IncrFailed()
		return false
	}

	job.Status = domain.Uploading
	c.notify(ctx, job.Handle, fmt.Sprintf("Uploading %s (%s)...", job.Name, humanize.Bytes(uint64(len(data)))))

	// The transfer itself is long-running and blocking, so it runs in its
	// own goroutine; progress comes back over a channel and this loop owns
	// every throttling and notification decision.
	progress := make(chan float64, 8)
	results := make(chan transferResult, 1)
	go func() {
		destination, transferErr := c.backend.Transfer(ctx, domain.TransferRequest{
			Source:      bytes.NewReader(data),
			Name:        job.Name,
			ContentType: job.ContentType,
			Size:        int64(len(data)),
			Progress:    progress,
			Cancelled:   c.paused.Load,
		})
		results <- transferResult{destination: destination, err: transferErr}
	}()

	for {
		select {
		case fraction := <-progress:
			if c.throttle.Allow(job.Handle) {
				c.notify(ctx, job.Handle, progressLine(job.Name, fraction))
			}
		case result := <-results:
			// The terminal notification always goes out, throttled or not.
			c.throttle.Forget(job.Handle)
			return c.conclude(ctx, job, result, int64(len(data)))
		}
	}
}

// conclude maps the transfer outcome onto the job's terminal state.
// A context-cancellation error during a pause is the pause: backends that
// honor the job context bail out with ctx.Err() before their next
// cancellation poll, and that must not read as an upload failure.
func (c *Coordinator) conclude(ctx context.Context, job *domain.Job, result transferResult, size int64) bool {
	switch {
	case result.err == nil:
		c.terminate(job, domain.Completed, result.destination, "")
		c.notify(ctx, job.Handle, fmt.Sprintf("Upload complete: %s stored as %s", job.Name, result.destination))
		c.stats.IncrCompleted()
		c.stats.AddBytesMoved(size)
		return false

	case goerrors.Is(result.err, errors.ErrTransferCancelled),
		goerrors.Is(result.err, context.Canceled) && c.paused.Load():
		c.terminate(job, domain.Cancelled, "", errors.ErrTransferCancelled.Error())
		c.notify(ctx, job.Handle, "Transfer stopped: cancelled by an operator pause")
		c.stats.IncrCancelled(1)
		return true

	case goerrors.Is(result.err, errors.ErrBackendAuth):
		c.terminate(job, domain.Failed, "", result.err.Error())
		c.notify(ctx, job.Handle, fmt.Sprintf(
			"Upload failed: %v. Ask an operator to refresh the object store credentials.", result.err))
		c.stats.IncrFailed()
		return false

	default:
		c.terminate(job, domain.Failed, "", result.err.Error())
		c.notify(ctx, job.Handle, fmt.Sprintf("Upload failed: %v", result.err))
		c.stats.IncrFailed()
		return false
	}
}

// terminate moves a job into its terminal state, releases its payload and
// archives it. Archive failures are logged, never escalated.
func (c *Coordinator) terminate(job *domain.Job, status domain.Status, destination, reason string) {
	job.Status = status
	job.Destination = destination
	job.Reason = reason
	job.FinishedAt = time.Now().UTC()
	if job.Source != nil {
		if err := job.Source.Dispose(); err != nil {
			c.log.Debug("Payload dispose failed", "job", job.ID, "error", err)
		}
	}
	if err := c.archive.Record(job); err != nil {
		c.log.Warn("Failed to archive terminal job", "job", job.ID, "error", err)
	}
}

// republishPositions pushes each remaining job's 1-based position to its
// status handle, best-effort. Callers must hold c.mu so same-handle writes
// stay ordered with admission notifications.
func (c *Coordinator) republishPositions(ctx context.Context) {
	for i, job := range c.queue.Snapshot() {
		c.notify(ctx, job.Handle, fmt.Sprintf("Queued, position in line: %d", i+1))
	}
}

func (c *Coordinator) notify(ctx context.Context, handle domain.StatusHandle, text string) {
	if err := c.notifier.Notify(ctx, handle, text); err != nil {
		c.log.Debug("Status notification dropped", "handle", handle, "error", err)
	}
}

func progressLine(name string, fraction float64) string {
	percent := int(fraction * 100)
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent / 10
	bar := strings.Repeat("█", filled) + strings.Repeat("░", 10-filled)
	return fmt.Sprintf("Uploading %s [%s] %d%%", name, bar, percent)
}
