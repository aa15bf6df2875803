package runtime

import (
	"sync"

	"courier-lab/domain"
)

// Queue is the admission FIFO: insertion order is processing order.
// Unbounded, mutex-guarded; mutated by enqueue (submission), pop-front
// (worker loop) and drain (pause controller).
type Queue struct {
	mu   sync.Mutex
	jobs []*domain.Job
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Enqueue(job *domain.Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
}

// DequeueHead pops the oldest job, or reports an empty queue.
func (q *Queue) DequeueHead() (*domain.Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return nil, false
	}
	head := q.jobs[0]
	q.jobs = q.jobs[1:]
	return head, true
}

// DrainAll atomically removes and returns every queued job in order.
func (q *Queue) DrainAll() []*domain.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	drained := q.jobs
	q.jobs = nil
	return drained
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Snapshot returns the queued jobs in order, for position republishing.
func (q *Queue) Snapshot() []*domain.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	snapshot := make([]*domain.Job, len(q.jobs))
	copy(snapshot, q.jobs)
	return snapshot
}

// PositionOf reports a job's 1-based place in line. Eventually consistent
// with concurrent drains; absent jobs report false.
func (q *Queue) PositionOf(id domain.JobID) (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, job := range q.jobs {
		if job.ID == id {
			return i + 1, true
		}
	}
	return 0, false
}
