package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type JobID string

// StatusHandle addresses the outbound status channel of one submission.
// It is owned by the messaging front-end; the core only writes through it.
type StatusHandle string

type Status int

const (
	Queued Status = iota
	Downloading
	Uploading
	Completed
	Failed
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Queued:
		return "QUEUED"
	case Downloading:
		return "DOWNLOADING"
	case Uploading:
		return "UPLOADING"
	case Completed:
		return "COMPLETED"
	case Failed:
		return "FAILED"
	case Cancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether a job in this status is finished for good.
func (s Status) Terminal() bool {
	return s == Completed || s == Failed || s == Cancelled
}

// PayloadSource materializes the submitted bytes on demand.
// The job owns its source exclusively until it reaches a terminal state;
// Dispose releases whatever backs it (a spool file, usually).
type PayloadSource interface {
	Fetch(ctx context.Context) ([]byte, error)
	Dispose() error
}

// Job is one user-submitted transfer request and its lifecycle state.
// All state mutation happens on the coordinating side; once terminal,
// a job is never touched again.
type Job struct {
	ID          JobID
	Name        string
	ContentType string
	Size        int64
	Requester   string
	Handle      StatusHandle
	Source      PayloadSource
	Status      Status
	SubmittedAt time.Time

	// Terminal details, filled exactly once.
	Destination string
	Reason      string
	FinishedAt  time.Time
}

func NewJob(name, contentType string, size int64, requester string, handle StatusHandle, source PayloadSource) *Job {
	return &Job{
		ID:          JobID(uuid.NewString()),
		Name:        name,
		ContentType: contentType,
		Size:        size,
		Requester:   requester,
		Handle:      handle,
		Source:      source,
		Status:      Queued,
		SubmittedAt: time.Now().UTC(),
	}
}
