package domain

import (
	"io"
	"time"
)

// TransferRequest carries one upload into the transfer backend.
//
// Progress receives fractions in [0,1] from the offloaded transfer task;
// the coordinating loop owns all throttling and notification decisions, so
// the backend must send without blocking and may drop values freely.
// Cancelled is polled between chunks; when it returns true the backend
// aborts promptly and reports the cancellation outcome.
type TransferRequest struct {
	Source      io.Reader
	Name        string
	ContentType string
	Size        int64
	Progress    chan<- float64
	Cancelled   func() bool
}

// StoredObject is one object already sitting in the destination store.
type StoredObject struct {
	Key          string
	Name         string
	Size         int64
	LastModified time.Time
}
