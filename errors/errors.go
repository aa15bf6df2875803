package errors

import "fmt"

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")

	// ErrPaused rejects a submission while an operator pause is in effect.
	// No job is created when this is returned.
	ErrPaused = fmt.Errorf("transfers are paused by an operator, new submissions are rejected")

	// ErrTransferCancelled is the operator-cancellation outcome of a transfer,
	// distinct from a backend failure.
	ErrTransferCancelled = fmt.Errorf("transfer cancelled by operator")

	// ErrBackendAuth marks authentication failures against the object store.
	ErrBackendAuth = fmt.Errorf("object store authentication failed")

	ErrNotAdmin       = fmt.Errorf("handle is not an admin")
	ErrAdminExists    = fmt.Errorf("handle is already an admin")
	ErrPermanentAdmin = fmt.Errorf("permanent admins cannot be removed")
	ErrEmptyPayload   = fmt.Errorf("submission carries no payload")
	ErrUnknownJob     = fmt.Errorf("unknown job id")
)
