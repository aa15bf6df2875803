//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"courier-lab/domain"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself; supervision handles panics and restarts.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker,
// for logging and supervision purposes.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Notifier writes a status line through a submission's status handle.
// Delivery is best-effort: the core swallows every error it returns.
type Notifier interface {
	Notify(ctx context.Context, handle domain.StatusHandle, text string) error
}

// TransferBackend moves one byte stream into the object store and returns
// the destination identifier. It must poll req.Cancelled between internal
// chunks and abort with errors.ErrTransferCancelled when it fires, so the
// coordinator can apply cancellation semantics instead of failure semantics.
type TransferBackend interface {
	Transfer(ctx context.Context, req domain.TransferRequest) (string, error)
}
