package gateway

import (
	"context"
	"log/slog"
	"sync"

	"courier-lab/domain"
)

// StatusBoard owns the status handles the core writes through. It keeps
// the latest status line per handle and fans updates out to SSE
// subscribers, dropping lines for slow consumers rather than blocking the
// pipeline.
type StatusBoard struct {
	mu          sync.RWMutex
	log         *slog.Logger
	latest      map[domain.StatusHandle]string
	subscribers map[domain.StatusHandle]map[chan string]struct{}
}

func NewStatusBoard(log *slog.Logger) *StatusBoard {
	return &StatusBoard{
		log:         log,
		latest:      make(map[domain.StatusHandle]string),
		subscribers: make(map[domain.StatusHandle]map[chan string]struct{}),
	}
}

// Notify implements contract.Notifier.
func (b *StatusBoard) Notify(_ context.Context, handle domain.StatusHandle, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.latest[handle] = text
	for subscriber := range b.subscribers[handle] {
		select {
		case subscriber <- text:
		default:
			b.log.Debug("Slow status subscriber, line dropped", "handle", handle)
		}
	}
	return nil
}

func (b *StatusBoard) Latest(handle domain.StatusHandle) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	text, ok := b.latest[handle]
	return text, ok
}

// Forget drops the retained status line for a handle. Live subscriptions
// are untouched; those clean up through their own cancel functions.
func (b *StatusBoard) Forget(handle domain.StatusHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.latest, handle)
}

// Subscribe returns a channel of status lines for the handle and a cancel
// function that must be called when the consumer goes away.
func (b *StatusBoard) Subscribe(handle domain.StatusHandle) (<-chan string, func()) {
	subscriber := make(chan string, 16)

	b.mu.Lock()
	if b.subscribers[handle] == nil {
		b.subscribers[handle] = make(map[chan string]struct{})
	}
	b.subscribers[handle][subscriber] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subscribers[handle], subscriber)
		if len(b.subscribers[handle]) == 0 {
			delete(b.subscribers, handle)
		}
	}
	return subscriber, cancel
}
