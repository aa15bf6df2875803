package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"

	"courier-lab/domain"
)

func TestQueue_FIFOOrder(t *testing.T) {
	req := require.New(t)
	queue := NewQueue()

	first := domain.NewJob("first.txt", "text/plain", 1, "@alice", "h1", nil)
	second := domain.NewJob("second.txt", "text/plain", 2, "@bob", "h2", nil)
	third := domain.NewJob("third.txt", "text/plain", 3, "@carol", "h3", nil)

	queue.Enqueue(first)
	queue.Enqueue(second)
	queue.Enqueue(third)
	req.Equal(3, queue.Len())

	head, ok := queue.DequeueHead()
	req.True(ok)
	req.Equal(first.ID, head.ID)

	head, ok = queue.DequeueHead()
	req.True(ok)
	req.Equal(second.ID, head.ID)

	head, ok = queue.DequeueHead()
	req.True(ok)
	req.Equal(third.ID, head.ID)

	_, ok = queue.DequeueHead()
	req.False(ok)
}

func TestQueue_PositionOf(t *testing.T) {
	req := require.New(t)
	queue := NewQueue()

	first := domain.NewJob("first.txt", "", 0, "", "h1", nil)
	second := domain.NewJob("second.txt", "", 0, "", "h2", nil)
	queue.Enqueue(first)
	queue.Enqueue(second)

	position, ok := queue.PositionOf(first.ID)
	req.True(ok)
	req.Equal(1, position)

	position, ok = queue.PositionOf(second.ID)
	req.True(ok)
	req.Equal(2, position)

	// The head leaves, everyone moves up.
	_, _ = queue.DequeueHead()
	position, ok = queue.PositionOf(second.ID)
	req.True(ok)
	req.Equal(1, position)

	_, ok = queue.PositionOf(first.ID)
	req.False(ok)
}

func TestQueue_DrainAll(t *testing.T) {
	req := require.New(t)
	queue := NewQueue()

	first := domain.NewJob("first.txt", "", 0, "", "h1", nil)
	second := domain.NewJob("second.txt", "", 0, "", "h2", nil)
	queue.Enqueue(first)
	queue.Enqueue(second)

	drained := queue.DrainAll()
	req.Len(drained, 2)
	req.Equal(first.ID, drained[0].ID)
	req.Equal(second.ID, drained[1].ID)
	req.Equal(0, queue.Len())

	req.Empty(queue.DrainAll())
}
