package gateway

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestBoard() *StatusBoard {
	return NewStatusBoard(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestStatusBoard_LatestTracksTheLastLine(t *testing.T) {
	req := require.New(t)
	board := newTestBoard()

	_, ok := board.Latest("h1")
	req.False(ok)

	req.NoError(board.Notify(context.Background(), "h1", "Queued, position in line: 1"))
	req.NoError(board.Notify(context.Background(), "h1", "Downloading a.txt..."))

	latest, ok := board.Latest("h1")
	req.True(ok)
	req.Equal("Downloading a.txt...", latest)

	// Other handles are untouched.
	_, ok = board.Latest("h2")
	req.False(ok)
}

func TestStatusBoard_ForgetDropsTheRetainedLine(t *testing.T) {
	req := require.New(t)
	board := newTestBoard()

	req.NoError(board.Notify(context.Background(), "h1", "Upload complete"))
	board.Forget("h1")

	_, ok := board.Latest("h1")
	req.False(ok)

	// A forgotten handle accepts new lines again.
	req.NoError(board.Notify(context.Background(), "h1", "fresh"))
	latest, ok := board.Latest("h1")
	req.True(ok)
	req.Equal("fresh", latest)
}

func TestStatusBoard_SubscribersReceiveUpdatesInOrder(t *testing.T) {
	req := require.New(t)
	board := newTestBoard()

	lines, cancel := board.Subscribe("h1")
	defer cancel()

	req.NoError(board.Notify(context.Background(), "h1", "first"))
	req.NoError(board.Notify(context.Background(), "h1", "second"))
	req.NoError(board.Notify(context.Background(), "h2", "other handle"))

	req.Equal("first", <-lines)
	req.Equal("second", <-lines)
	select {
	case line := <-lines:
		req.Fail("unexpected line: " + line)
	default:
	}
}

func TestStatusBoard_CancelStopsDelivery(t *testing.T) {
	req := require.New(t)
	board := newTestBoard()

	lines, cancel := board.Subscribe("h1")
	cancel()

	req.NoError(board.Notify(context.Background(), "h1", "after cancel"))
	select {
	case line := <-lines:
		req.Fail("unexpected line: " + line)
	default:
	}
}

func TestStatusBoard_SlowSubscriberNeverBlocksNotify(t *testing.T) {
	req := require.New(t)
	board := newTestBoard()

	_, cancel := board.Subscribe("h1")
	defer cancel()

	// Fill the subscriber buffer and keep going; Notify must not block.
	for i := 0; i < 100; i++ {
		req.NoError(board.Notify(context.Background(), "h1", "line"))
	}
	latest, ok := board.Latest("h1")
	req.True(ok)
	req.Equal("line", latest)
}
