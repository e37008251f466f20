package audit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_StampsTimestamp(t *testing.T) {
	sink := NewInMemory()
	publisher := NewPublisher(sink)

	err := publisher.Emit(context.Background(), Event{
		Action:        ActionApproved,
		ApplicationID: "app-1",
	})
	require.NoError(t, err)

	events := sink.Events()
	require.Len(t, events, 1)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestPublisher_KeepsExplicitTimestamp(t *testing.T) {
	sink := NewInMemory()
	publisher := NewPublisher(sink)
	stamped := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	err := publisher.Emit(context.Background(), Event{
		Timestamp:     stamped,
		Action:        ActionSubmitted,
		ApplicationID: "app-1",
	})
	require.NoError(t, err)

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, stamped, events[0].Timestamp)
}

func TestQueue_AppendAndDrain(t *testing.T) {
	queue := NewQueue(4)
	sink := NewInMemory()
	worker := NewWorker(sink, queue.Inbox(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = worker.Run(ctx)
	}()

	require.NoError(t, queue.Append(ctx, Event{Action: ActionApproved, ApplicationID: "app-1"}))
	require.NoError(t, queue.Append(ctx, Event{Action: ActionRejected, ApplicationID: "app-2"}))

	assert.Eventually(t, func() bool {
		return len(sink.Events()) == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestQueue_FullReturnsError(t *testing.T) {
	queue := NewQueue(1)
	ctx := context.Background()

	require.NoError(t, queue.Append(ctx, Event{Action: ActionApproved}))
	err := queue.Append(ctx, Event{Action: ActionRejected})
	assert.ErrorIs(t, err, ErrQueueFull)
}
