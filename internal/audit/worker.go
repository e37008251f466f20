package audit

import (
	"context"
	"errors"
	"log/slog"
)

// ErrQueueFull is returned when the audit inbox has no room. Audit loss is
// logged by the emitter, never propagated to the request.
var ErrQueueFull = errors.New("audit queue full")

// Queue is a Store that hands events to a Worker through a bounded channel,
// keeping sink latency off the request path.
type Queue struct {
	inbox chan Event
}

func NewQueue(size int) *Queue {
	return &Queue{inbox: make(chan Event, size)}
}

func (q *Queue) Append(_ context.Context, event Event) error {
	select {
	case q.inbox <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Inbox is the channel a Worker drains.
func (q *Queue) Inbox() <-chan Event {
	return q.inbox
}

// Worker drains a Queue into a sink. A sink failure loses that event, not
// the worker: the trail is best-effort and must not take the process down.
type Worker struct {
	store  Store
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(store Store, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "audit append failed",
					"action", string(event.Action),
					"application_id", event.ApplicationID,
					"error", err,
				)
			}
		}
	}
}
