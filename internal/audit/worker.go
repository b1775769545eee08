package audit

import (
	"context"
	"log/slog"

	"profreg/pkg/platform/circuit"
)

// probeInterval is how many events are dropped between probe attempts while
// the sink circuit is open.
const probeInterval = 10

// Worker relays audit events from the publisher's channel to the external
// sink. Sink failures are logged and the event dropped from the relay; the
// store already holds the durable record, so the relay never retries.
//
// A circuit breaker guards the sink: after repeated failures the worker stops
// hammering it and only probes with every probeInterval-th event until the
// sink recovers.
type Worker struct {
	sink    Sink
	inbox   <-chan Event
	logger  *slog.Logger
	breaker *circuit.Breaker
	skipped int
}

func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{
		sink:    sink,
		inbox:   inbox,
		logger:  logger,
		breaker: circuit.New("audit-sink", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(2)),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			w.relay(ctx, event)
		}
	}
}

func (w *Worker) relay(ctx context.Context, event Event) {
	if w.breaker.IsOpen() {
		w.skipped++
		if w.skipped%probeInterval != 0 {
			return
		}
	}

	if err := w.sink.Publish(ctx, event); err != nil {
		_, change := w.breaker.RecordFailure()
		if change.Opened {
			w.logger.WarnContext(ctx, "audit sink circuit opened", "sink", w.breaker.Name())
		}
		w.logger.WarnContext(ctx, "audit sink publish failed",
			"action", event.Action,
			"entity_id", event.EntityID.String(),
			"error", err.Error(),
		)
		return
	}

	_, change := w.breaker.RecordSuccess()
	if change.Closed {
		w.skipped = 0
		w.logger.InfoContext(ctx, "audit sink circuit closed", "sink", w.breaker.Name())
	}
}
