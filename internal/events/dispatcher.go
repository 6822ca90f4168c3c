package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

const sinkTimeout = 5 * time.Second

// Sink receives every published event.
type Sink interface {
	Name() string
	Handle(ctx context.Context, e Event) error
}

// Dispatcher queues events in a bounded buffer and fans each one out to all
// sinks from a single worker. A full buffer drops the event.
type Dispatcher struct {
	queue chan Event
	sinks []Sink
	done  chan struct{}
}

func NewDispatcher(buffer int, sinks ...Sink) *Dispatcher {
	if buffer <= 0 {
		buffer = 1
	}
	return &Dispatcher{
		queue: make(chan Event, buffer),
		sinks: sinks,
		done:  make(chan struct{}),
	}
}

func (d *Dispatcher) Publish(e Event) {
	select {
	case d.queue <- e:
	default:
		slog.Warn("event buffer full, dropping event", "type", e.Kind, "tournament_id", e.TournamentID)
	}
}

// Run delivers events until ctx is cancelled, then flushes what is already
// queued. It returns once the worker has stopped.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)

	for {
		select {
		case e := <-d.queue:
			d.deliver(context.Background(), e)
		case <-ctx.Done():
			for {
				select {
				case e := <-d.queue:
					d.deliver(context.Background(), e)
				default:
					return
				}
			}
		}
	}
}

// Done is closed when Run returns.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

func (d *Dispatcher) deliver(ctx context.Context, e Event) {
	ctx, cancel := context.WithTimeout(ctx, sinkTimeout)
	defer cancel()

	// Sinks are independent, so one failing does not cancel the others
	var g errgroup.Group
	for _, sink := range d.sinks {
		sink := sink
		g.Go(func() error {
			if err := sink.Handle(ctx, e); err != nil {
				return fmt.Errorf("sink %s: %w", sink.Name(), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.Warn("failed to deliver event", "type", e.Kind, "tournament_id", e.TournamentID, "error", err)
	}
}
