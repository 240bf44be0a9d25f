package service

import (
	"context"
	"sync"

	"github.com/esl-mosaic/pawr-go/pkg/transport"
)

// eventQueue is an unbounded FIFO between the dispatcher and the
// commissioning runner. Only scan reports are bounded: once limit of them
// are queued further reports are refused. Every other event is kept.
type eventQueue struct {
	mu    sync.Mutex
	items []transport.Event
	found int
	limit int

	wake chan struct{}
	out  chan transport.Event
}

func newEventQueue(limit int) *eventQueue {
	return &eventQueue{
		limit: limit,
		wake:  make(chan struct{}, 1),
		out:   make(chan transport.Event),
	}
}

// Events returns the channel the queue delivers on.
func (q *eventQueue) Events() <-chan transport.Event {
	return q.out
}

// push queues ev. It returns false if ev is a scan report and the report
// limit is reached.
func (q *eventQueue) push(ev transport.Event) bool {
	_, report := ev.(transport.DeviceFound)

	q.mu.Lock()
	if report {
		if q.found >= q.limit {
			q.mu.Unlock()
			return false
		}
		q.found++
	}
	q.items = append(q.items, ev)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

// Len returns the number of queued events.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// run delivers queued events in order until ctx is cancelled.
func (q *eventQueue) run(ctx context.Context) {
	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			q.mu.Unlock()
			select {
			case <-q.wake:
				continue
			case <-ctx.Done():
				return
			}
		}
		ev := q.items[0]
		q.items[0] = nil
		q.items = q.items[1:]
		if _, ok := ev.(transport.DeviceFound); ok {
			q.found--
		}
		q.mu.Unlock()

		select {
		case q.out <- ev:
		case <-ctx.Done():
			return
		}
	}
}
