package sim

import (
	"sync"

	"github.com/esl-mosaic/pawr-go/pkg/transport"
)

// mailbox is an unbounded FIFO feeding an event channel.
type mailbox struct {
	mu     sync.Mutex
	queue  []transport.Event
	signal chan struct{}
	out    chan transport.Event
	done   <-chan struct{}
}

func newMailbox(done <-chan struct{}) *mailbox {
	mb := &mailbox{
		signal: make(chan struct{}, 1),
		out:    make(chan transport.Event),
		done:   done,
	}
	go mb.run()
	return mb
}

func (mb *mailbox) push(ev transport.Event) {
	mb.mu.Lock()
	mb.queue = append(mb.queue, ev)
	mb.mu.Unlock()

	select {
	case mb.signal <- struct{}{}:
	default:
	}
}

func (mb *mailbox) run() {
	defer close(mb.out)
	for {
		mb.mu.Lock()
		if len(mb.queue) == 0 {
			mb.mu.Unlock()
			select {
			case <-mb.signal:
				continue
			case <-mb.done:
				return
			}
		}
		ev := mb.queue[0]
		mb.queue[0] = nil
		mb.queue = mb.queue[1:]
		mb.mu.Unlock()

		select {
		case mb.out <- ev:
		case <-mb.done:
			return
		}
	}
}
