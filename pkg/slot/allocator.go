package slot

import (
	"errors"
	"fmt"
	"sync"
)

// Allocation limits imposed by the one-byte wire encoding and the
// periodic advertising controller.
const (
	MaxSubevents     = 128
	MaxResponseSlots = 255
)

// Allocator errors.
var (
	ErrCapacityExhausted = errors.New("slot capacity exhausted")
	ErrAllocationPending = errors.New("allocation already pending")
	ErrNoPending         = errors.New("no pending allocation")
	ErrInvalidLayout     = errors.New("invalid slot layout")
)

// FillOrder selects how the allocation counter maps onto coordinates.
type FillOrder uint8

const (
	// FillInterleaved assigns subevent = n mod S, slot = n div S.
	FillInterleaved FillOrder = iota

	// FillSequential assigns subevent = n div R, slot = n mod R.
	FillSequential
)

// String returns the fill order name.
func (f FillOrder) String() string {
	switch f {
	case FillInterleaved:
		return "interleaved"
	case FillSequential:
		return "sequential"
	default:
		return "unknown"
	}
}

// ParseFillOrder parses a fill order name as used in configuration files.
// An empty string selects FillInterleaved.
func ParseFillOrder(s string) (FillOrder, error) {
	switch s {
	case "", "interleaved":
		return FillInterleaved, nil
	case "sequential":
		return FillSequential, nil
	default:
		return 0, fmt.Errorf("unknown fill order %q", s)
	}
}

// Layout describes the coordinate space of one polling cycle.
type Layout struct {
	NumSubevents     int
	NumResponseSlots int
	Order            FillOrder
}

// Capacity returns the number of distinct coordinates in the layout.
func (l Layout) Capacity() int {
	return l.NumSubevents * l.NumResponseSlots
}

// Validate checks that the layout fits the one-byte coordinate encoding.
func (l Layout) Validate() error {
	if l.NumSubevents < 1 || l.NumSubevents > MaxSubevents {
		return fmt.Errorf("%w: subevents %d not in 1..%d", ErrInvalidLayout, l.NumSubevents, MaxSubevents)
	}
	if l.NumResponseSlots < 1 || l.NumResponseSlots > MaxResponseSlots {
		return fmt.Errorf("%w: response slots %d not in 1..%d", ErrInvalidLayout, l.NumResponseSlots, MaxResponseSlots)
	}
	if l.Order != FillInterleaved && l.Order != FillSequential {
		return fmt.Errorf("%w: fill order %d", ErrInvalidLayout, l.Order)
	}
	return nil
}

// CoordinateAt maps a counter value in 0..Capacity()-1 to its coordinate.
func (l Layout) CoordinateAt(n int) Coordinate {
	if l.Order == FillSequential {
		return Coordinate{
			Subevent:     uint8(n / l.NumResponseSlots),
			ResponseSlot: uint8(n % l.NumResponseSlots),
		}
	}
	return Coordinate{
		Subevent:     uint8(n % l.NumSubevents),
		ResponseSlot: uint8(n / l.NumSubevents),
	}
}

// Allocator is a capacity-bounded, two-phase coordinate allocator.
// It is safe for concurrent use.
type Allocator struct {
	mu sync.RWMutex

	layout  Layout
	counter int
	pending bool
}

// NewAllocator creates an allocator for the given layout.
func NewAllocator(layout Layout) (*Allocator, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	return &Allocator{layout: layout}, nil
}

// Layout returns the allocator's layout.
func (a *Allocator) Layout() Layout {
	return a.layout
}

// Capacity returns the total number of coordinates.
func (a *Allocator) Capacity() int {
	return a.layout.Capacity()
}

// Committed returns the number of committed coordinates.
func (a *Allocator) Committed() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.counter
}

// Exhausted reports whether every coordinate has been committed.
func (a *Allocator) Exhausted() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.counter >= a.layout.Capacity()
}

// Pending reports whether a tentative allocation is outstanding.
func (a *Allocator) Pending() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.pending
}

// Allocate returns the tentative coordinate for the current counter value.
// The counter is not advanced until Commit.
func (a *Allocator) Allocate() (Coordinate, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.counter >= a.layout.Capacity() {
		return Coordinate{}, ErrCapacityExhausted
	}
	if a.pending {
		return Coordinate{}, ErrAllocationPending
	}
	a.pending = true
	return a.layout.CoordinateAt(a.counter), nil
}

// Commit confirms the pending allocation and advances the counter.
func (a *Allocator) Commit() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.pending {
		return ErrNoPending
	}
	a.pending = false
	a.counter++
	return nil
}

// Rollback discards the pending allocation. The counter is unchanged, so the
// next Allocate returns the same coordinate. Rollback without a pending
// allocation is a no-op.
func (a *Allocator) Rollback() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = false
}

// Restore sets the counter of a fresh allocator, e.g. from a saved roster.
func (a *Allocator) Restore(committed int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.counter != 0 || a.pending {
		return errors.New("allocator already in use")
	}
	if committed < 0 || committed > a.layout.Capacity() {
		return fmt.Errorf("restore count %d outside 0..%d", committed, a.layout.Capacity())
	}
	a.counter = committed
	return nil
}
