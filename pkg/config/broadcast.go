package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTiming is wrapped by every broadcast timing validation error.
var ErrInvalidTiming = errors.New("invalid broadcast timing")

// Controller limits for periodic advertising with responses.
const (
	MinPeriodicInterval = 0x0006
	MaxPeriodicInterval = 0xFFFF

	MinSubeventInterval = 0x06
	MaxSubeventInterval = 0xFF

	MinResponseSlotDelay = 0x01
	MaxResponseSlotDelay = 0xFE

	MinResponseSlotSpacing = 0x02
	MaxResponseSlotSpacing = 0xFF

	MaxSubevents     = 128
	MaxResponseSlots = 255
)

// IntervalUnit is the duration of one periodic interval unit.
const IntervalUnit = 1250 * time.Microsecond

// Broadcast holds the periodic advertising with responses parameters.
type Broadcast struct {
	// IntervalMin is the minimum periodic interval (1.25 ms units).
	IntervalMin uint16 `yaml:"interval_min"`

	// IntervalMax is the maximum periodic interval (1.25 ms units).
	IntervalMax uint16 `yaml:"interval_max"`

	// NumSubevents is the number of subevents per periodic event.
	NumSubevents uint8 `yaml:"num_subevents"`

	// SubeventInterval is the time between subevents (1.25 ms units).
	SubeventInterval uint8 `yaml:"subevent_interval"`

	// ResponseSlotDelay is the time from subevent start to the first
	// response slot (1.25 ms units).
	ResponseSlotDelay uint8 `yaml:"response_slot_delay"`

	// ResponseSlotSpacing is the time between response slots (0.125 ms units).
	ResponseSlotSpacing uint8 `yaml:"response_slot_spacing"`

	// NumResponseSlots is the number of response slots per subevent.
	NumResponseSlots uint8 `yaml:"num_response_slots"`
}

// DefaultBroadcast returns the reference parameter set: 5 subevents of 10
// response slots each on a ~319 ms periodic interval.
func DefaultBroadcast() Broadcast {
	return Broadcast{
		IntervalMin:         0xFF,
		IntervalMax:         0xFF,
		NumSubevents:        5,
		SubeventInterval:    0x33,
		ResponseSlotDelay:   0x5,
		ResponseSlotSpacing: 0x20,
		NumResponseSlots:    10,
	}
}

// Capacity returns the number of nodes the parameter set can poll.
func (b Broadcast) Capacity() int {
	return int(b.NumSubevents) * int(b.NumResponseSlots)
}

// Interval returns the maximum periodic interval as a duration.
func (b Broadcast) Interval() time.Duration {
	return time.Duration(b.IntervalMax) * IntervalUnit
}

// Validate checks the parameters against the controller's supported ranges.
func (b Broadcast) Validate() error {
	if b.IntervalMin < MinPeriodicInterval || b.IntervalMax < MinPeriodicInterval {
		return fmt.Errorf("%w: periodic interval must be >= 0x%X", ErrInvalidTiming, MinPeriodicInterval)
	}
	if b.IntervalMin > b.IntervalMax {
		return fmt.Errorf("%w: interval min 0x%X exceeds max 0x%X", ErrInvalidTiming, b.IntervalMin, b.IntervalMax)
	}
	if b.NumSubevents == 0 || b.NumSubevents > MaxSubevents {
		return fmt.Errorf("%w: num subevents %d not in 1..%d", ErrInvalidTiming, b.NumSubevents, MaxSubevents)
	}
	if b.NumResponseSlots == 0 {
		return fmt.Errorf("%w: num response slots must be >= 1", ErrInvalidTiming)
	}
	if b.SubeventInterval < MinSubeventInterval {
		return fmt.Errorf("%w: subevent interval 0x%X not in 0x%X..0x%X",
			ErrInvalidTiming, b.SubeventInterval, MinSubeventInterval, MaxSubeventInterval)
	}
	if int(b.SubeventInterval) > int(b.IntervalMin)/int(b.NumSubevents) {
		return fmt.Errorf("%w: subevent interval 0x%X exceeds interval min / num subevents (0x%X)",
			ErrInvalidTiming, b.SubeventInterval, int(b.IntervalMin)/int(b.NumSubevents))
	}
	if b.ResponseSlotDelay < MinResponseSlotDelay || b.ResponseSlotDelay > MaxResponseSlotDelay {
		return fmt.Errorf("%w: response slot delay 0x%X not in 0x%X..0x%X",
			ErrInvalidTiming, b.ResponseSlotDelay, MinResponseSlotDelay, MaxResponseSlotDelay)
	}
	if b.ResponseSlotDelay >= b.SubeventInterval {
		return fmt.Errorf("%w: response slot delay 0x%X must be less than subevent interval 0x%X",
			ErrInvalidTiming, b.ResponseSlotDelay, b.SubeventInterval)
	}
	if b.ResponseSlotSpacing < MinResponseSlotSpacing {
		return fmt.Errorf("%w: response slot spacing 0x%X not in 0x%X..0x%X",
			ErrInvalidTiming, b.ResponseSlotSpacing, MinResponseSlotSpacing, MaxResponseSlotSpacing)
	}
	if b.NumResponseSlots > 1 {
		limit := 10 * (int(b.SubeventInterval) - int(b.ResponseSlotDelay)) / int(b.NumResponseSlots)
		if int(b.ResponseSlotSpacing) > limit {
			return fmt.Errorf("%w: response slot spacing 0x%X exceeds 0x%X",
				ErrInvalidTiming, b.ResponseSlotSpacing, limit)
		}
	}
	return nil
}
