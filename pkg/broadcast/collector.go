package broadcast

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/esl-mosaic/pawr-go/pkg/log"
	"github.com/esl-mosaic/pawr-go/pkg/sensor"
	"github.com/esl-mosaic/pawr-go/pkg/slot"
	"github.com/esl-mosaic/pawr-go/pkg/transport"
	"github.com/esl-mosaic/pawr-go/pkg/wire"
)

// DefaultQueueSize is the default depth of the sink queue.
const DefaultQueueSize = 256

// Sample is one reading received in a response slot.
type Sample struct {
	Received     time.Time       `json:"received"`
	EventCounter uint16          `json:"event_counter"`
	Coordinate   slot.Coordinate `json:"coordinate"`
	Reading      sensor.Reading  `json:"reading"`
}

// Sink stores collected samples.
type Sink interface {
	Store(ctx context.Context, s Sample) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, s Sample) error

// Store calls f.
func (f SinkFunc) Store(ctx context.Context, s Sample) error {
	return f(ctx, s)
}

// CollectorConfig configures a Collector.
type CollectorConfig struct {
	// QueueSize bounds the number of samples waiting for the sink.
	// Zero selects DefaultQueueSize.
	QueueSize int

	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger

	// ProtocolLogger receives non-empty responses and decoded readings.
	// If nil, tracing is disabled.
	ProtocolLogger log.Logger
}

// CollectorStats counts response slot outcomes.
type CollectorStats struct {
	Received   uint64 `json:"received"`
	Empty      uint64 `json:"empty"`
	Malformed  uint64 `json:"malformed"`
	Dropped    uint64 `json:"dropped"`
	Stored     uint64 `json:"stored"`
	SinkErrors uint64 `json:"sink_errors"`
}

// Collector inspects response slot reports.
type Collector struct {
	sink  Sink
	queue chan Sample

	logger         *slog.Logger
	protocolLogger log.Logger

	mu     sync.RWMutex
	latest map[slot.Coordinate]Sample

	received   atomic.Uint64
	empty      atomic.Uint64
	malformed  atomic.Uint64
	dropped    atomic.Uint64
	stored     atomic.Uint64
	sinkErrors atomic.Uint64
}

// NewCollector creates a collector. A nil sink keeps only the latest sample
// per coordinate.
func NewCollector(sink Sink, cfg CollectorConfig) *Collector {
	size := cfg.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	c := &Collector{
		sink:           sink,
		logger:         cfg.Logger,
		protocolLogger: cfg.ProtocolLogger,
		latest:         make(map[slot.Coordinate]Sample),
	}
	if sink != nil {
		c.queue = make(chan Sample, size)
	}
	return c
}

// Handle inspects one response slot. It never blocks.
func (c *Collector) Handle(ev transport.ResponseReceived) {
	if ev.Data == nil {
		c.empty.Inc()
		return
	}
	c.received.Inc()

	coord := slot.Coordinate{Subevent: ev.Subevent, ResponseSlot: ev.Slot}
	c.tracePacket(ev, coord)

	reading, err := wire.DecodeSensorResponse(ev.Data)
	if err != nil {
		c.malformed.Inc()
		c.debugLog("broadcast: malformed response", "coordinate", coord, "error", err)
		c.traceError(coord, err)
		return
	}

	sample := Sample{
		Received:     time.Now(),
		EventCounter: ev.EventCounter,
		Coordinate:   coord,
		Reading:      reading,
	}
	c.traceReading(sample)

	c.mu.Lock()
	c.latest[coord] = sample
	c.mu.Unlock()

	if c.queue == nil {
		return
	}
	select {
	case c.queue <- sample:
	default:
		c.dropped.Inc()
		c.debugLog("broadcast: sink queue full, sample dropped", "coordinate", coord)
	}
}

// Run forwards queued samples to the sink until ctx is cancelled. It
// returns at once if the collector has no sink.
func (c *Collector) Run(ctx context.Context) {
	if c.queue == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-c.queue:
			if err := c.sink.Store(ctx, s); err != nil {
				c.sinkErrors.Inc()
				c.debugLog("broadcast: sink store failed", "coordinate", s.Coordinate, "error", err)
				continue
			}
			c.stored.Inc()
		}
	}
}

// Latest returns the most recent sample of every coordinate, ordered by
// coordinate.
func (c *Collector) Latest() []Sample {
	c.mu.RLock()
	out := make([]Sample, 0, len(c.latest))
	for _, s := range c.latest {
		out = append(out, s)
	}
	c.mu.RUnlock()

	slices.SortFunc(out, func(a, b Sample) int {
		return cmp.Or(
			cmp.Compare(a.Coordinate.Subevent, b.Coordinate.Subevent),
			cmp.Compare(a.Coordinate.ResponseSlot, b.Coordinate.ResponseSlot),
		)
	})
	return out
}

// Stats returns collector counters.
func (c *Collector) Stats() CollectorStats {
	return CollectorStats{
		Received:   c.received.Load(),
		Empty:      c.empty.Load(),
		Malformed:  c.malformed.Load(),
		Dropped:    c.dropped.Load(),
		Stored:     c.stored.Load(),
		SinkErrors: c.sinkErrors.Load(),
	}
}

func (c *Collector) tracePacket(ev transport.ResponseReceived, coord slot.Coordinate) {
	if c.protocolLogger == nil {
		return
	}
	p := log.NewPacketEvent(log.PacketResponse, ev.EventCounter, ev.Subevent, ev.Data)
	s := ev.Slot
	p.Slot = &s
	c.protocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: "train",
		Direction:    log.DirectionIn,
		Layer:        log.LayerRadio,
		Category:     log.CategoryMessage,
		LocalRole:    log.RoleCoordinator,
		Coordinate:   coord.String(),
		Packet:       p,
	})
}

func (c *Collector) traceReading(s Sample) {
	if c.protocolLogger == nil {
		return
	}
	c.protocolLogger.Log(log.Event{
		Timestamp:    s.Received,
		ConnectionID: "train",
		Direction:    log.DirectionIn,
		Layer:        log.LayerWire,
		Category:     log.CategoryMessage,
		LocalRole:    log.RoleCoordinator,
		Coordinate:   s.Coordinate.String(),
		Reading:      &log.ReadingEvent{Temperature: s.Reading.Temperature, Humidity: s.Reading.Humidity},
	})
}

func (c *Collector) traceError(coord slot.Coordinate, err error) {
	if c.protocolLogger == nil {
		return
	}
	c.protocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: "train",
		Direction:    log.DirectionIn,
		Layer:        log.LayerWire,
		Category:     log.CategoryError,
		LocalRole:    log.RoleCoordinator,
		Coordinate:   coord.String(),
		Error:        &log.ErrorEventData{Layer: log.LayerWire, Message: err.Error(), Context: "decode response"},
	})
}

func (c *Collector) debugLog(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
