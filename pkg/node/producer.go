package node

import (
	"fmt"
	"log/slog"
	"time"

	"go.uber.org/atomic"

	"github.com/esl-mosaic/pawr-go/pkg/log"
	"github.com/esl-mosaic/pawr-go/pkg/sensor"
	"github.com/esl-mosaic/pawr-go/pkg/transport"
	"github.com/esl-mosaic/pawr-go/pkg/wire"
)

// ProducerConfig configures a ResponseProducer.
type ProducerConfig struct {
	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger

	// ProtocolLogger receives received polls and sent responses.
	// If nil, tracing is disabled.
	ProtocolLogger log.Logger
}

// ProducerStats counts poll handling outcomes.
type ProducerStats struct {
	Polls     uint64 `json:"polls"`
	Missed    uint64 `json:"missed"`
	Responses uint64 `json:"responses"`
	Stale     uint64 `json:"stale"`
	Errors    uint64 `json:"errors"`
}

// ResponseProducer answers polls with the latest fresh reading.
type ResponseProducer struct {
	radio    transport.Peripheral
	readings *sensor.Channel
	attr     *TimingAttribute
	buf      []byte

	logger         *slog.Logger
	protocolLogger log.Logger

	polls     atomic.Uint64
	missed    atomic.Uint64
	responses atomic.Uint64
	stale     atomic.Uint64
	errors    atomic.Uint64
}

// NewResponseProducer creates a producer answering in the response slot
// stored in attr.
func NewResponseProducer(radio transport.Peripheral, readings *sensor.Channel, attr *TimingAttribute, cfg ProducerConfig) *ResponseProducer {
	return &ResponseProducer{
		radio:          radio,
		readings:       readings,
		attr:           attr,
		buf:            make([]byte, 0, wire.ResponsePacketSize),
		logger:         cfg.Logger,
		protocolLogger: cfg.ProtocolLogger,
	}
}

// OnPoll handles one poll. It reports whether a response was queued.
func (p *ResponseProducer) OnPoll(ev transport.PollReceived) bool {
	p.polls.Inc()
	if ev.Data == nil {
		p.missed.Inc()
		p.debugLog("node: poll not received", "event", ev.EventCounter, "subevent", ev.Subevent)
		return false
	}
	p.tracePoll(ev)

	r, fresh := p.readings.TryRead()
	if !fresh {
		p.stale.Inc()
		return false
	}

	coord, _ := p.attr.Coordinate()
	params := transport.ResponseParams{
		RequestEvent:     ev.EventCounter,
		RequestSubevent:  ev.Subevent,
		ResponseSubevent: ev.Subevent,
		ResponseSlot:     coord.ResponseSlot,
	}
	p.buf = wire.AppendSensorResponse(p.buf[:0], r)
	if err := p.radio.SetResponseData(ev.Sync, params, p.buf); err != nil {
		p.errors.Inc()
		p.warnLog("node: failed to set response data", "event", ev.EventCounter, "slot", coord.ResponseSlot, "error", err)
		p.traceError(ev, err)
		return false
	}

	p.responses.Inc()
	p.debugLog("node: response queued", "event", ev.EventCounter, "reading", r)
	p.traceResponse(ev, params)
	return true
}

// Stats returns producer counters.
func (p *ResponseProducer) Stats() ProducerStats {
	return ProducerStats{
		Polls:     p.polls.Load(),
		Missed:    p.missed.Load(),
		Responses: p.responses.Load(),
		Stale:     p.stale.Load(),
		Errors:    p.errors.Load(),
	}
}

func (p *ResponseProducer) tracePoll(ev transport.PollReceived) {
	if p.protocolLogger == nil {
		return
	}
	p.protocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: fmt.Sprintf("sync#%d", ev.Sync),
		Direction:    log.DirectionIn,
		Layer:        log.LayerRadio,
		Category:     log.CategoryMessage,
		LocalRole:    log.RoleNode,
		Packet:       log.NewPacketEvent(log.PacketPoll, ev.EventCounter, ev.Subevent, ev.Data),
	})
}

func (p *ResponseProducer) traceResponse(ev transport.PollReceived, params transport.ResponseParams) {
	if p.protocolLogger == nil {
		return
	}
	pkt := log.NewPacketEvent(log.PacketResponse, ev.EventCounter, params.ResponseSubevent, p.buf)
	s := params.ResponseSlot
	pkt.Slot = &s
	coord, _ := p.attr.Coordinate()
	p.protocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: fmt.Sprintf("sync#%d", ev.Sync),
		Direction:    log.DirectionOut,
		Layer:        log.LayerRadio,
		Category:     log.CategoryMessage,
		LocalRole:    log.RoleNode,
		Coordinate:   coord.String(),
		Packet:       pkt,
	})
}

func (p *ResponseProducer) traceError(ev transport.PollReceived, err error) {
	if p.protocolLogger == nil {
		return
	}
	p.protocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: fmt.Sprintf("sync#%d", ev.Sync),
		Layer:        log.LayerRadio,
		Category:     log.CategoryError,
		LocalRole:    log.RoleNode,
		Error:        &log.ErrorEventData{Layer: log.LayerRadio, Message: err.Error(), Context: "set response data"},
	})
}

func (p *ResponseProducer) debugLog(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *ResponseProducer) warnLog(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
