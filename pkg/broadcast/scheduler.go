package broadcast

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/esl-mosaic/pawr-go/pkg/config"
	"github.com/esl-mosaic/pawr-go/pkg/log"
	"github.com/esl-mosaic/pawr-go/pkg/transport"
	"github.com/esl-mosaic/pawr-go/pkg/wire"
)

// SubeventDataSetter accepts poll payloads for the next periodic event.
// transport.Central implements it.
type SubeventDataSetter interface {
	SetSubeventData(data []transport.SubeventData) error
}

// SchedulerConfig configures a Scheduler.
type SchedulerConfig struct {
	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger

	// ProtocolLogger receives every poll sent. If nil, tracing is disabled.
	ProtocolLogger log.Logger
}

// SchedulerStats counts scheduler activity.
type SchedulerStats struct {
	Requests uint64 `json:"requests"`
	Polls    uint64 `json:"polls"`
	Errors   uint64 `json:"errors"`
	Liveness uint8  `json:"liveness"`
}

// Scheduler fills subevent poll payloads on request. It is safe for
// concurrent use, though requests normally arrive from one event loop.
type Scheduler struct {
	mu sync.Mutex

	setter    SubeventDataSetter
	subevents uint8
	slots     uint8
	buffers   [][wire.PollPacketSize]byte
	req       []transport.SubeventData
	counter   uint8

	logger         *slog.Logger
	protocolLogger log.Logger

	requests atomic.Uint64
	polls    atomic.Uint64
	errors   atomic.Uint64
}

// NewScheduler creates a scheduler for the given train parameters.
func NewScheduler(setter SubeventDataSetter, params config.Broadcast, cfg SchedulerConfig) (*Scheduler, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	s := &Scheduler{
		setter:         setter,
		subevents:      params.NumSubevents,
		slots:          params.NumResponseSlots,
		buffers:        make([][wire.PollPacketSize]byte, params.NumSubevents),
		req:            make([]transport.SubeventData, params.NumSubevents),
		logger:         cfg.Logger,
		protocolLogger: cfg.ProtocolLogger,
	}
	for i := range s.buffers {
		wire.InitPollBuffer(s.buffers[i][:])
	}
	return s, nil
}

// OnDataRequest fills up to count subevents starting at start and hands them
// to the transport. It returns the number of subevents sent. Failures are
// logged and not retried; the next request carries fresh data.
func (s *Scheduler) OnDataRequest(start, count uint8) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests.Inc()

	toSend := min(count, s.subevents)
	for i := uint8(0); i < toSend; i++ {
		sub := uint8((int(start) + int(i)) % int(s.subevents))
		buf := &s.buffers[sub]
		buf[wire.PollPacketSize-1] = s.counter
		s.counter++

		s.req[i] = transport.SubeventData{
			Subevent:          sub,
			ResponseSlotStart: 0,
			ResponseSlotCount: s.slots,
			Data:              buf[:],
		}
	}
	if toSend == 0 {
		return 0
	}

	if err := s.setter.SetSubeventData(s.req[:toSend]); err != nil {
		s.errors.Inc()
		s.warnLog("broadcast: failed to set subevent data", "start", start, "count", toSend, "error", err)
		s.traceError(fmt.Errorf("set subevent data: %w", err))
		return 0
	}

	s.polls.Add(uint64(toSend))
	s.tracePolls(s.req[:toSend])
	return int(toSend)
}

// Handle serves a transport data request.
func (s *Scheduler) Handle(ev transport.SubeventDataRequested) int {
	return s.OnDataRequest(ev.Start, ev.Count)
}

// Liveness returns the value the next poll will carry.
func (s *Scheduler) Liveness() uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter
}

// Stats returns scheduler counters.
func (s *Scheduler) Stats() SchedulerStats {
	return SchedulerStats{
		Requests: s.requests.Load(),
		Polls:    s.polls.Load(),
		Errors:   s.errors.Load(),
		Liveness: s.Liveness(),
	}
}

func (s *Scheduler) tracePolls(sent []transport.SubeventData) {
	if s.protocolLogger == nil {
		return
	}
	now := time.Now()
	for _, d := range sent {
		s.protocolLogger.Log(log.Event{
			Timestamp:    now,
			ConnectionID: "train",
			Direction:    log.DirectionOut,
			Layer:        log.LayerRadio,
			Category:     log.CategoryMessage,
			LocalRole:    log.RoleCoordinator,
			Packet:       log.NewPacketEvent(log.PacketPoll, 0, d.Subevent, d.Data),
		})
	}
}

func (s *Scheduler) traceError(err error) {
	if s.protocolLogger == nil {
		return
	}
	s.protocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: "train",
		Layer:        log.LayerRadio,
		Category:     log.CategoryError,
		LocalRole:    log.RoleCoordinator,
		Error:        &log.ErrorEventData{Layer: log.LayerRadio, Message: err.Error(), Context: "poll"},
	})
}

func (s *Scheduler) warnLog(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
