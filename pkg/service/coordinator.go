package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/esl-mosaic/pawr-go/pkg/broadcast"
	"github.com/esl-mosaic/pawr-go/pkg/commissioning"
	"github.com/esl-mosaic/pawr-go/pkg/connection"
	"github.com/esl-mosaic/pawr-go/pkg/log"
	"github.com/esl-mosaic/pawr-go/pkg/persistence"
	"github.com/esl-mosaic/pawr-go/pkg/slot"
	"github.com/esl-mosaic/pawr-go/pkg/transport"
)

// CoordinatorStatus is a point-in-time view of the coordinator.
type CoordinatorStatus struct {
	State         string                    `json:"state"`
	Capacity      int                       `json:"capacity"`
	Committed     int                       `json:"committed"`
	Exhausted     bool                      `json:"exhausted"`
	Commissioning commissioning.RunnerStats `json:"commissioning"`
	Scheduler     broadcast.SchedulerStats  `json:"scheduler"`
	Collector     broadcast.CollectorStats  `json:"collector"`
	DroppedEvents uint64                    `json:"dropped_events"`
}

// CoordinatorService orchestrates the coordinator role.
type CoordinatorService struct {
	mu sync.RWMutex

	config  CoordinatorConfig
	central transport.Central
	state   ServiceState

	alloc     *slot.Allocator
	scheduler *broadcast.Scheduler
	collector *broadcast.Collector
	runner    *commissioning.Runner

	roster *persistence.Roster

	commissioningEvents *eventQueue
	droppedEvents       atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	commissioned chan struct{}
	runErr       error
}

// NewCoordinatorService validates the configuration and builds the
// coordinator's components. With Resume set, allocation continues from the
// saved roster.
func NewCoordinatorService(central transport.Central, cfg CoordinatorConfig) (*CoordinatorService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	layout, err := cfg.Layout()
	if err != nil {
		return nil, err
	}
	alloc, err := slot.NewAllocator(layout)
	if err != nil {
		return nil, err
	}

	scheduler, err := broadcast.NewScheduler(central, cfg.Broadcast, broadcast.SchedulerConfig{
		Logger:         cfg.Logger,
		ProtocolLogger: cfg.ProtocolLogger,
	})
	if err != nil {
		return nil, err
	}

	s := &CoordinatorService{
		config:    cfg,
		central:   central,
		alloc:     alloc,
		scheduler: scheduler,
		collector: broadcast.NewCollector(cfg.Sink, broadcast.CollectorConfig{
			Logger:         cfg.Logger,
			ProtocolLogger: cfg.ProtocolLogger,
		}),
		roster:              &persistence.Roster{Capacity: layout.Capacity()},
		commissioningEvents: newEventQueue(cfg.EventQueueSize),
		commissioned:        make(chan struct{}),
	}

	if cfg.Resume && cfg.Roster != nil {
		if err := s.resume(layout); err != nil {
			return nil, err
		}
	}

	sessionCfg := commissioning.ConfigFrom(cfg.Coordinator)
	sessionCfg.Logger = cfg.Logger
	sessionCfg.ProtocolLogger = cfg.ProtocolLogger

	runnerCfg := commissioning.RunnerConfig{
		Session:  sessionCfg,
		OnResult: s.onResult,
		Logger:   cfg.Logger,
	}
	if cfg.RetryBackoff {
		runnerCfg.RetryBackoff = connection.NewBackoff()
	}
	s.runner = commissioning.NewRunner(central, alloc, s.commissioningEvents.Events(), runnerCfg)

	return s, nil
}

func (s *CoordinatorService) resume(layout slot.Layout) error {
	saved, err := s.config.Roster.Load()
	if err != nil {
		return fmt.Errorf("load roster: %w", err)
	}
	if saved == nil {
		return nil
	}
	if err := saved.Check(layout); err != nil {
		return err
	}
	if err := s.alloc.Restore(saved.Committed); err != nil {
		return err
	}
	s.roster = saved
	s.infoLog("coordinator: resumed from roster",
		"committed", saved.Committed,
		"capacity", saved.Capacity)
	return nil
}

// Start starts the periodic train, the dispatcher and commissioning.
// Failing to start the train is fatal and returned.
func (s *CoordinatorService) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.state = StateStarting
	s.mu.Unlock()

	if err := s.central.StartPeriodicAdvertising(s.config.Broadcast); err != nil {
		s.mu.Lock()
		s.state = StateIdle
		s.mu.Unlock()
		return fmt.Errorf("start periodic advertising: %w", err)
	}
	s.traceState(StateStarting, StateRunning)

	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(4)
	go func() {
		defer s.wg.Done()
		s.dispatch(s.ctx)
	}()
	go func() {
		defer s.wg.Done()
		s.commissioningEvents.run(s.ctx)
	}()
	go func() {
		defer s.wg.Done()
		s.collector.Run(s.ctx)
	}()
	go func() {
		defer s.wg.Done()
		defer close(s.commissioned)
		err := s.runner.Run(s.ctx)
		s.mu.Lock()
		s.runErr = err
		s.mu.Unlock()
	}()

	s.mu.Lock()
	s.state = StateRunning
	s.mu.Unlock()

	s.infoLog("coordinator: started",
		"subevents", s.config.Broadcast.NumSubevents,
		"response_slots", s.config.Broadcast.NumResponseSlots,
		"committed", s.alloc.Committed(),
		"capacity", s.alloc.Capacity())
	return nil
}

// Stop stops commissioning, the dispatcher and the periodic train.
func (s *CoordinatorService) Stop() error {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.state = StateStopping
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()

	err := s.central.StopPeriodicAdvertising()

	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()
	s.traceState(StateStopping, StateStopped)

	if err != nil {
		return fmt.Errorf("stop periodic advertising: %w", err)
	}
	return nil
}

// Commissioned is closed once commissioning has ended, either because
// every coordinate is committed or because the service stopped.
func (s *CoordinatorService) Commissioned() <-chan struct{} {
	return s.commissioned
}

// CommissioningErr returns the error commissioning ended with. It is nil
// while commissioning runs and after the capacity was reached.
func (s *CoordinatorService) CommissioningErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if errors.Is(s.runErr, context.Canceled) {
		return nil
	}
	return s.runErr
}

// State returns the service state.
func (s *CoordinatorService) State() ServiceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Status returns a snapshot of the coordinator's counters.
func (s *CoordinatorService) Status() CoordinatorStatus {
	return CoordinatorStatus{
		State:         s.State().String(),
		Capacity:      s.alloc.Capacity(),
		Committed:     s.alloc.Committed(),
		Exhausted:     s.alloc.Exhausted(),
		Commissioning: s.runner.Stats(),
		Scheduler:     s.scheduler.Stats(),
		Collector:     s.collector.Stats(),
		DroppedEvents: s.droppedEvents.Load(),
	}
}

// Roster returns a copy of the roster.
func (s *CoordinatorService) Roster() *persistence.Roster {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roster.Clone()
}

// Latest returns the latest reading of every coordinate.
func (s *CoordinatorService) Latest() []broadcast.Sample {
	return s.collector.Latest()
}

// dispatch routes central events until ctx is cancelled or the event
// channel closes. It never blocks on commissioning: scan reports beyond
// the queue limit are dropped, everything else is queued.
func (s *CoordinatorService) dispatch(ctx context.Context) {
	events := s.central.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				s.debugLog("coordinator: event channel closed")
				return
			}
			switch e := ev.(type) {
			case transport.SubeventDataRequested:
				s.scheduler.Handle(e)
			case transport.ResponseReceived:
				s.collector.Handle(e)
			default:
				if !s.commissioningEvents.push(ev) {
					s.droppedEvents.Inc()
					s.debugLog("coordinator: scan report dropped", "event", ev.Kind())
				}
			}
		}
	}
}

func (s *CoordinatorService) onResult(res commissioning.Result) {
	if !res.OK() {
		return
	}

	s.mu.Lock()
	s.roster.Add(persistence.RosterEntry{
		Address:        string(res.Peer),
		Coordinate:     res.Coordinate,
		CommissionedAt: time.Now(),
	})
	snapshot := s.roster.Clone()
	s.mu.Unlock()

	if s.config.Roster == nil {
		return
	}
	if err := s.config.Roster.Save(snapshot); err != nil {
		s.warnLog("coordinator: failed to save roster", "path", s.config.Roster.Path(), "error", err)
	}
}

func (s *CoordinatorService) traceState(from, to ServiceState) {
	if s.config.ProtocolLogger == nil {
		return
	}
	s.config.ProtocolLogger.Log(log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerService,
		Category:  log.CategoryState,
		LocalRole: log.RoleCoordinator,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityService,
			OldState: from.String(),
			NewState: to.String(),
		},
	})
}

func (s *CoordinatorService) debugLog(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, args...)
	}
}

func (s *CoordinatorService) infoLog(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Info(msg, args...)
	}
}

func (s *CoordinatorService) warnLog(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Warn(msg, args...)
	}
}
