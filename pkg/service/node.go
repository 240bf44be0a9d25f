package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/esl-mosaic/pawr-go/pkg/log"
	"github.com/esl-mosaic/pawr-go/pkg/node"
	"github.com/esl-mosaic/pawr-go/pkg/sensor"
	"github.com/esl-mosaic/pawr-go/pkg/slot"
	"github.com/esl-mosaic/pawr-go/pkg/transport"
)

// NodeStatus is a point-in-time view of a node.
type NodeStatus struct {
	State         string             `json:"state"`
	Synced        bool               `json:"synced"`
	Advertising   bool               `json:"advertising"`
	Coordinate    slot.Coordinate    `json:"coordinate"`
	HasCoordinate bool               `json:"has_coordinate"`
	Responses     node.ProducerStats `json:"responses"`
}

// retryAdvertising is posted to the event loop when an advertising retry
// is due.
type retryAdvertising struct{}

func (retryAdvertising) Kind() string { return "retry_advertising" }

// statusRequest asks the event loop for a status snapshot.
type statusRequest struct {
	reply chan NodeStatus
}

func (statusRequest) Kind() string { return "status_request" }

// NodeService orchestrates the node role.
type NodeService struct {
	mu sync.RWMutex

	config NodeConfig
	radio  transport.Peripheral
	state  ServiceState

	readings  *sensor.Channel
	publisher *sensor.Publisher

	attr     *node.TimingAttribute
	sync     *node.SyncClient
	producer *node.ResponseProducer

	internal chan transport.Event

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewNodeService creates a node sampling source on the configured interval.
func NewNodeService(radio transport.Peripheral, source sensor.Source, cfg NodeConfig) *NodeService {
	s := &NodeService{
		config:   cfg,
		radio:    radio,
		readings: &sensor.Channel{},
		internal: make(chan transport.Event, 4),
	}
	s.publisher = sensor.NewPublisher(source, s.readings, cfg.SampleInterval, cfg.Logger)

	syncCfg := node.SyncConfigFrom(cfg.Node)
	syncCfg.Logger = cfg.Logger
	syncCfg.ProtocolLogger = cfg.ProtocolLogger

	s.attr = node.NewTimingAttribute(func(c slot.Coordinate) { s.sync.OnCoordinate(c) })
	s.sync = node.NewSyncClient(radio, s.attr, syncCfg)
	s.producer = node.NewResponseProducer(radio, s.readings, s.attr, node.ProducerConfig{
		Logger:         cfg.Logger,
		ProtocolLogger: cfg.ProtocolLogger,
	})
	return s
}

// Start subscribes to sync transfers, starts advertising and runs the
// event loop and the sensor publisher.
func (s *NodeService) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	if err := s.config.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = StateStarting
	s.mu.Unlock()

	delay, err := s.sync.Start()
	if err != nil && delay == 0 {
		s.mu.Lock()
		s.state = StateIdle
		s.mu.Unlock()
		return err
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	if err != nil {
		s.scheduleAdvertising(delay)
	}

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.loop(s.ctx)
	}()
	go func() {
		defer s.wg.Done()
		s.publisher.Run(s.ctx)
	}()

	s.mu.Lock()
	s.state = StateRunning
	s.mu.Unlock()
	return nil
}

// Stop stops the event loop, the publisher and advertising.
func (s *NodeService) Stop() error {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.state = StateStopping
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	err := s.radio.StopAdvertising()

	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("stop advertising: %w", err)
	}
	return nil
}

// State returns the service state.
func (s *NodeService) State() ServiceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Readings returns the channel the sensor publisher writes to.
func (s *NodeService) Readings() *sensor.Channel {
	return s.readings
}

// Status returns a snapshot taken on the event loop.
func (s *NodeService) Status(ctx context.Context) (NodeStatus, error) {
	if s.State() != StateRunning {
		return NodeStatus{}, ErrNotStarted
	}
	req := statusRequest{reply: make(chan NodeStatus, 1)}
	select {
	case s.internal <- req:
	case <-ctx.Done():
		return NodeStatus{}, ctx.Err()
	}
	select {
	case st := <-req.reply:
		return st, nil
	case <-ctx.Done():
		return NodeStatus{}, ctx.Err()
	}
}

func (s *NodeService) loop(ctx context.Context) {
	events := s.radio.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.internal:
			s.handle(ev)
		case ev, ok := <-events:
			if !ok {
				s.debugLog("node: event channel closed")
				return
			}
			s.handle(ev)
		}
	}
}

func (s *NodeService) handle(ev transport.Event) {
	switch e := ev.(type) {
	case transport.PollReceived:
		s.producer.OnPoll(e)
	case transport.WriteRequest:
		err := s.attr.Write(e.Offset, e.Data)
		if err != nil {
			s.debugLog("node: attribute write rejected", "conn", e.Conn, "error", err)
			s.traceError(e, err)
		}
		e.Result <- err
	case transport.Connected:
		s.sync.OnConnected(e)
	case transport.Disconnected:
		s.debugLog("node: disconnected", "conn", e.Conn, "reason", e.Reason)
	case transport.SyncEstablished:
		s.sync.OnSyncEstablished(e)
	case transport.SyncLost:
		if delay, err := s.sync.OnSyncLost(e); err != nil {
			s.scheduleAdvertising(delay)
		}
	case retryAdvertising:
		if delay, err := s.sync.Advertise(); err != nil {
			s.scheduleAdvertising(delay)
		}
	case statusRequest:
		e.reply <- s.snapshot()
	default:
		s.debugLog("node: ignoring event", "event", ev.Kind())
	}
}

func (s *NodeService) snapshot() NodeStatus {
	_, synced := s.sync.Synced()
	coord, written := s.attr.Coordinate()
	return NodeStatus{
		State:         s.State().String(),
		Synced:        synced,
		Advertising:   s.sync.Advertising(),
		Coordinate:    coord,
		HasCoordinate: written,
		Responses:     s.producer.Stats(),
	}
}

func (s *NodeService) scheduleAdvertising(delay time.Duration) {
	ctx := s.ctx
	time.AfterFunc(delay, func() {
		select {
		case s.internal <- retryAdvertising{}:
		case <-ctx.Done():
		}
	})
}

func (s *NodeService) traceError(e transport.WriteRequest, err error) {
	if s.config.ProtocolLogger == nil {
		return
	}
	s.config.ProtocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: e.Conn.String(),
		Direction:    log.DirectionIn,
		Layer:        log.LayerWire,
		Category:     log.CategoryError,
		LocalRole:    log.RoleNode,
		Error:        &log.ErrorEventData{Layer: log.LayerWire, Message: err.Error(), Context: "timing attribute write"},
	})
}

func (s *NodeService) debugLog(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, args...)
	}
}
