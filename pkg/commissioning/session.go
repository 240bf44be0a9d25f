package commissioning

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/esl-mosaic/pawr-go/pkg/config"
	"github.com/esl-mosaic/pawr-go/pkg/log"
	"github.com/esl-mosaic/pawr-go/pkg/slot"
	"github.com/esl-mosaic/pawr-go/pkg/transport"
	"github.com/esl-mosaic/pawr-go/pkg/wire"
)

// Config configures a Session.
type Config struct {
	// DeviceName is the advertised name a node must carry. Names are
	// compared in Unicode normalization form C.
	DeviceName string

	// ConnectTimeout bounds connection establishment, up to the remote
	// information report. Zero waits forever.
	ConnectTimeout time.Duration

	// DiscoveryTimeout bounds characteristic discovery.
	DiscoveryTimeout time.Duration

	// WriteTimeout bounds the coordinate write.
	WriteTimeout time.Duration

	// SettleDelay is the pause before disconnecting.
	SettleDelay time.Duration

	// DisconnectTimeout bounds the wait for disconnect completion.
	// Zero waits forever.
	DisconnectTimeout time.Duration

	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger

	// ProtocolLogger receives state changes and radio procedures.
	// If nil, tracing is disabled.
	ProtocolLogger log.Logger
}

// ConfigFrom derives a session Config from the coordinator configuration.
func ConfigFrom(c config.Coordinator) Config {
	return Config{
		DeviceName:        c.DeviceName,
		ConnectTimeout:    c.ConnectTimeout,
		DiscoveryTimeout:  c.DiscoveryTimeout,
		WriteTimeout:      c.WriteTimeout,
		SettleDelay:       c.EffectiveSettleDelay(),
		DisconnectTimeout: c.DisconnectTimeout,
	}
}

// Result is the outcome of one session.
type Result struct {
	SessionID uuid.UUID
	Peer      transport.Address

	// Coordinate is the coordinate written to the peer. It is only
	// meaningful when HasCoordinate is set.
	Coordinate    slot.Coordinate
	HasCoordinate bool

	// State is StateDone whenever the node acknowledged the coordinate
	// write. Err may still be set on a Done result when releasing the
	// link failed afterwards.
	State    State
	Err      error
	Started  time.Time
	Duration time.Duration
}

// OK reports whether the node was commissioned.
func (r Result) OK() bool {
	return r.State == StateDone
}

type handlers struct {
	enter   func(*Session)
	event   func(*Session, transport.Event)
	timeout func(*Session)
	exit    func(*Session)
}

var stateTable [StateFailed + 1]handlers

func init() {
	stateTable = [...]handlers{
		StateScanning: {
			enter: (*Session).enterScanning,
			event: (*Session).eventScanning,
			exit:  (*Session).exitScanning,
		},
		StateConnecting: {
			enter:   (*Session).startConnectTimer,
			event:   (*Session).eventConnecting,
			timeout: (*Session).timeoutConnecting,
		},
		StateConnected: {
			enter:   (*Session).startConnectTimer,
			event:   (*Session).eventConnected,
			timeout: func(s *Session) { s.fail(ErrConnectTimeout) },
		},
		StateSyncTransferring: {
			enter: (*Session).enterSyncTransferring,
		},
		StateDiscovering: {
			enter:   (*Session).enterDiscovering,
			event:   (*Session).eventDiscovering,
			timeout: func(s *Session) { s.fail(ErrDiscoveryTimeout) },
		},
		StateWriting: {
			enter:   (*Session).enterWriting,
			event:   (*Session).eventWriting,
			timeout: func(s *Session) { s.fail(ErrWriteTimeout) },
		},
		StateSettling: {
			enter:   (*Session).enterSettling,
			event:   (*Session).eventSettling,
			timeout: func(s *Session) { s.transition(StateDisconnecting, "settled") },
		},
		StateDisconnecting: {
			enter:   (*Session).enterDisconnecting,
			event:   (*Session).eventDisconnecting,
			timeout: (*Session).timeoutDisconnecting,
			exit:    (*Session).resolveAllocation,
		},
		StateFailed: {
			enter: (*Session).resolveAllocation,
		},
	}
}

// Session commissions a single node. A Session is driven by Run and is not
// safe for concurrent use.
type Session struct {
	id       uuid.UUID
	cfg      Config
	central  transport.Central
	alloc    *slot.Allocator
	events   <-chan transport.Event
	wantName string

	state    State
	scanning bool
	peer     transport.Address
	conn     transport.ConnHandle
	linked   bool
	attr     uint16

	coord     slot.Coordinate
	hasCoord  bool
	allocated bool
	acked     bool

	failure error

	timer  *time.Timer
	timerC <-chan time.Time
}

// NewSession creates a session reading transport events from events.
func NewSession(central transport.Central, alloc *slot.Allocator, events <-chan transport.Event, cfg Config) *Session {
	return &Session{
		id:       uuid.New(),
		cfg:      cfg,
		central:  central,
		alloc:    alloc,
		events:   events,
		wantName: norm.NFC.String(cfg.DeviceName),
	}
}

// ID returns the session identifier used in traces.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Run drives the session to Done or Failed. Cancelling ctx disconnects any
// peer, rolls back a pending allocation and fails the session.
func (s *Session) Run(ctx context.Context) Result {
	started := time.Now()
	s.transition(StateScanning, "session start")

	for !s.state.Terminal() {
		select {
		case <-ctx.Done():
			s.abort(ctx.Err())
		case ev, ok := <-s.events:
			if !ok {
				s.abort(ErrEventsClosed)
				continue
			}
			if h := stateTable[s.state].event; h != nil {
				h(s, ev)
			}
		case <-s.timerC:
			s.timerC = nil
			if h := stateTable[s.state].timeout; h != nil {
				h(s)
			}
		}
	}
	s.stopTimer()

	return Result{
		SessionID:     s.id,
		Peer:          s.peer,
		Coordinate:    s.coord,
		HasCoordinate: s.hasCoord,
		State:         s.state,
		Err:           s.failure,
		Started:       started,
		Duration:      time.Since(started),
	}
}

func (s *Session) transition(to State, reason string) {
	from := s.state
	s.stopTimer()
	if h := stateTable[from].exit; h != nil {
		h(s)
	}
	s.state = to

	s.debugLog("commissioning: state change",
		"session", s.id, "from", from, "to", to, "reason", reason)
	s.trace(log.Event{
		Layer:    log.LayerService,
		Category: log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityCommissioning,
			OldState: from.String(),
			NewState: to.String(),
			Reason:   reason,
		},
	})

	if h := stateTable[to].enter; h != nil {
		h(s)
	}
}

// fail records err and releases the session. Once a connection exists the
// failure passes through Settling and Disconnecting.
func (s *Session) fail(err error) {
	if s.failure == nil {
		s.failure = err
	}
	s.trace(log.Event{
		Layer:    log.LayerService,
		Category: log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerService,
			Message: err.Error(),
			Context: s.state.String(),
		},
	})

	if s.conn != 0 {
		s.transition(StateSettling, err.Error())
		return
	}
	s.transition(StateFailed, err.Error())
}

func (s *Session) abort(err error) {
	if s.failure == nil {
		s.failure = err
	}
	if s.conn != 0 && s.state != StateDisconnecting {
		if derr := s.central.Disconnect(s.conn); derr != nil {
			s.debugLog("commissioning: disconnect on abort failed", "session", s.id, "error", derr)
		}
		s.linked = false
	}
	if s.acked {
		s.finish(err.Error())
		return
	}
	s.transition(StateFailed, err.Error())
}

// finish ends the session. A node that acknowledged its coordinate holds
// it from then on, so the session is Done even if the release failed.
func (s *Session) finish(reason string) {
	s.resolveAllocation()
	if s.failure == nil || s.acked {
		s.transition(StateDone, reason)
		return
	}
	s.transition(StateFailed, reason)
}

// resolveAllocation commits the pending coordinate once the write was
// acknowledged and rolls it back otherwise. It runs at most once per
// allocation.
func (s *Session) resolveAllocation() {
	if !s.allocated {
		return
	}
	s.allocated = false

	if !s.acked {
		s.alloc.Rollback()
		s.debugLog("commissioning: allocation rolled back", "session", s.id, "coordinate", s.coord)
		return
	}
	if err := s.alloc.Commit(); err != nil {
		s.failure = fmt.Errorf("commit: %w", err)
		return
	}
	s.debugLog("commissioning: allocation committed", "session", s.id, "coordinate", s.coord)
}

// Scanning

func (s *Session) enterScanning() {
	s.peer = ""
	s.conn = 0
	s.linked = false

	s.traceProcedure(log.ProcedureScan, "")
	if err := s.central.StartScan(); err != nil {
		s.fail(fmt.Errorf("start scan: %w", err))
		return
	}
	s.scanning = true
}

func (s *Session) eventScanning(ev transport.Event) {
	found, ok := ev.(transport.DeviceFound)
	if !ok || !found.Connectable || !s.nameMatches(found.AdvData) {
		return
	}

	s.stopScan()
	s.peer = found.Address
	s.traceProcedure(log.ProcedureConnect, "")

	conn, err := s.central.Connect(found.Address)
	if err != nil {
		s.transition(StateScanning, fmt.Sprintf("connect failed: %v", err))
		return
	}
	s.conn = conn
	s.transition(StateConnecting, "device found")
}

func (s *Session) exitScanning() {
	if s.scanning {
		s.stopScan()
	}
}

func (s *Session) stopScan() {
	s.scanning = false
	if err := s.central.StopScan(); err != nil {
		s.debugLog("commissioning: stop scan failed", "session", s.id, "error", err)
	}
}

func (s *Session) nameMatches(adv []byte) bool {
	ads, err := wire.ParseAD(adv)
	if err != nil {
		return false
	}
	name, ok := wire.FindName(ads)
	return ok && norm.NFC.String(name) == s.wantName
}

// Connecting / Connected

func (s *Session) startConnectTimer() {
	if s.cfg.ConnectTimeout > 0 {
		s.startTimer(s.cfg.ConnectTimeout)
	}
}

// timeoutConnecting cancels the pending connection.
func (s *Session) timeoutConnecting() {
	s.traceProcedure(log.ProcedureDisconnect, "connect timeout")
	if err := s.central.Disconnect(s.conn); err != nil {
		s.debugLog("commissioning: cancel connection failed", "session", s.id, "error", err)
	}
	s.conn = 0
	s.fail(ErrConnectTimeout)
}

func (s *Session) eventConnecting(ev transport.Event) {
	switch ev := ev.(type) {
	case transport.Connected:
		if ev.Conn != s.conn {
			return
		}
		if ev.Err != nil {
			s.conn = 0
			s.transition(StateScanning, fmt.Sprintf("connection failed: %v", ev.Err))
			return
		}
		s.linked = true
		s.transition(StateConnected, "connected")
	case transport.Disconnected:
		if ev.Conn != s.conn {
			return
		}
		s.conn = 0
		s.transition(StateScanning, "disconnected while connecting")
	}
}

func (s *Session) eventConnected(ev transport.Event) {
	switch ev := ev.(type) {
	case transport.RemoteInfoAvailable:
		if ev.Conn == s.conn {
			s.transition(StateSyncTransferring, "remote info available")
		}
	case transport.Disconnected:
		s.onDisconnected(ev)
	}
}

// SyncTransferring / Discovering / Writing

func (s *Session) enterSyncTransferring() {
	s.traceProcedure(log.ProcedureSyncTransfer, "")
	if err := s.central.TransferSync(s.conn); err != nil {
		s.fail(fmt.Errorf("sync transfer: %w", err))
		return
	}
	s.transition(StateDiscovering, "transfer issued")
}

func (s *Session) enterDiscovering() {
	s.traceProcedure(log.ProcedureDiscover, wire.TimingCharacteristicUUID.String())
	if err := s.central.DiscoverCharacteristic(s.conn, wire.TimingCharacteristicUUID); err != nil {
		s.fail(fmt.Errorf("discover: %w", err))
		return
	}
	s.startTimer(s.cfg.DiscoveryTimeout)
}

func (s *Session) eventDiscovering(ev transport.Event) {
	switch ev := ev.(type) {
	case transport.CharacteristicDiscovered:
		if ev.Conn != s.conn {
			return
		}
		if !ev.Found {
			s.fail(ErrCharacteristicNotFound)
			return
		}
		s.attr = ev.Handle
		s.transition(StateWriting, "characteristic found")
	case transport.Disconnected:
		s.onDisconnected(ev)
	}
}

func (s *Session) enterWriting() {
	coord, err := s.alloc.Allocate()
	if err != nil {
		s.fail(fmt.Errorf("allocate: %w", err))
		return
	}
	s.coord = coord
	s.hasCoord = true
	s.allocated = true

	data, _ := coord.MarshalBinary()
	s.traceProcedure(log.ProcedureWrite, coord.String())
	if err := s.central.Write(s.conn, s.attr, data); err != nil {
		s.fail(fmt.Errorf("write: %w", err))
		return
	}
	s.startTimer(s.cfg.WriteTimeout)
}

func (s *Session) eventWriting(ev transport.Event) {
	switch ev := ev.(type) {
	case transport.WriteComplete:
		if ev.Conn != s.conn {
			return
		}
		if ev.Err != nil {
			s.fail(fmt.Errorf("%w: %w", ErrWriteRejected, ev.Err))
			return
		}
		s.acked = true
		s.transition(StateSettling, "write acknowledged")
	case transport.Disconnected:
		s.onDisconnected(ev)
	}
}

func (s *Session) onDisconnected(ev transport.Disconnected) {
	if ev.Conn != s.conn {
		return
	}
	s.linked = false
	s.fail(ErrDisconnected)
}

// Settling / Disconnecting

func (s *Session) enterSettling() {
	if s.cfg.SettleDelay <= 0 {
		s.transition(StateDisconnecting, "no settle delay")
		return
	}
	s.startTimer(s.cfg.SettleDelay)
}

func (s *Session) eventSettling(ev transport.Event) {
	if d, ok := ev.(transport.Disconnected); ok && d.Conn == s.conn {
		s.linked = false
	}
}

func (s *Session) enterDisconnecting() {
	if !s.linked {
		s.finish("link already down")
		return
	}

	s.traceProcedure(log.ProcedureDisconnect, "")
	if err := s.central.Disconnect(s.conn); err != nil {
		// The completion may still be queued; the watchdog bounds the wait.
		s.warnLog("commissioning: disconnect failed", "session", s.id, "error", err)
	}
	if s.cfg.DisconnectTimeout > 0 {
		s.startTimer(s.cfg.DisconnectTimeout)
	}
}

func (s *Session) eventDisconnecting(ev transport.Event) {
	if d, ok := ev.(transport.Disconnected); ok && d.Conn == s.conn {
		s.linked = false
		s.finish("disconnected")
	}
}

func (s *Session) timeoutDisconnecting() {
	if s.failure == nil {
		s.failure = ErrDisconnectTimeout
	}
	s.warnLog("commissioning: disconnect watchdog expired", "session", s.id, "conn", s.conn)
	s.finish("disconnect watchdog expired")
}

// Timers and logging

func (s *Session) startTimer(d time.Duration) {
	s.stopTimer()
	s.timer = time.NewTimer(d)
	s.timerC = s.timer.C
}

func (s *Session) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerC = nil
}

func (s *Session) trace(ev log.Event) {
	if s.cfg.ProtocolLogger == nil {
		return
	}
	ev.Timestamp = time.Now()
	ev.ConnectionID = s.id.String()
	ev.LocalRole = log.RoleCoordinator
	ev.RemoteAddr = string(s.peer)
	if s.hasCoord {
		ev.Coordinate = s.coord.String()
	}
	s.cfg.ProtocolLogger.Log(ev)
}

func (s *Session) traceProcedure(p log.ProcedureType, detail string) {
	s.trace(log.Event{
		Direction: log.DirectionOut,
		Layer:     log.LayerRadio,
		Category:  log.CategoryControl,
		Procedure: &log.ProcedureEvent{Type: p, Conn: uint16(s.conn), Detail: detail},
	})
}

func (s *Session) debugLog(msg string, args ...any) {
	if s.cfg.Logger != nil {
		s.cfg.Logger.Debug(msg, args...)
	}
}

func (s *Session) warnLog(msg string, args ...any) {
	if s.cfg.Logger != nil {
		s.cfg.Logger.Warn(msg, args...)
	}
}
