package sim

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/esl-mosaic/pawr-go/pkg/config"
	"github.com/esl-mosaic/pawr-go/pkg/transport"
)

// TimingAttrHandle is the attribute handle of the timing characteristic
// on every simulated peripheral.
const TimingAttrHandle uint16 = 0x0012

// HCI disconnect reasons reported by the medium.
const (
	ReasonRemoteUser      uint8 = 0x13
	ReasonLocalHost       uint8 = 0x16
	ReasonSupervisionLost uint8 = 0x08
)

// Config configures a Medium.
type Config struct {
	// CentralAddress is the coordinator's address. Empty generates one.
	CentralAddress transport.Address

	// Logger for debug output. Nil disables logging.
	Logger *slog.Logger
}

// Medium is a simulated radio shared by one central and many peripherals.
type Medium struct {
	mu sync.Mutex

	logger *slog.Logger

	central     *Central
	peripherals map[transport.Address]*Peripheral
	order       []*Peripheral

	links    map[transport.ConnHandle]*Peripheral
	nextConn uint16
	nextSync uint16

	scanning bool

	params       config.Broadcast
	paActive     bool
	eventCounter uint16
	polled       map[uint8]slotRange
	responses    map[slotKey]*response

	done      chan struct{}
	closeOnce sync.Once
}

type slotRange struct {
	start, count uint8
}

func (r slotRange) contains(slot uint8) bool {
	return slot >= r.start && int(slot) < int(r.start)+int(r.count)
}

type slotKey struct {
	subevent, slot uint8
}

type response struct {
	data     []byte
	collided bool
}

// NewMedium creates an empty medium with its central endpoint.
func NewMedium(cfg Config) *Medium {
	m := &Medium{
		logger:      cfg.Logger,
		peripherals: make(map[transport.Address]*Peripheral),
		links:       make(map[transport.ConnHandle]*Peripheral),
		polled:      make(map[uint8]slotRange),
		responses:   make(map[slotKey]*response),
		done:        make(chan struct{}),
	}
	addr := cfg.CentralAddress
	if addr == "" {
		addr = NewAddress()
	}
	m.central = &Central{m: m, addr: addr, box: newMailbox(m.done)}
	return m
}

// NewAddress returns a random static device address.
func NewAddress() transport.Address {
	id := uuid.New()
	// Random static addresses have the two top bits set.
	id[10] |= 0xC0
	return transport.Address(fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X (random)",
		id[10], id[11], id[12], id[13], id[14], id[15]))
}

// Central returns the medium's central endpoint.
func (m *Medium) Central() *Central {
	return m.central
}

// AddPeripheral attaches a new peripheral with a generated address.
func (m *Medium) AddPeripheral() *Peripheral {
	m.mu.Lock()
	defer m.mu.Unlock()

	addr := NewAddress()
	for _, taken := m.peripherals[addr]; taken; _, taken = m.peripherals[addr] {
		addr = NewAddress()
	}
	p := &Peripheral{m: m, addr: addr, box: newMailbox(m.done)}
	m.peripherals[addr] = p
	m.order = append(m.order, p)
	return p
}

// Peripheral returns the peripheral with the given address.
func (m *Medium) Peripheral(addr transport.Address) (*Peripheral, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.peripherals[addr]
	return p, ok
}

// InjectFault adds faults to a peripheral.
func (m *Medium) InjectFault(addr transport.Address, f Fault) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.peripherals[addr]
	if !ok {
		return fmt.Errorf("%w: unknown peripheral %s", transport.ErrTransport, addr)
	}
	p.faults |= f
	return nil
}

// ClearFault removes faults from a peripheral.
func (m *Medium) ClearFault(addr transport.Address, f Fault) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.peripherals[addr]
	if !ok {
		return fmt.Errorf("%w: unknown peripheral %s", transport.ErrTransport, addr)
	}
	p.faults &^= f
	return nil
}

// DropSync makes a peripheral lose the periodic train.
func (m *Medium) DropSync(addr transport.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.peripherals[addr]
	if !ok || !p.synced {
		return
	}
	p.synced = false
	p.subevents = nil
	p.box.push(transport.SyncLost{Sync: p.sync, Reason: ReasonSupervisionLost})
}

// DropLink tears down a peripheral's connection as if the link was lost.
func (m *Medium) DropLink(addr transport.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.peripherals[addr]
	if !ok || p.conn == 0 {
		return
	}
	conn := p.conn
	m.unlinkLocked(conn)
	m.central.box.push(transport.Disconnected{Conn: conn, Reason: ReasonSupervisionLost})
	p.box.push(transport.Disconnected{Conn: conn, Reason: ReasonSupervisionLost})
}

// EventCounter returns the current periodic event counter.
func (m *Medium) EventCounter() uint16 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.eventCounter
}

// Scanning reports whether the central is scanning.
func (m *Medium) Scanning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scanning
}

// Step advances the periodic train by one event.
func (m *Medium) Step() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.paActive {
		return
	}

	for s := uint8(0); s < m.params.NumSubevents; s++ {
		r, ok := m.polled[s]
		if !ok {
			continue
		}
		for slot := r.start; int(slot) < int(r.start)+int(r.count); slot++ {
			var data []byte
			if resp, ok := m.responses[slotKey{s, slot}]; ok && !resp.collided {
				data = resp.data
			}
			m.central.box.push(transport.ResponseReceived{
				EventCounter: m.eventCounter,
				Subevent:     s,
				Slot:         slot,
				Data:         data,
			})
		}
	}

	clear(m.polled)
	clear(m.responses)
	m.eventCounter++
	m.requestDataLocked()
}

// Run steps the medium every interval until ctx is cancelled or the medium
// is closed.
func (m *Medium) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case <-ticker.C:
			m.Step()
		}
	}
}

// Close shuts the medium down and closes every event channel.
func (m *Medium) Close() {
	m.closeOnce.Do(func() { close(m.done) })
}

func (m *Medium) requestDataLocked() {
	m.central.box.push(transport.SubeventDataRequested{
		Start: 0,
		Count: m.params.NumSubevents,
	})
}

func (m *Medium) unlinkLocked(conn transport.ConnHandle) *Peripheral {
	p, ok := m.links[conn]
	if !ok {
		return nil
	}
	delete(m.links, conn)
	p.conn = 0
	return p
}

func (m *Medium) debugLog(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Debug(msg, args...)
	}
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
