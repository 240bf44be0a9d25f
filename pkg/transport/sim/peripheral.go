package sim

import (
	"fmt"
	"slices"
	"time"

	"github.com/esl-mosaic/pawr-go/pkg/transport"
	"github.com/esl-mosaic/pawr-go/pkg/wire"
)

// Peripheral is a simulated node endpoint. Its state is guarded by the
// medium's lock.
type Peripheral struct {
	m    *Medium
	addr transport.Address
	box  *mailbox

	faults Fault

	advertising bool
	advData     []byte

	conn transport.ConnHandle

	subscribed bool
	synced     bool
	sync       transport.SyncHandle
	subevents  []uint8
}

var _ transport.Peripheral = (*Peripheral)(nil)

// Address returns the peripheral's device address.
func (p *Peripheral) Address() transport.Address {
	return p.addr
}

// Synced reports whether the peripheral follows the periodic train.
func (p *Peripheral) Synced() bool {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	return p.synced
}

// Subevents returns the subevents the peripheral listens to.
func (p *Peripheral) Subevents() []uint8 {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	return slices.Clone(p.subevents)
}

// Events implements transport.Peripheral.
func (p *Peripheral) Events() <-chan transport.Event {
	return p.box.out
}

// SubscribeSyncTransfer implements transport.Peripheral.
func (p *Peripheral) SubscribeSyncTransfer(skip uint16, timeout time.Duration) error {
	if timeout <= 0 {
		return fmt.Errorf("%w: sync transfer: timeout must be positive", transport.ErrTransport)
	}
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	p.subscribed = true
	return nil
}

// StartAdvertising implements transport.Peripheral.
func (p *Peripheral) StartAdvertising(name string) error {
	adv, err := wire.AppendAD(nil, wire.ADTypeNameComplete, []byte(name))
	if err != nil {
		return fmt.Errorf("%w: advertising data: %w", transport.ErrTransport, err)
	}

	m := p.m
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.advertising {
		return fmt.Errorf("%w: already advertising", transport.ErrTransport)
	}
	if p.conn != 0 {
		return fmt.Errorf("%w: connectable advertising while connected", transport.ErrTransport)
	}
	p.advertising = true
	p.advData = adv
	if m.scanning {
		m.central.box.push(p.advReportLocked())
	}
	return nil
}

// StopAdvertising implements transport.Peripheral.
func (p *Peripheral) StopAdvertising() error {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	p.advertising = false
	return nil
}

// SetSyncSubevents implements transport.Peripheral.
func (p *Peripheral) SetSyncSubevents(sync transport.SyncHandle, subevents []uint8) error {
	m := p.m
	m.mu.Lock()
	defer m.mu.Unlock()

	if !p.synced || sync != p.sync {
		return fmt.Errorf("%w: set subevents: no sync %d", transport.ErrTransport, sync)
	}
	for _, s := range subevents {
		if s >= m.params.NumSubevents {
			return fmt.Errorf("%w: set subevents: subevent %d out of range", transport.ErrTransport, s)
		}
	}
	p.subevents = slices.Clone(subevents)
	return nil
}

// SetResponseData implements transport.Peripheral. Two responses for the
// same slot of one event collide and the slot is reported empty.
func (p *Peripheral) SetResponseData(sync transport.SyncHandle, params transport.ResponseParams, data []byte) error {
	m := p.m
	m.mu.Lock()
	defer m.mu.Unlock()

	if !p.synced || sync != p.sync {
		return fmt.Errorf("%w: set response data: no sync %d", transport.ErrTransport, sync)
	}
	if params.RequestEvent != m.eventCounter {
		return fmt.Errorf("%w: set response data: event %d is over", transport.ErrTransport, params.RequestEvent)
	}
	r, ok := m.polled[params.ResponseSubevent]
	if !ok || !r.contains(params.ResponseSlot) {
		return fmt.Errorf("%w: set response data: slot %d/%d not open",
			transport.ErrTransport, params.ResponseSubevent, params.ResponseSlot)
	}
	if p.faults&FaultMute != 0 {
		return nil
	}

	key := slotKey{params.ResponseSubevent, params.ResponseSlot}
	if resp, taken := m.responses[key]; taken {
		resp.collided = true
		m.debugLog("sim: response collision", "subevent", key.subevent, "slot", key.slot)
		return nil
	}
	m.responses[key] = &response{data: clone(data)}
	return nil
}

func (p *Peripheral) listensLocked(subevent uint8) bool {
	return slices.Contains(p.subevents, subevent)
}

func (p *Peripheral) advReportLocked() transport.DeviceFound {
	return transport.DeviceFound{
		Address:     p.addr,
		Connectable: true,
		RSSI:        -50,
		AdvData:     clone(p.advData),
	}
}
