package sim

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/esl-mosaic/pawr-go/pkg/config"
	"github.com/esl-mosaic/pawr-go/pkg/transport"
	"github.com/esl-mosaic/pawr-go/pkg/wire"
)

// Central is the medium's coordinator endpoint.
type Central struct {
	m    *Medium
	addr transport.Address
	box  *mailbox
}

var _ transport.Central = (*Central)(nil)

// Address returns the central's device address.
func (c *Central) Address() transport.Address {
	return c.addr
}

// Events implements transport.Central.
func (c *Central) Events() <-chan transport.Event {
	return c.box.out
}

// StartPeriodicAdvertising implements transport.Central.
func (c *Central) StartPeriodicAdvertising(params config.Broadcast) error {
	if err := params.Validate(); err != nil {
		return fmt.Errorf("%w: periodic advertising: %w", transport.ErrTransport, err)
	}

	m := c.m
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.paActive {
		return fmt.Errorf("%w: periodic advertising already started", transport.ErrTransport)
	}
	m.params = params
	m.paActive = true
	m.eventCounter = 0
	clear(m.polled)
	clear(m.responses)
	m.debugLog("sim: periodic advertising started",
		"subevents", params.NumSubevents,
		"slots", params.NumResponseSlots)
	m.requestDataLocked()
	return nil
}

// StopPeriodicAdvertising implements transport.Central.
func (c *Central) StopPeriodicAdvertising() error {
	m := c.m
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.paActive {
		return fmt.Errorf("%w: periodic advertising not started", transport.ErrTransport)
	}
	m.paActive = false
	for _, p := range m.order {
		if p.synced {
			p.synced = false
			p.subevents = nil
			p.box.push(transport.SyncLost{Sync: p.sync, Reason: ReasonSupervisionLost})
		}
	}
	return nil
}

// StartScan implements transport.Central. Peripherals already advertising
// are reported at once; later ones as they start advertising.
func (c *Central) StartScan() error {
	m := c.m
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.scanning {
		return fmt.Errorf("%w: already scanning", transport.ErrTransport)
	}
	m.scanning = true
	for _, p := range m.order {
		if p.advertising {
			c.box.push(p.advReportLocked())
		}
	}
	return nil
}

// StopScan implements transport.Central.
func (c *Central) StopScan() error {
	m := c.m
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scanning = false
	return nil
}

// Connect implements transport.Central.
func (c *Central) Connect(addr transport.Address) (transport.ConnHandle, error) {
	m := c.m
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.peripherals[addr]
	if !ok || !p.advertising {
		return 0, fmt.Errorf("%w: %s is not advertising", transport.ErrTransport, addr)
	}

	m.nextConn++
	conn := transport.ConnHandle(m.nextConn)

	if p.faults&FaultRejectConnect != 0 {
		c.box.push(transport.Connected{
			Conn: conn,
			Peer: addr,
			Err:  fmt.Errorf("%w: connection to %s failed to be established", transport.ErrTransport, addr),
		})
		return conn, nil
	}

	p.advertising = false
	p.conn = conn
	m.links[conn] = p

	c.box.push(transport.Connected{Conn: conn, Peer: addr})
	c.box.push(transport.RemoteInfoAvailable{Conn: conn})
	p.box.push(transport.Connected{Conn: conn, Peer: c.addr})
	m.debugLog("sim: connected", "conn", conn, "peer", addr)
	return conn, nil
}

// TransferSync implements transport.Central. Peripherals that did not
// subscribe to sync transfers ignore it.
func (c *Central) TransferSync(conn transport.ConnHandle) error {
	m := c.m
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.links[conn]
	if !ok {
		return fmt.Errorf("%w: sync transfer: unknown %s", transport.ErrTransport, conn)
	}
	if !m.paActive {
		return fmt.Errorf("%w: sync transfer: no periodic train", transport.ErrTransport)
	}
	if !p.subscribed || p.synced {
		return nil
	}

	m.nextSync++
	p.sync = transport.SyncHandle(m.nextSync)
	p.synced = true
	p.subevents = nil
	p.box.push(transport.SyncEstablished{Sync: p.sync, Peer: c.addr})
	return nil
}

// DiscoverCharacteristic implements transport.Central.
func (c *Central) DiscoverCharacteristic(conn transport.ConnHandle, id uuid.UUID) error {
	m := c.m
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.links[conn]
	if !ok {
		return fmt.Errorf("%w: discovery: unknown %s", transport.ErrTransport, conn)
	}
	if p.faults&FaultDropDiscovery != 0 {
		return nil
	}

	ev := transport.CharacteristicDiscovered{Conn: conn}
	if id == wire.TimingCharacteristicUUID && p.faults&FaultHideCharacteristic == 0 {
		ev.Found = true
		ev.Handle = TimingAttrHandle
	}
	c.box.push(ev)
	return nil
}

// Write implements transport.Central. The peripheral's reply to the
// WriteRequest becomes the WriteComplete outcome.
func (c *Central) Write(conn transport.ConnHandle, attr uint16, data []byte) error {
	m := c.m
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.links[conn]
	if !ok {
		return fmt.Errorf("%w: write: unknown %s", transport.ErrTransport, conn)
	}
	if attr != TimingAttrHandle {
		c.box.push(transport.WriteComplete{
			Conn: conn,
			Err:  fmt.Errorf("%w: write: no attribute 0x%04X", transport.ErrTransport, attr),
		})
		return nil
	}

	result := make(chan error, 1)
	p.box.push(transport.WriteRequest{
		Conn:   conn,
		Attr:   attr,
		Data:   clone(data),
		Result: result,
	})

	dropAck := p.faults&FaultDropWriteAck != 0
	go func() {
		select {
		case err := <-result:
			if !dropAck {
				c.box.push(transport.WriteComplete{Conn: conn, Err: err})
			}
		case <-m.done:
		}
	}()
	return nil
}

// Disconnect implements transport.Central.
func (c *Central) Disconnect(conn transport.ConnHandle) error {
	m := c.m
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.unlinkLocked(conn)
	if p == nil {
		return fmt.Errorf("%w: disconnect: unknown %s", transport.ErrTransport, conn)
	}
	if p.faults&FaultDropDisconnect == 0 {
		c.box.push(transport.Disconnected{Conn: conn, Reason: ReasonLocalHost})
	}
	p.box.push(transport.Disconnected{Conn: conn, Reason: ReasonRemoteUser})
	return nil
}

// SetSubeventData implements transport.Central.
func (c *Central) SetSubeventData(data []transport.SubeventData) error {
	m := c.m
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.paActive {
		return fmt.Errorf("%w: set subevent data: no periodic train", transport.ErrTransport)
	}
	for _, d := range data {
		if d.Subevent >= m.params.NumSubevents {
			return fmt.Errorf("%w: set subevent data: subevent %d out of range", transport.ErrTransport, d.Subevent)
		}
		if int(d.ResponseSlotStart)+int(d.ResponseSlotCount) > int(m.params.NumResponseSlots) {
			return fmt.Errorf("%w: set subevent data: slots %d+%d out of range",
				transport.ErrTransport, d.ResponseSlotStart, d.ResponseSlotCount)
		}
	}

	for _, d := range data {
		m.polled[d.Subevent] = slotRange{start: d.ResponseSlotStart, count: d.ResponseSlotCount}
		for _, p := range m.order {
			if !p.synced || !p.listensLocked(d.Subevent) {
				continue
			}
			var payload []byte
			if p.faults&FaultDeaf == 0 {
				payload = clone(d.Data)
			}
			p.box.push(transport.PollReceived{
				Sync:         p.sync,
				EventCounter: m.eventCounter,
				Subevent:     d.Subevent,
				Data:         payload,
			})
		}
	}
	return nil
}
