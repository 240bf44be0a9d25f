package transport

import "fmt"

// Event is an asynchronous transport outcome.
type Event interface {
	// Kind returns a short event name for logs and traces.
	Kind() string
}

// DeviceFound reports an advertiser seen while scanning.
type DeviceFound struct {
	Address     Address
	Connectable bool
	RSSI        int8
	AdvData     []byte
}

// Connected reports the outcome of a connection attempt. On the peripheral
// side it reports an incoming connection.
type Connected struct {
	Conn ConnHandle
	Peer Address
	Err  error
}

// RemoteInfoAvailable reports that the peer's features are known, after
// which a sync transfer may be requested.
type RemoteInfoAvailable struct {
	Conn ConnHandle
}

// CharacteristicDiscovered reports the outcome of characteristic discovery.
type CharacteristicDiscovered struct {
	Conn   ConnHandle
	Found  bool
	Handle uint16
}

// WriteComplete reports the peer's acknowledgement of a write.
type WriteComplete struct {
	Conn ConnHandle
	Err  error
}

// Disconnected reports that a connection is gone.
type Disconnected struct {
	Conn   ConnHandle
	Reason uint8
}

// SubeventDataRequested asks the coordinator for poll payloads of Count
// subevents starting at Start.
type SubeventDataRequested struct {
	Start uint8
	Count uint8
}

// ResponseReceived reports one response slot of the previous periodic event.
// Data is nil when nothing was received in the slot.
type ResponseReceived struct {
	EventCounter uint16
	Subevent     uint8
	Slot         uint8
	Data         []byte
}

// SyncEstablished reports that the node follows the periodic train.
type SyncEstablished struct {
	Sync SyncHandle
	Peer Address
}

// SyncLost reports that the node lost the periodic train.
type SyncLost struct {
	Sync   SyncHandle
	Reason uint8
}

// PollReceived reports a poll on one of the node's subevents. Data is nil
// when reception failed.
type PollReceived struct {
	Sync         SyncHandle
	EventCounter uint16
	Subevent     uint8
	Data         []byte
}

// WriteRequest is an incoming attribute write on the node. The handler
// replies exactly once on Result with nil or a wire.ATTError.
type WriteRequest struct {
	Conn   ConnHandle
	Attr   uint16
	Offset uint16
	Data   []byte
	Result chan<- error
}

func (DeviceFound) Kind() string              { return "device_found" }
func (Connected) Kind() string                { return "connected" }
func (RemoteInfoAvailable) Kind() string      { return "remote_info" }
func (CharacteristicDiscovered) Kind() string { return "characteristic_discovered" }
func (WriteComplete) Kind() string            { return "write_complete" }
func (Disconnected) Kind() string             { return "disconnected" }
func (SubeventDataRequested) Kind() string    { return "subevent_data_request" }
func (ResponseReceived) Kind() string         { return "response_received" }
func (SyncEstablished) Kind() string          { return "sync_established" }
func (SyncLost) Kind() string                 { return "sync_lost" }
func (PollReceived) Kind() string             { return "poll_received" }
func (WriteRequest) Kind() string             { return "write_request" }

// String formats the connection handle for logs.
func (c ConnHandle) String() string {
	return fmt.Sprintf("conn#%d", uint16(c))
}
