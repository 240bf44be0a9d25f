package log

import "time"

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID identifies the commissioning session (UUID) or, for
	// polling traffic, the periodic train or sync.
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// LocalRole indicates whether this is a node or the coordinator.
	LocalRole Role `cbor:"6,keyasint,omitempty"`

	// RemoteAddr is the peer device address.
	RemoteAddr string `cbor:"7,keyasint,omitempty"`

	// Coordinate is the slot coordinate involved ("subevent/slot").
	Coordinate string `cbor:"8,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Packet      *PacketEvent      `cbor:"10,keyasint,omitempty"` // Radio layer
	Reading     *ReadingEvent     `cbor:"11,keyasint,omitempty"` // Wire layer (decoded)
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"` // Session/sync state
	Procedure   *ProcedureEvent   `cbor:"13,keyasint,omitempty"` // Connect, write, ...
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which protocol layer captured the event.
type Layer uint8

const (
	// LayerRadio is the transport layer (raw payloads).
	LayerRadio Layer = 0
	// LayerWire is the payload decoding layer.
	LayerWire Layer = 1
	// LayerService is the commissioning and polling logic.
	LayerService Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerRadio:
		return "RADIO"
	case LayerWire:
		return "WIRE"
	case LayerService:
		return "SERVICE"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a poll or response.
	CategoryMessage Category = 0
	// CategoryControl indicates a radio procedure.
	CategoryControl Category = 1
	// CategoryState indicates a state change.
	CategoryState Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryControl:
		return "CONTROL"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Role indicates whether the local endpoint is a node or the coordinator.
type Role uint8

const (
	// RoleNode indicates this is a node.
	RoleNode Role = 0
	// RoleCoordinator indicates this is the coordinator.
	RoleCoordinator Role = 1
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleNode:
		return "NODE"
	case RoleCoordinator:
		return "COORDINATOR"
	default:
		return "UNKNOWN"
	}
}

// MaxPacketData is the number of payload bytes kept in a PacketEvent.
const MaxPacketData = 64

// PacketEvent captures a poll or response payload at the radio layer.
type PacketEvent struct {
	// Kind distinguishes polls from responses.
	Kind PacketKind `cbor:"1,keyasint"`

	// EventCounter is the periodic event the packet belongs to.
	EventCounter uint16 `cbor:"2,keyasint"`

	// Subevent the packet was sent in.
	Subevent uint8 `cbor:"3,keyasint"`

	// Slot is the response slot (responses only).
	Slot *uint8 `cbor:"4,keyasint,omitempty"`

	// Size is the payload size in bytes; zero for an empty slot.
	Size int `cbor:"5,keyasint"`

	// Data is the payload (may be truncated).
	Data []byte `cbor:"6,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"7,keyasint,omitempty"`
}

// NewPacketEvent builds a PacketEvent, truncating data to MaxPacketData.
func NewPacketEvent(kind PacketKind, eventCounter uint16, subevent uint8, data []byte) *PacketEvent {
	p := &PacketEvent{
		Kind:         kind,
		EventCounter: eventCounter,
		Subevent:     subevent,
		Size:         len(data),
	}
	if len(data) > MaxPacketData {
		data = data[:MaxPacketData]
		p.Truncated = true
	}
	if len(data) > 0 {
		p.Data = append([]byte(nil), data...)
	}
	return p
}

// PacketKind distinguishes polls from responses.
type PacketKind uint8

const (
	// PacketPoll is a subevent poll.
	PacketPoll PacketKind = 0
	// PacketResponse is a response slot payload.
	PacketResponse PacketKind = 1
)

// String returns the packet kind name.
func (k PacketKind) String() string {
	switch k {
	case PacketPoll:
		return "POLL"
	case PacketResponse:
		return "RESPONSE"
	default:
		return "UNKNOWN"
	}
}

// ReadingEvent captures a decoded sensor reading.
type ReadingEvent struct {
	Temperature float32 `cbor:"1,keyasint"`
	Humidity    float32 `cbor:"2,keyasint"`
}

// StateChangeEvent captures commissioning and synchronization lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityCommissioning indicates a commissioning session state change.
	StateEntityCommissioning StateEntity = 0
	// StateEntitySync indicates a node synchronization change.
	StateEntitySync StateEntity = 1
	// StateEntityService indicates a role service lifecycle change.
	StateEntityService StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityCommissioning:
		return "COMMISSIONING"
	case StateEntitySync:
		return "SYNC"
	case StateEntityService:
		return "SERVICE"
	default:
		return "UNKNOWN"
	}
}

// ProcedureEvent captures a radio procedure issued or completed.
type ProcedureEvent struct {
	// Type of procedure.
	Type ProcedureType `cbor:"1,keyasint"`

	// Conn is the connection handle, if any.
	Conn uint16 `cbor:"2,keyasint,omitempty"`

	// Detail carries procedure-specific information.
	Detail string `cbor:"3,keyasint,omitempty"`
}

// ProcedureType indicates the radio procedure.
type ProcedureType uint8

const (
	ProcedureScan ProcedureType = iota
	ProcedureConnect
	ProcedureSyncTransfer
	ProcedureDiscover
	ProcedureWrite
	ProcedureDisconnect
	ProcedureAdvertise
)

// String returns the procedure name.
func (p ProcedureType) String() string {
	switch p {
	case ProcedureScan:
		return "SCAN"
	case ProcedureConnect:
		return "CONNECT"
	case ProcedureSyncTransfer:
		return "SYNC_TRANSFER"
	case ProcedureDiscover:
		return "DISCOVER"
	case ProcedureWrite:
		return "WRITE"
	case ProcedureDisconnect:
		return "DISCONNECT"
	case ProcedureAdvertise:
		return "ADVERTISE"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Code is the error code (if applicable).
	Code *int `cbor:"3,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"4,keyasint,omitempty"`
}
