package transport

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/esl-mosaic/pawr-go/pkg/config"
)

// ErrTransport is wrapped by every failed transport call.
var ErrTransport = errors.New("transport error")

// Address is a device address as reported by the radio.
type Address string

// ConnHandle identifies an ACL connection.
type ConnHandle uint16

// SyncHandle identifies a periodic advertising sync on a node.
type SyncHandle uint16

// SubeventData is one subevent's poll payload for the next periodic event.
type SubeventData struct {
	Subevent          uint8
	ResponseSlotStart uint8
	ResponseSlotCount uint8
	Data              []byte
}

// ResponseParams addresses a node's response.
type ResponseParams struct {
	RequestEvent     uint16
	RequestSubevent  uint8
	ResponseSubevent uint8
	ResponseSlot     uint8
}

// Central is the coordinator's view of the radio.
type Central interface {
	// Events returns the channel carrying every asynchronous outcome.
	Events() <-chan Event

	// StartPeriodicAdvertising creates and starts the periodic train.
	StartPeriodicAdvertising(params config.Broadcast) error

	// StopPeriodicAdvertising stops the periodic train.
	StopPeriodicAdvertising() error

	// StartScan starts scanning for connectable advertisers.
	StartScan() error

	// StopScan stops scanning.
	StopScan() error

	// Connect initiates a connection. The outcome arrives as Connected.
	Connect(addr Address) (ConnHandle, error)

	// TransferSync hands the periodic train's sync info to the peer.
	TransferSync(conn ConnHandle) error

	// DiscoverCharacteristic starts discovery of a characteristic.
	// The outcome arrives as CharacteristicDiscovered.
	DiscoverCharacteristic(conn ConnHandle, id uuid.UUID) error

	// Write writes an attribute value. The outcome arrives as WriteComplete.
	Write(conn ConnHandle, attr uint16, data []byte) error

	// Disconnect terminates a connection. Completion arrives as Disconnected.
	Disconnect(conn ConnHandle) error

	// SetSubeventData supplies poll payloads for the next periodic event.
	// Implementations copy the data before returning.
	SetSubeventData(data []SubeventData) error
}

// Peripheral is the node's view of the radio.
type Peripheral interface {
	// Events returns the channel carrying every asynchronous outcome.
	Events() <-chan Event

	// SubscribeSyncTransfer accepts sync transfers with the given skip and
	// supervision timeout.
	SubscribeSyncTransfer(skip uint16, timeout time.Duration) error

	// StartAdvertising starts connectable advertising under name.
	StartAdvertising(name string) error

	// StopAdvertising stops advertising.
	StopAdvertising() error

	// SetSyncSubevents selects the subevents the sync listens to.
	SetSyncSubevents(sync SyncHandle, subevents []uint8) error

	// SetResponseData queues a response for the addressed slot.
	// Implementations copy the data before returning.
	SetResponseData(sync SyncHandle, params ResponseParams, data []byte) error
}
