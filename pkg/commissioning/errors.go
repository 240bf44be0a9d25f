package commissioning

import (
	"errors"
	"fmt"
)

// ErrTimeout is matched by every commissioning timeout.
var ErrTimeout = errors.New("commissioning timeout")

// Commissioning errors.
var (
	ErrConnectTimeout    = fmt.Errorf("connect: %w", ErrTimeout)
	ErrDiscoveryTimeout  = fmt.Errorf("discovery: %w", ErrTimeout)
	ErrWriteTimeout      = fmt.Errorf("write: %w", ErrTimeout)
	ErrDisconnectTimeout = fmt.Errorf("disconnect: %w", ErrTimeout)

	ErrDisconnected           = errors.New("peer disconnected")
	ErrCharacteristicNotFound = errors.New("timing characteristic not found")
	ErrWriteRejected          = errors.New("coordinate write rejected")
	ErrEventsClosed           = errors.New("event queue closed")
)
