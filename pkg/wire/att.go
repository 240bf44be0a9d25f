package wire

import "fmt"

// ATTError is an attribute protocol error code returned to a GATT client.
type ATTError uint8

// Attribute protocol error codes used by the timing characteristic.
const (
	ErrATTInvalidOffset          ATTError = 0x07
	ErrATTInvalidAttributeLength ATTError = 0x0D
	ErrATTUnlikely               ATTError = 0x0E
)

// Error implements the error interface.
func (e ATTError) Error() string {
	switch e {
	case ErrATTInvalidOffset:
		return "att: invalid offset"
	case ErrATTInvalidAttributeLength:
		return "att: invalid attribute value length"
	case ErrATTUnlikely:
		return "att: unlikely error"
	default:
		return fmt.Sprintf("att: error 0x%02X", uint8(e))
	}
}
