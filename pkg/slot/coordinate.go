package slot

import (
	"errors"
	"fmt"
)

// CoordinateSize is the encoded size of a Coordinate in bytes.
const CoordinateSize = 2

// ErrInvalidLength is returned when decoding a coordinate from a buffer that
// is not exactly CoordinateSize bytes.
var ErrInvalidLength = errors.New("invalid coordinate length")

// Coordinate is a node's exclusive position in the polling cycle.
type Coordinate struct {
	Subevent     uint8 `json:"subevent" yaml:"subevent"`
	ResponseSlot uint8 `json:"response_slot" yaml:"response_slot"`
}

// String returns the coordinate as "subevent/slot".
func (c Coordinate) String() string {
	return fmt.Sprintf("%d/%d", c.Subevent, c.ResponseSlot)
}

// MarshalBinary encodes the coordinate as {subevent, response_slot}.
func (c Coordinate) MarshalBinary() ([]byte, error) {
	return []byte{c.Subevent, c.ResponseSlot}, nil
}

// UnmarshalBinary decodes a coordinate. The buffer must be exactly
// CoordinateSize bytes long; on error the receiver is left untouched.
func (c *Coordinate) UnmarshalBinary(data []byte) error {
	if len(data) != CoordinateSize {
		return fmt.Errorf("%w: got %d bytes", ErrInvalidLength, len(data))
	}
	c.Subevent = data[0]
	c.ResponseSlot = data[1]
	return nil
}
