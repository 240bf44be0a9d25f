package sensor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ReadingSize is the encoded size of a Reading in bytes.
const ReadingSize = 8

// ErrShortReading is returned when decoding fewer than ReadingSize bytes.
var ErrShortReading = errors.New("short sensor reading")

// Reading is one temperature/humidity sample.
type Reading struct {
	Temperature float32 `json:"temperature"`
	Humidity    float32 `json:"humidity"`
}

// String formats the reading with two decimals.
func (r Reading) String() string {
	return fmt.Sprintf("temp=%.2f humidity=%.2f", r.Temperature, r.Humidity)
}

// AppendBinary appends the reading as two IEEE-754 float32 values in
// little-endian byte order, temperature first.
func (r Reading) AppendBinary(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(r.Temperature))
	return binary.LittleEndian.AppendUint32(dst, math.Float32bits(r.Humidity))
}

// DecodeReading decodes a reading encoded by AppendBinary. Trailing bytes
// are ignored.
func DecodeReading(data []byte) (Reading, error) {
	if len(data) < ReadingSize {
		return Reading{}, fmt.Errorf("%w: %d bytes", ErrShortReading, len(data))
	}
	return Reading{
		Temperature: math.Float32frombits(binary.LittleEndian.Uint32(data[0:4])),
		Humidity:    math.Float32frombits(binary.LittleEndian.Uint32(data[4:8])),
	}, nil
}
