package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/esl-mosaic/pawr-go/pkg/sensor"
)

// CompanyIDNordic is the Bluetooth SIG company identifier carried in every
// manufacturer-specific element of the protocol.
const CompanyIDNordic uint16 = 0x0059

// PollPacketSize is the size of one subevent's poll payload.
//
// Poll payload layout:
//
//	+-----+------+------------+------------------+----------+
//	| len | 0xFF | company id | reserved (zero)  | liveness |
//	+-----+------+------------+------------------+----------+
//	| 1   | 1    | 2 (LE)     | 27               | 1        |
//	+-----+------+------------+------------------+----------+
const PollPacketSize = 32

// manufacturerHeaderSize is len + type + company id.
const manufacturerHeaderSize = 4

// ResponsePacketSize is the size of a node's response payload.
//
// Response payload layout:
//
//	+-----+------+------------+------------------+------------------+
//	| len | 0xFF | company id | temperature      | humidity         |
//	+-----+------+------------+------------------+------------------+
//	| 1   | 1    | 2 (LE)     | float32 LE       | float32 LE       |
//	+-----+------+------------+------------------+------------------+
const ResponsePacketSize = manufacturerHeaderSize + sensor.ReadingSize

// InitPollBuffer writes the fixed manufacturer-specific header into a poll
// buffer and zeroes the rest. len(buf) must be between 5 and 255.
func InitPollBuffer(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
	buf[0] = byte(len(buf) - 1)
	buf[1] = ADTypeManufacturerData
	binary.LittleEndian.PutUint16(buf[2:4], CompanyIDNordic)
}

// PollLiveness returns the liveness counter carried in a poll payload.
func PollLiveness(buf []byte) (uint8, error) {
	if len(buf) < manufacturerHeaderSize+1 || buf[1] != ADTypeManufacturerData {
		return 0, fmt.Errorf("%w: not a poll payload", ErrMalformed)
	}
	return buf[len(buf)-1], nil
}

// AppendManufacturerData appends a manufacturer-specific AD structure.
func AppendManufacturerData(dst []byte, companyID uint16, payload []byte) ([]byte, error) {
	data := make([]byte, 2, 2+len(payload))
	binary.LittleEndian.PutUint16(data, companyID)
	data = append(data, payload...)
	return AppendAD(dst, ADTypeManufacturerData, data)
}

// ManufacturerData splits the data of a manufacturer-specific AD structure
// into company id and payload.
func ManufacturerData(ad ADStructure) (uint16, []byte, error) {
	if ad.Type != ADTypeManufacturerData || len(ad.Data) < 2 {
		return 0, nil, fmt.Errorf("%w: not manufacturer data", ErrMalformed)
	}
	return binary.LittleEndian.Uint16(ad.Data[0:2]), ad.Data[2:], nil
}

// AppendSensorResponse appends the response payload for r to dst.
func AppendSensorResponse(dst []byte, r sensor.Reading) []byte {
	dst = append(dst, byte(ResponsePacketSize-1), ADTypeManufacturerData)
	dst = binary.LittleEndian.AppendUint16(dst, CompanyIDNordic)
	return r.AppendBinary(dst)
}

// DecodeSensorResponse extracts the reading from a response payload.
func DecodeSensorResponse(buf []byte) (sensor.Reading, error) {
	ads, err := ParseAD(buf)
	if err != nil {
		return sensor.Reading{}, err
	}
	ad, ok := FindType(ads, ADTypeManufacturerData)
	if !ok {
		return sensor.Reading{}, fmt.Errorf("%w: no manufacturer data", ErrMalformed)
	}
	company, payload, err := ManufacturerData(ad)
	if err != nil {
		return sensor.Reading{}, err
	}
	if company != CompanyIDNordic {
		return sensor.Reading{}, fmt.Errorf("%w: company id 0x%04X", ErrMalformed, company)
	}
	r, err := sensor.DecodeReading(payload)
	if err != nil {
		return sensor.Reading{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return r, nil
}
