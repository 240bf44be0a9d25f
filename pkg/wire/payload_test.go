package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esl-mosaic/pawr-go/pkg/sensor"
)

func TestInitPollBuffer(t *testing.T) {
	buf := make([]byte, PollPacketSize)
	for i := range buf {
		buf[i] = 0xAA
	}

	InitPollBuffer(buf)

	assert.Equal(t, []byte{31, 0xFF, 0x59, 0x00}, buf[:4])
	for i := 4; i < len(buf); i++ {
		assert.Zero(t, buf[i], "byte %d", i)
	}

	ads, err := ParseAD(buf)
	require.NoError(t, err)
	require.Len(t, ads, 1)
	company, payload, err := ManufacturerData(ads[0])
	require.NoError(t, err)
	assert.Equal(t, CompanyIDNordic, company)
	assert.Len(t, payload, PollPacketSize-4)
}

func TestPollLiveness(t *testing.T) {
	buf := make([]byte, PollPacketSize)
	InitPollBuffer(buf)
	buf[len(buf)-1] = 42

	v, err := PollLiveness(buf)
	require.NoError(t, err)
	assert.Equal(t, uint8(42), v)

	_, err = PollLiveness([]byte{1, 2})
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestSensorResponseLayout(t *testing.T) {
	r := sensor.Reading{Temperature: 21.5, Humidity: 47.0}

	buf := AppendSensorResponse(nil, r)

	want := []byte{
		11, 0xFF, 0x59, 0x00,
		0x00, 0x00, 0xAC, 0x41,
		0x00, 0x00, 0x3C, 0x42,
	}
	assert.Equal(t, want, buf)
	assert.Len(t, buf, ResponsePacketSize)

	got, err := DecodeSensorResponse(buf)
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestDecodeSensorResponseErrors(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
	}{
		{"truncated element", []byte{11, 0xFF, 0x59}},
		{"no manufacturer data", []byte{3, ADTypeNameComplete, 'a', 'b'}},
		{"foreign company", []byte{11, 0xFF, 0x4C, 0x00, 0, 0, 0, 0, 0, 0, 0, 0}},
		{"short reading", []byte{5, 0xFF, 0x59, 0x00, 1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSensorResponse(tt.buf)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestParseADMultipleAndPadding(t *testing.T) {
	var buf []byte
	buf, err := AppendAD(buf, ADTypeNameComplete, []byte(DefaultNodeName))
	require.NoError(t, err)
	buf, err = AppendManufacturerData(buf, 0x1234, []byte{9})
	require.NoError(t, err)
	buf = append(buf, 0, 0, 0)

	ads, err := ParseAD(buf)
	require.NoError(t, err)
	require.Len(t, ads, 2)

	name, ok := FindName(ads)
	assert.True(t, ok)
	assert.Equal(t, DefaultNodeName, name)

	company, payload, err := ManufacturerData(ads[1])
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), company)
	assert.Equal(t, []byte{9}, payload)
}

func TestAppendADTooLong(t *testing.T) {
	_, err := AppendAD(nil, ADTypeManufacturerData, make([]byte, MaxADLength+1))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestATTErrorStrings(t *testing.T) {
	assert.Equal(t, "att: invalid offset", ErrATTInvalidOffset.Error())
	assert.Equal(t, "att: invalid attribute value length", ErrATTInvalidAttributeLength.Error())
	assert.Equal(t, "att: error 0x01", ATTError(1).Error())
}

func TestTimingUUIDs(t *testing.T) {
	assert.Equal(t, "12345678-1234-5678-1234-56789abcdef1", TimingCharacteristicUUID.String())
	assert.NotEqual(t, TimingServiceUUID, TimingCharacteristicUUID)
}
