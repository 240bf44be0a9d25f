package wire

import (
	"errors"
	"fmt"
)

// Advertising data types used by the protocol.
const (
	ADTypeNameShortened    byte = 0x08
	ADTypeNameComplete     byte = 0x09
	ADTypeManufacturerData byte = 0xFF
)

// MaxADLength is the largest data length a single AD structure can carry.
const MaxADLength = 254

// ErrMalformed is returned for advertising data that cannot be parsed.
var ErrMalformed = errors.New("malformed advertising data")

// ADStructure is one length-type-value element of advertising data.
// Data aliases the parsed buffer.
type ADStructure struct {
	Type byte
	Data []byte
}

// AppendAD appends one AD structure: [len][type][data], where len counts
// the type byte and the data.
func AppendAD(dst []byte, typ byte, data []byte) ([]byte, error) {
	if len(data) > MaxADLength {
		return dst, fmt.Errorf("%w: %d data bytes exceed %d", ErrMalformed, len(data), MaxADLength)
	}
	dst = append(dst, byte(len(data)+1), typ)
	return append(dst, data...), nil
}

// ParseAD splits advertising data into its AD structures. A zero length
// byte terminates parsing early, as padding is allowed after the last element.
func ParseAD(buf []byte) ([]ADStructure, error) {
	var out []ADStructure
	for i := 0; i < len(buf); {
		n := int(buf[i])
		if n == 0 {
			break
		}
		if i+1+n > len(buf) {
			return nil, fmt.Errorf("%w: element at offset %d needs %d bytes, have %d", ErrMalformed, i, n, len(buf)-i-1)
		}
		out = append(out, ADStructure{Type: buf[i+1], Data: buf[i+2 : i+1+n]})
		i += 1 + n
	}
	return out, nil
}

// FindName returns the complete or shortened local name in ads, if present.
func FindName(ads []ADStructure) (string, bool) {
	for _, ad := range ads {
		if ad.Type == ADTypeNameComplete || ad.Type == ADTypeNameShortened {
			return string(ad.Data), true
		}
	}
	return "", false
}

// FindType returns the first AD structure of the given type.
func FindType(ads []ADStructure, typ byte) (ADStructure, bool) {
	for _, ad := range ads {
		if ad.Type == typ {
			return ad, true
		}
	}
	return ADStructure{}, false
}
