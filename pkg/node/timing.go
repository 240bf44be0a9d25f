package node

import (
	"github.com/esl-mosaic/pawr-go/pkg/slot"
	"github.com/esl-mosaic/pawr-go/pkg/wire"
)

// TimingAttribute is the writable timing characteristic holding the node's
// coordinate. It is not safe for concurrent use.
type TimingAttribute struct {
	coord   slot.Coordinate
	written bool
	onWrite func(slot.Coordinate)
}

// NewTimingAttribute creates the attribute. onWrite, if non-nil, is called
// after every accepted write.
func NewTimingAttribute(onWrite func(slot.Coordinate)) *TimingAttribute {
	return &TimingAttribute{onWrite: onWrite}
}

// Write handles a GATT write. Only complete two-byte writes at offset zero
// are accepted; rejected writes leave the stored coordinate unchanged.
func (a *TimingAttribute) Write(offset uint16, data []byte) error {
	if offset != 0 {
		return wire.ErrATTInvalidOffset
	}
	var c slot.Coordinate
	if err := c.UnmarshalBinary(data); err != nil {
		return wire.ErrATTInvalidAttributeLength
	}

	a.coord = c
	a.written = true
	if a.onWrite != nil {
		a.onWrite(c)
	}
	return nil
}

// Coordinate returns the stored coordinate and whether one was written.
// Before the first write the zero coordinate is returned.
func (a *TimingAttribute) Coordinate() (slot.Coordinate, bool) {
	return a.coord, a.written
}
