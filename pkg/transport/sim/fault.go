package sim

import "strings"

// Fault is a set of failure behaviours injected for one peripheral.
type Fault uint16

const (
	// FaultRejectConnect makes connection attempts complete with an error.
	FaultRejectConnect Fault = 1 << iota

	// FaultHideCharacteristic makes discovery report the characteristic
	// as absent.
	FaultHideCharacteristic

	// FaultDropDiscovery suppresses the discovery outcome.
	FaultDropDiscovery

	// FaultDropWriteAck suppresses the write acknowledgement.
	FaultDropWriteAck

	// FaultDropDisconnect suppresses the central's disconnect completion.
	FaultDropDisconnect

	// FaultDeaf delivers polls to the peripheral with nil data.
	FaultDeaf

	// FaultMute discards the peripheral's responses.
	FaultMute
)

var faultNames = []struct {
	f    Fault
	name string
}{
	{FaultRejectConnect, "reject-connect"},
	{FaultHideCharacteristic, "hide-characteristic"},
	{FaultDropDiscovery, "drop-discovery"},
	{FaultDropWriteAck, "drop-write-ack"},
	{FaultDropDisconnect, "drop-disconnect"},
	{FaultDeaf, "deaf"},
	{FaultMute, "mute"},
}

// String returns the fault names joined by "|".
func (f Fault) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	for _, n := range faultNames {
		if f&n.f != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// ParseFault parses a fault name as printed by String.
func ParseFault(name string) (Fault, bool) {
	for _, n := range faultNames {
		if n.name == name {
			return n.f, true
		}
	}
	return 0, false
}
