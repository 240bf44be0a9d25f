package wire

import "github.com/google/uuid"

// GATT identifiers of the timing service exposed by nodes.
var (
	TimingServiceUUID        = uuid.MustParse("12345678-1234-5678-1234-56789abcdef0")
	TimingCharacteristicUUID = uuid.MustParse("12345678-1234-5678-1234-56789abcdef1")
)

// DefaultNodeName is the advertised name the coordinator scans for.
const DefaultNodeName = "PAwR sync sample"
