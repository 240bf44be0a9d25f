package commissioning

// State is a commissioning session state.
type State uint8

const (
	StateIdle State = iota
	StateScanning
	StateConnecting
	StateConnected
	StateSyncTransferring
	StateDiscovering
	StateWriting
	StateSettling
	StateDisconnecting
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateIdle:             "IDLE",
	StateScanning:         "SCANNING",
	StateConnecting:       "CONNECTING",
	StateConnected:        "CONNECTED",
	StateSyncTransferring: "SYNC_TRANSFERRING",
	StateDiscovering:      "DISCOVERING",
	StateWriting:          "WRITING",
	StateSettling:         "SETTLING",
	StateDisconnecting:    "DISCONNECTING",
	StateDone:             "DONE",
	StateFailed:           "FAILED",
}

// String returns the state name.
func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "UNKNOWN"
}

// Terminal reports whether the session has ended.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
