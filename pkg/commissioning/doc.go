// Package commissioning assigns slot coordinates to nodes.
//
// A Session commissions exactly one node. It is an explicit state machine:
//
//	Scanning → Connecting → Connected → SyncTransferring → Discovering
//	         → Writing → Settling → Disconnecting → {Done, Failed}
//
// Every state has optional entry, event, timeout and exit handlers. The
// session consumes transport events from a single queue and never shares
// state with other goroutines.
//
// The coordinate is allocated on entering Writing and resolved when
// Disconnecting exits: committed if the session succeeded, rolled back
// otherwise. Failures after a connection was established still pass
// through Settling and Disconnecting so the link is always released.
//
// A Runner repeats sessions until the allocator is exhausted.
//
// # Timeouts
//
//	Discovering    DiscoveryTimeout   (default 10s)
//	Writing        WriteTimeout       (default 10s)
//	Settling       SettleDelay        (interval-derived)
//	Disconnecting  DisconnectTimeout  (default 30s, 0 waits forever)
//
// All timeout errors match ErrTimeout.
package commissioning
