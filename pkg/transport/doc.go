// Package transport defines the radio primitives the protocol runs on.
//
// The coordinator drives a Central: it owns the periodic advertising train,
// scans for and connects to nodes, and supplies subevent data on request.
// A node drives a Peripheral: it advertises until commissioned, follows the
// train after a sync transfer and answers polls in its response slot.
//
// Both roles report asynchronous outcomes as Event values on a single
// channel returned by Events. Callers consume every event from one
// goroutine, so protocol state behind a transport needs no locking.
//
// # Event Flow
//
//	Coordinator (Central)              Node (Peripheral)
//	─────────────────────              ─────────────────
//	StartScan        ──DeviceFound──   StartAdvertising
//	Connect          ──Connected───►
//	TransferSync     ──────────────►   SyncEstablished
//	Write(coord)     ──WriteRequest─►  Result <- nil
//	                 ◄─WriteComplete─
//	Disconnect       ──Disconnected─►
//	SetSubeventData  ──────────────►   PollReceived
//	ResponseReceived ◄─────────────    SetResponseData
//
// Package sim provides an in-memory medium implementing both roles.
package transport
