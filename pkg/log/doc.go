// Package log provides structured protocol tracing.
//
// This package defines the Logger interface and Event types for capturing
// protocol events at the radio, wire and service layers. It is separate
// from operational logging (slog): a trace is a complete machine-readable
// record of a run, for debugging and offline analysis.
//
// # Basic Usage
//
//	// Console output via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// Binary trace file
//	trace, _ := log.CreateTrace("coordinator.ptrace")
//	defer trace.Close()
//
//	// Both
//	cfg.ProtocolLogger = log.Tee(trace, console)
//
// # Event Types
//
//   - Radio: poll and response payloads (PacketEvent)
//   - Wire: decoded sensor readings (ReadingEvent)
//   - Service: commissioning and sync state changes (StateChangeEvent)
//
// Radio procedures (scan, connect, sync transfer, write, disconnect) and
// errors have dedicated event types.
//
// # File Format
//
// Trace files are a stream of CBOR-encoded events. The pawr-log command
// views, filters and summarizes them.
package log
