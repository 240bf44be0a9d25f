// Package sim is an in-memory radio medium implementing transport.Central
// and transport.Peripheral.
//
// A Medium hosts one central and any number of peripherals. Each periodic
// event is advanced explicitly with Step, or on a ticker with Run:
//
//  1. responses queued for the previous event are reported slot by slot;
//     empty and collided slots are reported with nil data
//  2. the event counter advances
//  3. the central is asked for subevent data
//
// Polls reach synchronized peripherals listening to the polled subevent as
// soon as the central supplies them. Every endpoint receives its events
// through an unbounded FIFO mailbox, so the medium never blocks on a slow
// consumer and per-endpoint order is preserved.
//
// Faults can be injected per peripheral to exercise failure paths.
package sim
