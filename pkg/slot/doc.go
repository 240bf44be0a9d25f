// Package slot implements slot coordinates and their allocation.
//
// # Coordinates
//
// A Coordinate identifies one node within the polling cycle: the subevent it
// listens to and the response slot it answers in. On the wire a coordinate is
// exactly two bytes:
//
//	+----------+---------------+
//	| subevent | response slot |
//	+----------+---------------+
//	| 1 byte   | 1 byte        |
//	+----------+---------------+
//
// # Allocation
//
// The Allocator hands out coordinates from a monotonic counter bounded by
// capacity = numSubevents * numResponseSlots. Allocation is two-phase:
//
//  1. Allocate returns the tentative coordinate for the current counter
//  2. Commit advances the counter once the node confirmed the write
//  3. Rollback discards the tentative coordinate; the next Allocate
//     returns the same coordinate again
//
// Once the counter reaches capacity the allocator is exhausted and
// commissioning stops for the lifetime of the allocator.
//
// # Fill Order
//
// The counter-to-coordinate mapping is a bijection over 0..capacity-1.
// FillInterleaved spreads consecutive nodes across subevents first, which
// keeps subevents evenly loaded while the roster is still filling up.
// FillSequential fills every response slot of subevent 0 before moving on.
package slot
