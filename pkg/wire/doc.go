// Package wire defines the over-the-air formats of the polling protocol.
//
// All broadcast payloads, in both directions, are advertising data made of
// length-type-value AD structures. The protocol uses a single
// manufacturer-specific element:
//
//	[length][0xFF][company id, 2 bytes LE][payload]
//
// Polls carry a fixed 32-byte element whose last byte is a wrapping liveness
// counter. Responses carry a sensor reading as two little-endian IEEE-754
// float32 values (temperature, humidity). The byte order is fixed so that a
// reading round-trips between hosts of different endianness.
//
// Commissioning writes a two-byte slot coordinate to the timing
// characteristic; malformed writes are answered with ATT error codes.
package wire
