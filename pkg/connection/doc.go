// Package connection paces retries of radio procedures.
//
// A coordinator that loses a commissioning session normally rescans at
// once. On a busy or noisy medium that turns into a tight loop of failed
// connections, so the coordinator can be configured to wait between
// sessions instead. Nodes use the same pacing when advertising cannot be
// restarted after a lost synchronization.
//
// # Delays
//
//	delay = base + random(0, base * jitter)
//	base  = min(initial * multiplier^attempt, max)
//
// The sequence resets after the next successful attempt.
package connection
