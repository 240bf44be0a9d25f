// Package sensor provides the sample-publishing side of a node.
//
// A Publisher samples a Source on a fixed interval (5 seconds by default) and
// publishes each Reading into a Channel. The Channel holds a single value:
// publishing always overwrites, and readers never block. A reader learns
// whether the value is fresh, i.e. published since its last successful read,
// so a poll that arrives between two samples can leave its slot empty instead
// of repeating stale data.
package sensor
