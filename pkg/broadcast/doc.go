// Package broadcast keeps the poll train running and collects responses.
//
// The Scheduler answers every subevent data request of the periodic train.
// Each subevent owns a fixed 32-byte poll buffer carrying a manufacturer
// specific element; its last byte is a wrapping liveness counter advanced
// once per subevent sent, so every node can observe that the coordinator
// is alive. All response slots of every polled subevent are opened.
//
// The Collector inspects every response slot report. Empty slots are
// counted, payloads are decoded into sensor readings and handed to a Sink
// through a bounded queue. Handle never blocks: when the queue is full the
// sample is dropped and counted.
package broadcast
