// Package api serves the coordinator's read-only status over HTTP.
//
// Routes:
//
//	GET /livez                 liveness probe
//	GET /status                allocator and collector counters
//	GET /roster                commissioned nodes
//	GET /readings/latest       latest reading per coordinate
//	GET /readings?limit=N      stored readings, newest first
//	GET /readings/{subevent}/{slot}?limit=N
//
// The /readings routes other than /readings/latest need a ReadingStore and
// answer 404 without one.
package api
