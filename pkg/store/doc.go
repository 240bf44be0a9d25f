// Package store persists collected sensor readings in SQLite.
//
// A Store is a broadcast.Sink: the coordinator's collector hands it every
// decoded response, and the status API reads the most recent rows back.
package store
