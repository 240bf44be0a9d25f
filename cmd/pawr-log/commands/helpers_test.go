package commands

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/esl-mosaic/pawr-go/pkg/log"
)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.plog")

	w, err := log.CreateTrace(path)
	if err != nil {
		t.Fatalf("failed to create trace: %v", err)
	}

	for _, e := range events {
		w.Log(e)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close trace: %v", err)
	}

	return path
}

var testTime = time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC)

func pollEvent(offset time.Duration, counter uint16, subevent uint8) log.Event {
	return log.Event{
		Timestamp:    testTime.Add(offset),
		ConnectionID: "train-0001",
		Direction:    log.DirectionOut,
		Layer:        log.LayerRadio,
		Category:     log.CategoryMessage,
		LocalRole:    log.RoleCoordinator,
		Packet:       log.NewPacketEvent(log.PacketPoll, counter, subevent, []byte{0x1f, 0xff, 0x59, 0x00}),
	}
}

func readingEvent(offset time.Duration, coord string, temp, hum float32) log.Event {
	return log.Event{
		Timestamp:    testTime.Add(offset),
		ConnectionID: "train-0001",
		Direction:    log.DirectionIn,
		Layer:        log.LayerWire,
		Category:     log.CategoryMessage,
		LocalRole:    log.RoleCoordinator,
		Coordinate:   coord,
		Reading:      &log.ReadingEvent{Temperature: temp, Humidity: hum},
	}
}

func sessionEvent(offset time.Duration, id, peer, coord, oldState, newState string) log.Event {
	return log.Event{
		Timestamp:    testTime.Add(offset),
		ConnectionID: id,
		Direction:    log.DirectionOut,
		Layer:        log.LayerService,
		Category:     log.CategoryState,
		LocalRole:    log.RoleCoordinator,
		RemoteAddr:   peer,
		Coordinate:   coord,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityCommissioning,
			OldState: oldState,
			NewState: newState,
		},
	}
}
