package log

import (
	"testing"
	"time"
)

func TestReaderFilters(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	state := CategoryState
	radio := LayerRadio
	out := DirectionOut
	coordinator := RoleCoordinator
	var sub uint8 = 2

	events := []Event{
		{Timestamp: base, ConnectionID: "s1", Layer: LayerService, Category: CategoryState, RemoteAddr: "A"},
		{Timestamp: base.Add(time.Second), ConnectionID: "s1", Layer: LayerRadio, Category: CategoryMessage, Direction: DirectionOut},
		{Timestamp: base.Add(2 * time.Second), ConnectionID: "s2", Layer: LayerService, Category: CategoryState, Coordinate: "0/1"},
		{Timestamp: base.Add(3 * time.Second), ConnectionID: "s2", Layer: LayerRadio, Category: CategoryMessage, Direction: DirectionIn},
		{Timestamp: base.Add(4 * time.Second), ConnectionID: "sync-1", LocalRole: RoleCoordinator, Coordinate: "2/7"},
		{Timestamp: base.Add(5 * time.Second), ConnectionID: "sync-2", LocalRole: RoleCoordinator, Coordinate: "12/2"},
	}
	path := createTestTrace(t, events)

	start := base.Add(time.Second)
	end := base.Add(3 * time.Second)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 6},
		{"connection", Filter{ConnectionID: "s2"}, 2},
		{"category", Filter{Category: &state}, 2},
		{"layer and direction", Filter{Layer: &radio, Direction: &out}, 1},
		{"time window", Filter{TimeStart: &start, TimeEnd: &end}, 2},
		{"peer", Filter{RemoteAddr: "A"}, 1},
		{"coordinate", Filter{Coordinate: "0/1"}, 1},
		{"subevent", Filter{Subevent: &sub}, 1},
		{"role", Filter{Role: &coordinator}, 2},
		{"no match", Filter{ConnectionID: "nope"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewFilteredReader(path, tt.filter)
			if err != nil {
				t.Fatalf("NewFilteredReader failed: %v", err)
			}
			defer r.Close()

			if got := len(readAll(t, r)); got != tt.want {
				t.Errorf("got %d events, want %d", got, tt.want)
			}
		})
	}
}

func TestReaderMissingFile(t *testing.T) {
	if _, err := NewReader("/nonexistent/trace.ptrace"); err == nil {
		t.Error("expected error for missing file")
	}
}
