package commands

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/esl-mosaic/pawr-go/pkg/log"
)

func readAll(t *testing.T, path string) []log.Event {
	t.Helper()
	r, err := log.NewReader(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer r.Close()

	var events []log.Event
	err = r.Each(func(e log.Event) error {
		events = append(events, e)
		return nil
	})
	if err != nil {
		t.Fatalf("failed to read event: %v", err)
	}
	return events
}

func TestRunFilterByCoordinate(t *testing.T) {
	path := createTestLogFile(t, []log.Event{
		pollEvent(0, 1, 0),
		readingEvent(time.Millisecond, "0/0", 20, 40),
		readingEvent(2*time.Millisecond, "1/0", 21, 41),
		readingEvent(3*time.Millisecond, "0/0", 22, 42),
	})
	out := filepath.Join(t.TempDir(), "filtered.plog")

	n, err := RunFilter(path, FilterOptions{Output: out, Coordinate: "0/0"})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 events written, got %d", n)
	}

	events := readAll(t, out)
	if len(events) != 2 {
		t.Fatalf("expected 2 events in output, got %d", len(events))
	}
	if events[1].Reading == nil || events[1].Reading.Temperature != 22 {
		t.Errorf("unexpected second event: %+v", events[1])
	}
}

func TestRunFilterBySubevent(t *testing.T) {
	path := createTestLogFile(t, []log.Event{
		readingEvent(0, "0/3", 20, 40),
		readingEvent(time.Millisecond, "1/0", 21, 41),
		readingEvent(2*time.Millisecond, "1/9", 22, 42),
		readingEvent(3*time.Millisecond, "10/1", 23, 43),
	})
	out := filepath.Join(t.TempDir(), "filtered.plog")

	n, err := RunFilter(path, FilterOptions{Output: out, Subevent: "1"})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 events written, got %d", n)
	}
}

func TestRunFilterByTimeAndLayer(t *testing.T) {
	path := createTestLogFile(t, []log.Event{
		pollEvent(0, 1, 0),
		pollEvent(2*time.Second, 2, 0),
		readingEvent(2*time.Second, "0/0", 20, 40),
	})
	out := filepath.Join(t.TempDir(), "filtered.plog")

	n, err := RunFilter(path, FilterOptions{
		Output:    out,
		TimeStart: testTime.Add(time.Second).Format(time.RFC3339),
		Layer:     "radio",
	})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 event written, got %d", n)
	}
}

func TestRunFilterInvalidOptions(t *testing.T) {
	path := createTestLogFile(t, nil)
	out := filepath.Join(t.TempDir(), "filtered.plog")

	for _, opts := range []FilterOptions{
		{Output: out, TimeStart: "yesterday"},
		{Output: out, TimeEnd: "tomorrow"},
		{Output: out, Layer: "transport"},
		{Output: out, Direction: "up"},
		{Output: out, Category: "snapshot"},
		{Output: out, Subevent: "256"},
	} {
		if _, err := RunFilter(path, opts); err == nil {
			t.Errorf("expected error for %+v", opts)
		}
	}
}
