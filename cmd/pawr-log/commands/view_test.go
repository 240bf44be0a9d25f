package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/esl-mosaic/pawr-go/pkg/log"
)

func TestFormatPacketEvent(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, pollEvent(0, 42, 3))
	output := buf.String()

	for _, want := range []string{
		"2026-01-28T10:15:32.123456Z",
		"[conn:train-00]",
		"COORDINATOR",
		"OUT",
		"RADIO POLL",
		"Event: 42  Subevent: 3",
		"Size: 4 bytes",
		"Data: 1fff5900",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got:\n%s", want, output)
		}
	}
}

func TestFormatResponseWithSlot(t *testing.T) {
	slot := uint8(7)
	event := pollEvent(0, 9, 2)
	event.Direction = log.DirectionIn
	event.Packet.Kind = log.PacketResponse
	event.Packet.Slot = &slot

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "RESPONSE") {
		t.Errorf("expected RESPONSE label, got:\n%s", output)
	}
	if !strings.Contains(output, "Slot: 7") {
		t.Errorf("expected slot, got:\n%s", output)
	}
}

func TestFormatReadingEvent(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, readingEvent(0, "2/7", 21.5, 47))
	output := buf.String()

	if !strings.Contains(output, "WIRE READING") {
		t.Errorf("expected reading header, got:\n%s", output)
	}
	if !strings.Contains(output, "Coordinate: 2/7") {
		t.Errorf("expected coordinate, got:\n%s", output)
	}
	if !strings.Contains(output, "Temperature: 21.50") || !strings.Contains(output, "Humidity: 47.00") {
		t.Errorf("expected reading values, got:\n%s", output)
	}
}

func TestFormatStateChangeEvent(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sessionEvent(0, "c0ffee00-1111", "AA:BB:CC:DD:EE:01", "0/0", "WRITING", "COMMITTED"))
	output := buf.String()

	for _, want := range []string{"STATE", "Entity: COMMISSIONING", "WRITING -> COMMITTED", "Peer: AA:BB:CC:DD:EE:01"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got:\n%s", want, output)
		}
	}
}

func TestFormatControlEvent(t *testing.T) {
	event := log.Event{
		Timestamp: testTime,
		Direction: log.DirectionOut,
		Layer:     log.LayerRadio,
		Category:  log.CategoryControl,
		Procedure: &log.ProcedureEvent{Type: log.ProcedureWrite, Conn: 3, Detail: "handle=0x0012"},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "CTRL WRITE") {
		t.Errorf("expected CTRL WRITE header, got:\n%s", output)
	}
	if !strings.Contains(output, "Conn: 3") || !strings.Contains(output, "Detail: handle=0x0012") {
		t.Errorf("expected procedure details, got:\n%s", output)
	}
}

func TestFormatErrorEvent(t *testing.T) {
	code := 13
	event := log.Event{
		Timestamp: testTime,
		Layer:     log.LayerService,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerRadio,
			Message: "write rejected",
			Code:    &code,
			Context: "commissioning",
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	for _, want := range []string{"ERROR", "Message: write rejected", "Code: 13", "Context: commissioning"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got:\n%s", want, output)
		}
	}
}

func TestParseLayer(t *testing.T) {
	tests := []struct {
		input   string
		want    log.Layer
		wantErr bool
	}{
		{"radio", log.LayerRadio, false},
		{"WIRE", log.LayerWire, false},
		{"Service", log.LayerService, false},
		{"transport", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseLayer(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLayer(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseLayer(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseDirectionAndCategory(t *testing.T) {
	if d, err := ParseDirection("IN"); err != nil || d != log.DirectionIn {
		t.Errorf("ParseDirection(IN) = %v, %v", d, err)
	}
	if _, err := ParseDirection("sideways"); err == nil {
		t.Error("expected error for invalid direction")
	}
	if c, err := ParseCategory("control"); err != nil || c != log.CategoryControl {
		t.Errorf("ParseCategory(control) = %v, %v", c, err)
	}
	if _, err := ParseCategory("snapshot"); err == nil {
		t.Error("expected error for invalid category")
	}
}

func TestRunViewFilters(t *testing.T) {
	path := createTestLogFile(t, []log.Event{
		pollEvent(0, 1, 0),
		readingEvent(time.Millisecond, "0/1", 20, 40),
		readingEvent(2*time.Millisecond, "1/1", 21, 41),
	})

	layer := log.LayerWire
	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{Layer: &layer, Coordinate: "1/1"}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	output := buf.String()

	if strings.Count(output, "READING") != 1 {
		t.Errorf("expected one reading, got:\n%s", output)
	}
	if strings.Contains(output, "POLL") || strings.Contains(output, "0/1") {
		t.Errorf("filtered events leaked into output:\n%s", output)
	}
}

func TestRunViewMissingFile(t *testing.T) {
	var buf bytes.Buffer
	if err := RunView("/nonexistent/trace.plog", ViewFilter{}, &buf); err == nil {
		t.Error("expected error for missing file")
	}
}
