package commands

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/esl-mosaic/pawr-go/pkg/log"
)

func TestExportToJSONL(t *testing.T) {
	path := createTestLogFile(t, []log.Event{
		pollEvent(0, 5, 1),
		readingEvent(time.Millisecond, "1/0", 19, 55),
	})
	out := filepath.Join(t.TempDir(), "out.jsonl")

	if err := RunExport(path, "jsonl", out); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	defer f.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var m map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
			t.Fatalf("invalid JSON line %q: %v", scanner.Text(), err)
		}
		lines = append(lines, m)
	}

	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[1]["Coordinate"] != "1/0" {
		t.Errorf("expected coordinate 1/0, got %v", lines[1]["Coordinate"])
	}
	if lines[0]["Packet"] == nil {
		t.Error("expected packet payload in first line")
	}
}

func TestExportToCSV(t *testing.T) {
	path := createTestLogFile(t, []log.Event{
		pollEvent(0, 5, 1),
		readingEvent(time.Millisecond, "1/0", 19, 55),
	})
	out := filepath.Join(t.TempDir(), "out.csv")

	if err := RunExport(path, "csv", out); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(records))
	}
	if records[0][0] != "timestamp" || records[0][7] != "coordinate" {
		t.Errorf("unexpected header: %v", records[0])
	}
	if records[1][8] != "POLL" || records[1][9] != "5" || records[1][10] != "1" {
		t.Errorf("unexpected poll row: %v", records[1])
	}
	if records[2][7] != "1/0" || records[2][8] != "READING" {
		t.Errorf("unexpected reading row: %v", records[2])
	}
}

func TestExportUnknownFormat(t *testing.T) {
	path := createTestLogFile(t, nil)
	if err := RunExport(path, "xml", filepath.Join(t.TempDir(), "out")); err == nil {
		t.Error("expected error for unknown format")
	}
}
