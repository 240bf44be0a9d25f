package commands

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/esl-mosaic/pawr-go/pkg/log"
)

// Stats holds aggregate statistics about a trace file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Polls             int
	Responses         int
	Readings          int
	Sessions          map[string]*SessionStats
	Coordinates       map[string]int
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// SessionStats holds statistics for one commissioning session.
type SessionStats struct {
	FirstSeen  time.Time
	LastSeen   time.Time
	Events     int
	Peer       string
	Coordinate string
	FinalState string
}

// RunStats analyzes the trace file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open trace file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Sessions:          make(map[string]*SessionStats),
		Coordinates:       make(map[string]int),
	}

	err = reader.Each(func(event log.Event) error {
		stats.add(event)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to read event: %w", err)
	}

	printStats(w, stats)
	return nil
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByLayer[event.Layer]++
	s.EventsByCategory[event.Category]++
	s.EventsByDirection[event.Direction]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	switch {
	case event.Packet != nil && event.Packet.Kind == log.PacketPoll:
		s.Polls++
	case event.Packet != nil && event.Packet.Kind == log.PacketResponse:
		s.Responses++
	case event.Reading != nil:
		s.Readings++
		s.Coordinates[event.Coordinate]++
	case event.Error != nil:
		s.Errors++
	}

	if event.StateChange != nil && event.StateChange.Entity == log.StateEntityCommissioning {
		sess, ok := s.Sessions[event.ConnectionID]
		if !ok {
			sess = &SessionStats{FirstSeen: event.Timestamp}
			s.Sessions[event.ConnectionID] = sess
		}
		sess.Events++
		sess.LastSeen = event.Timestamp
		sess.FinalState = event.StateChange.NewState
		if event.RemoteAddr != "" {
			sess.Peer = event.RemoteAddr
		}
		if event.Coordinate != "" {
			sess.Coordinate = event.Coordinate
		}
	}
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== PAwR Protocol Trace Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Millisecond))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerRadio, log.LayerWire, log.LayerService} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryMessage, log.CategoryControl, log.CategoryState, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Polls:     %d\n", stats.Polls)
	fmt.Fprintf(w, "Responses: %d\n", stats.Responses)
	fmt.Fprintf(w, "Readings:  %d from %d coordinates\n", stats.Readings, len(stats.Coordinates))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Sessions: %d\n", len(stats.Sessions))
	if len(stats.Sessions) > 0 {
		type sessionInfo struct {
			id    string
			stats *SessionStats
		}
		sessions := make([]sessionInfo, 0, len(stats.Sessions))
		for id, ss := range stats.Sessions {
			sessions = append(sessions, sessionInfo{id, ss})
		}
		slices.SortFunc(sessions, func(a, b sessionInfo) int {
			return cmp.Compare(a.stats.FirstSeen.UnixNano(), b.stats.FirstSeen.UnixNano())
		})

		fmt.Fprintln(w)
		for _, ss := range sessions {
			duration := ss.stats.LastSeen.Sub(ss.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %s after %d transitions, duration %s\n",
				shortenConnID(ss.id), ss.stats.FinalState, ss.stats.Events, duration)
			if ss.stats.Peer != "" {
				fmt.Fprintf(w, "           Peer: %s\n", ss.stats.Peer)
			}
			if ss.stats.Coordinate != "" {
				fmt.Fprintf(w, "           Coordinate: %s\n", ss.stats.Coordinate)
			}
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
