package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/esl-mosaic/pawr-go/pkg/log"
)

// FilterOptions specifies filtering criteria for the filter command.
type FilterOptions struct {
	Output     string
	ConnID     string
	Peer       string
	Coordinate string
	Subevent   string
	TimeStart  string
	TimeEnd    string
	Layer      string
	Direction  string
	Category   string
}

// RunFilter copies the events of path that match opts into a new trace
// file and returns how many were written.
func RunFilter(path string, opts FilterOptions) (int, error) {
	filter := log.Filter{
		ConnectionID: opts.ConnID,
		RemoteAddr:   opts.Peer,
		Coordinate:   opts.Coordinate,
	}
	if opts.Subevent != "" {
		n, err := strconv.ParseUint(opts.Subevent, 10, 8)
		if err != nil {
			return 0, fmt.Errorf("invalid subevent %q: %w", opts.Subevent, err)
		}
		se := uint8(n)
		filter.Subevent = &se
	}

	if opts.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, opts.TimeStart)
		if err != nil {
			return 0, fmt.Errorf("invalid time-start format: %w", err)
		}
		filter.TimeStart = &t
	}
	if opts.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, opts.TimeEnd)
		if err != nil {
			return 0, fmt.Errorf("invalid time-end format: %w", err)
		}
		filter.TimeEnd = &t
	}
	if opts.Layer != "" {
		l, err := ParseLayer(opts.Layer)
		if err != nil {
			return 0, err
		}
		filter.Layer = &l
	}
	if opts.Direction != "" {
		d, err := ParseDirection(opts.Direction)
		if err != nil {
			return 0, err
		}
		filter.Direction = &d
	}
	if opts.Category != "" {
		c, err := ParseCategory(opts.Category)
		if err != nil {
			return 0, err
		}
		filter.Category = &c
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to open trace file: %w", err)
	}
	defer reader.Close()

	out, err := log.CreateTrace(opts.Output)
	if err != nil {
		return 0, fmt.Errorf("failed to create output trace: %w", err)
	}

	err = reader.Each(func(event log.Event) error {
		out.Log(event)
		return nil
	})
	if err != nil {
		out.Close()
		return out.Count(), fmt.Errorf("failed to read event: %w", err)
	}
	if err := out.Close(); err != nil {
		return out.Count(), fmt.Errorf("failed to write output trace: %w", err)
	}
	return out.Count(), nil
}
