package sensor

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultSampleInterval is the publishing cadence of a node's sensor.
const DefaultSampleInterval = 5 * time.Second

// Source produces readings. Implementations wrap the sensor driver.
type Source interface {
	Sample(ctx context.Context) (Reading, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) (Reading, error)

// Sample calls f.
func (f SourceFunc) Sample(ctx context.Context) (Reading, error) {
	return f(ctx)
}

// SimulatedSource stands in for the sensor driver on hosts without one.
// Each sample adds one to both temperature and humidity.
type SimulatedSource struct {
	mu      sync.Mutex
	current Reading
}

// NewSimulatedSource creates a source starting at the given reading.
func NewSimulatedSource(start Reading) *SimulatedSource {
	return &SimulatedSource{current: start}
}

// Sample returns the next simulated reading.
func (s *SimulatedSource) Sample(context.Context) (Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Temperature++
	s.current.Humidity++
	return s.current, nil
}

// Publisher samples a Source on a fixed interval and publishes into a Channel.
type Publisher struct {
	source   Source
	channel  *Channel
	interval time.Duration
	logger   *slog.Logger
}

// NewPublisher creates a publisher. A non-positive interval selects
// DefaultSampleInterval; a nil logger disables logging.
func NewPublisher(source Source, channel *Channel, interval time.Duration, logger *slog.Logger) *Publisher {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	return &Publisher{
		source:   source,
		channel:  channel,
		interval: interval,
		logger:   logger,
	}
}

// Run samples until ctx is cancelled. The first sample is taken one
// interval after start. Sampling errors are logged and skipped.
func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sampleOnce(ctx)
		}
	}
}

func (p *Publisher) sampleOnce(ctx context.Context) {
	r, err := p.source.Sample(ctx)
	if err != nil {
		if p.logger != nil {
			p.logger.Warn("failed to fetch sensor sample", "error", err)
		}
		return
	}
	p.channel.Publish(r)
	if p.logger != nil {
		p.logger.Debug("published sensor sample", "temperature", r.Temperature, "humidity", r.Humidity)
	}
}
