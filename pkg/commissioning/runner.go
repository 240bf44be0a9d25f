package commissioning

import (
	"context"
	"log/slog"

	"go.uber.org/atomic"

	"github.com/esl-mosaic/pawr-go/pkg/connection"
	"github.com/esl-mosaic/pawr-go/pkg/slot"
	"github.com/esl-mosaic/pawr-go/pkg/transport"
)

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	// Session configures every session the runner starts.
	Session Config

	// RetryBackoff, if set, paces the session following a failure.
	// If nil, scanning restarts immediately.
	RetryBackoff *connection.Backoff

	// OnResult is called after every session.
	OnResult func(Result)

	// Logger is the optional logger for run-level output.
	// If nil, logging is disabled.
	Logger *slog.Logger
}

// RunnerStats counts session outcomes.
type RunnerStats struct {
	Sessions  int64 `json:"sessions"`
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
}

// Runner runs commissioning sessions one at a time until every coordinate
// is committed.
type Runner struct {
	central transport.Central
	alloc   *slot.Allocator
	events  <-chan transport.Event
	cfg     RunnerConfig

	sessions  atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	running   atomic.Bool
}

// NewRunner creates a runner. Events must carry every commissioning
// related transport event and nothing is read from it between sessions.
func NewRunner(central transport.Central, alloc *slot.Allocator, events <-chan transport.Event, cfg RunnerConfig) *Runner {
	return &Runner{
		central: central,
		alloc:   alloc,
		events:  events,
		cfg:     cfg,
	}
}

// Run commissions nodes until the allocator is exhausted, returning nil, or
// until ctx is cancelled, returning its error.
func (r *Runner) Run(ctx context.Context) error {
	r.running.Store(true)
	defer r.running.Store(false)

	for !r.alloc.Exhausted() {
		if err := ctx.Err(); err != nil {
			return err
		}

		res := NewSession(r.central, r.alloc, r.events, r.cfg.Session).Run(ctx)
		r.record(res)

		if res.OK() {
			if r.cfg.RetryBackoff != nil {
				r.cfg.RetryBackoff.Reset()
			}
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.cfg.RetryBackoff != nil && !r.cfg.RetryBackoff.Wait(ctx.Done()) {
			return ctx.Err()
		}
	}

	r.infoLog("commissioning: capacity reached",
		"committed", r.alloc.Committed(),
		"sessions", r.sessions.Load())
	return nil
}

// Running reports whether Run is active.
func (r *Runner) Running() bool {
	return r.running.Load()
}

// Stats returns session outcome counters.
func (r *Runner) Stats() RunnerStats {
	return RunnerStats{
		Sessions:  r.sessions.Load(),
		Succeeded: r.succeeded.Load(),
		Failed:    r.failed.Load(),
	}
}

func (r *Runner) record(res Result) {
	r.sessions.Inc()
	if res.OK() {
		r.succeeded.Inc()
		r.infoLog("commissioning: node commissioned",
			"peer", res.Peer,
			"coordinate", res.Coordinate,
			"committed", r.alloc.Committed(),
			"capacity", r.alloc.Capacity())
		if res.Err != nil {
			r.infoLog("commissioning: link release failed", "peer", res.Peer, "error", res.Err)
		}
	} else {
		r.failed.Inc()
		r.infoLog("commissioning: session failed",
			"peer", res.Peer,
			"state", res.State,
			"error", res.Err)
	}
	if r.cfg.OnResult != nil {
		r.cfg.OnResult(res)
	}
}

func (r *Runner) infoLog(msg string, args ...any) {
	if r.cfg.Logger != nil {
		r.cfg.Logger.Info(msg, args...)
	}
}
