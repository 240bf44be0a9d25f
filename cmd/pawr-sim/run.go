package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/esl-mosaic/pawr-go/pkg/api"
	"github.com/esl-mosaic/pawr-go/pkg/config"
	"github.com/esl-mosaic/pawr-go/pkg/log"
	"github.com/esl-mosaic/pawr-go/pkg/persistence"
	"github.com/esl-mosaic/pawr-go/pkg/sensor"
	"github.com/esl-mosaic/pawr-go/pkg/service"
	"github.com/esl-mosaic/pawr-go/pkg/store"
	"github.com/esl-mosaic/pawr-go/pkg/transport/sim"
)

// RunOptions holds flags for the run command. Zero values keep the
// configuration file's setting.
type RunOptions struct {
	*RootOptions

	Nodes      int
	Duration   time.Duration
	TimeScale  int
	Trace      string
	Database   string
	StatusAddr string
	Roster     string
	Resume     bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a coordinator and simulated nodes",
		Long: `Start the coordinator and the configured number of nodes on the
simulated radio. The coordinator commissions nodes until every slot
coordinate is taken, then keeps polling them for readings.

The run ends after --duration, or on interrupt when no duration is set.

Example:
  pawr-sim run --nodes 12 --duration 30s --time-scale 10
  pawr-sim run --roster roster.json --resume`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.IntVarP(&opts.Nodes, "nodes", "n", 0, "number of simulated nodes")
	f.DurationVarP(&opts.Duration, "duration", "d", 0, "run duration (0 runs until interrupted)")
	f.IntVar(&opts.TimeScale, "time-scale", 0, "divide radio intervals by this factor")
	f.StringVar(&opts.Trace, "trace", "", "write a protocol trace to this file")
	f.StringVar(&opts.Database, "db", "", "store readings in this SQLite database")
	f.StringVar(&opts.StatusAddr, "status-addr", "", "serve the status API on this address")
	f.StringVar(&opts.Roster, "roster", "", "save the commissioned roster to this file")
	f.BoolVar(&opts.Resume, "resume", false, "continue allocation from the saved roster")

	return cmd
}

// apply overlays the flags on the loaded configuration.
func (o *RunOptions) apply(cfg *config.File) {
	if o.Nodes > 0 {
		cfg.Simulation.Nodes = o.Nodes
	}
	if o.Duration > 0 {
		cfg.Simulation.Duration = o.Duration
	}
	if o.TimeScale > 0 {
		cfg.Simulation.TimeScale = o.TimeScale
	}
	if o.Database != "" {
		cfg.Coordinator.ReadingsDB = o.Database
	}
	if o.StatusAddr != "" {
		cfg.Coordinator.StatusAddr = o.StatusAddr
	}
	if o.Roster != "" {
		cfg.Coordinator.RosterPath = o.Roster
	}
	if o.Resume {
		cfg.Coordinator.Resume = true
	}
}

func runSimulation(cmd *cobra.Command, opts *RunOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	opts.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := opts.newLogger(cmd.ErrOrStderr())

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()
	if cfg.Simulation.Duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, cfg.Simulation.Duration)
		defer cancel()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	var trace log.Logger
	if opts.Trace != "" {
		tw, err := log.CreateTrace(opts.Trace)
		if err != nil {
			return fmt.Errorf("failed to create trace file: %w", err)
		}
		defer func() {
			if err := tw.Close(); err != nil {
				logger.Warn("trace file incomplete", "path", tw.Path(), "error", err)
			}
			logger.Info("protocol trace written", "path", tw.Path(), "events", tw.Count())
		}()
		trace = log.Tee(tw, log.NewSlogAdapter(logger))
		logger.Info("protocol trace enabled", "path", opts.Trace)
	}

	medium := sim.NewMedium(sim.Config{Logger: logger.With("component", "medium")})
	defer medium.Close()

	ccfg := service.CoordinatorConfig{
		Coordinator:    cfg.Coordinator,
		Logger:         logger.With("role", "coordinator"),
		ProtocolLogger: trace,
	}

	var readings api.ReadingStore
	if path := cfg.Coordinator.ReadingsDB; path != "" {
		st, err := store.Open(path)
		if err != nil {
			return err
		}
		defer func() {
			if err := st.Close(); err != nil {
				logger.Error("error closing database", "error", err)
			}
		}()
		ccfg.Sink = st
		readings = st
		logger.Info("storing readings", "db", path)
	}
	if path := cfg.Coordinator.RosterPath; path != "" {
		ccfg.Roster = persistence.NewRosterStore(path)
	}

	scale := time.Duration(cfg.Simulation.TimeScale)
	if ccfg.SettleDelay == 0 {
		ccfg.SettleDelay = cfg.Coordinator.EffectiveSettleDelay() / scale
	}

	for i := 0; i < cfg.Simulation.Nodes; i++ {
		p := medium.AddPeripheral()
		ncfg := service.NodeConfig{
			Node:           cfg.Node,
			Logger:         logger.With("role", "node", "addr", p.Address()),
			ProtocolLogger: trace,
		}
		ncfg.SampleInterval = max(cfg.Node.SampleInterval/scale, time.Millisecond)

		source := sensor.NewSimulatedSource(sensor.Reading{
			Temperature: 20 + float32(i)*0.5,
			Humidity:    45,
		})
		node := service.NewNodeService(p, source, ncfg)
		if err := node.Start(ctx); err != nil {
			return fmt.Errorf("node %s: %w", p.Address(), err)
		}
		defer node.Stop()
	}

	coord, err := service.NewCoordinatorService(medium.Central(), ccfg)
	if err != nil {
		return err
	}
	if err := coord.Start(ctx); err != nil {
		return fmt.Errorf("coordinator: %w", err)
	}
	defer coord.Stop()

	if addr := cfg.Coordinator.StatusAddr; addr != "" {
		srv := api.NewServer(coord, readings, logger.With("component", "api"))
		go func() {
			if err := srv.ListenAndServe(ctx, addr); err != nil {
				logger.Error("status api stopped", "error", err)
			}
		}()
		logger.Info("status api listening", "addr", addr)
	}

	interval := max(cfg.Coordinator.Broadcast.Interval()/scale, time.Millisecond)
	go medium.Run(ctx, interval)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Simulating %d nodes, capacity %d, interval %s\n",
		cfg.Simulation.Nodes, cfg.Coordinator.Broadcast.Capacity(), interval)

	select {
	case <-coord.Commissioned():
		if err := coord.CommissioningErr(); err != nil {
			logger.Error("commissioning stopped", "error", err)
		} else {
			logger.Info("all slot coordinates committed")
		}
	case <-ctx.Done():
	}
	<-ctx.Done()

	printSummary(out, coord.Status())
	return nil
}

func printSummary(w io.Writer, st service.CoordinatorStatus) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Simulation Summary ===")
	fmt.Fprintf(w, "Committed:   %d/%d", st.Committed, st.Capacity)
	if st.Exhausted {
		fmt.Fprint(w, " (exhausted)")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Sessions:    %d (%d succeeded, %d failed)\n",
		st.Commissioning.Sessions, st.Commissioning.Succeeded, st.Commissioning.Failed)
	fmt.Fprintf(w, "Polls:       %d in %d requests (%d errors)\n",
		st.Scheduler.Polls, st.Scheduler.Requests, st.Scheduler.Errors)
	fmt.Fprintf(w, "Responses:   %d received, %d empty, %d malformed, %d dropped\n",
		st.Collector.Received, st.Collector.Empty, st.Collector.Malformed, st.Collector.Dropped)
	if st.Collector.Stored > 0 || st.Collector.SinkErrors > 0 {
		fmt.Fprintf(w, "Stored:      %d (%d errors)\n", st.Collector.Stored, st.Collector.SinkErrors)
	}
}
