// Command pawr-sim runs a coordinator and a fleet of nodes over the
// in-process simulated radio.
//
// Usage:
//
//	pawr-sim run [flags]
//	pawr-sim validate [flags]
//
// Examples:
//
//	# Commission 8 nodes and poll them for a minute, ten times faster than real time
//	pawr-sim run --nodes 8 --duration 1m --time-scale 10
//
//	# Record a protocol trace and store readings
//	pawr-sim run --config pawr.yaml --trace sim.plog --db readings.db
//
//	# Serve the status API while running
//	pawr-sim run --status-addr :8080
//
//	# Check a configuration file
//	pawr-sim validate --config pawr.yaml
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
