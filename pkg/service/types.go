package service

import (
	"errors"
	"log/slog"

	"github.com/esl-mosaic/pawr-go/pkg/broadcast"
	"github.com/esl-mosaic/pawr-go/pkg/config"
	"github.com/esl-mosaic/pawr-go/pkg/log"
	"github.com/esl-mosaic/pawr-go/pkg/persistence"
)

// Service errors.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrAlreadyStarted = errors.New("service already started")
)

// ServiceState represents the service state.
type ServiceState uint8

const (
	// StateIdle - service created but not started.
	StateIdle ServiceState = iota

	// StateStarting - service is starting up.
	StateStarting

	// StateRunning - service is running normally.
	StateRunning

	// StateStopping - service is shutting down.
	StateStopping

	// StateStopped - service has stopped.
	StateStopped
)

// String returns the state name.
func (s ServiceState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateStarting:
		return "STARTING"
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// CoordinatorConfig configures a CoordinatorService.
type CoordinatorConfig struct {
	config.Coordinator

	// Sink receives every decoded reading. If nil, only the latest reading
	// per coordinate is kept.
	Sink broadcast.Sink

	// Roster persists commissioned nodes. If nil, nothing is persisted and
	// Resume has no effect.
	Roster *persistence.RosterStore

	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger

	// ProtocolLogger receives protocol trace events.
	// If nil, tracing is disabled.
	ProtocolLogger log.Logger
}

// DefaultCoordinatorConfig returns the reference coordinator configuration.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{Coordinator: config.DefaultCoordinator()}
}

// NodeConfig configures a NodeService.
type NodeConfig struct {
	config.Node

	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger

	// ProtocolLogger receives protocol trace events.
	// If nil, tracing is disabled.
	ProtocolLogger log.Logger
}

// DefaultNodeConfig returns the reference node configuration.
func DefaultNodeConfig() NodeConfig {
	return NodeConfig{Node: config.DefaultNode()}
}
