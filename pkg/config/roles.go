package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/esl-mosaic/pawr-go/pkg/slot"
	"github.com/esl-mosaic/pawr-go/pkg/wire"
)

// ErrInvalidConfig is wrapped by role configuration validation errors.
var ErrInvalidConfig = errors.New("invalid configuration")

// Commissioning step timeouts.
const (
	DefaultConnectTimeout    = 10 * time.Second
	DefaultDiscoveryTimeout  = 10 * time.Second
	DefaultWriteTimeout      = 10 * time.Second
	DefaultDisconnectTimeout = 30 * time.Second
)

// Coordinator configures the coordinator role.
type Coordinator struct {
	Broadcast Broadcast `yaml:"broadcast"`

	// DeviceName is the advertised name of commissionable nodes.
	DeviceName string `yaml:"device_name"`

	// FillOrder selects the coordinate fill order ("interleaved" or "sequential").
	FillOrder string `yaml:"fill_order"`

	// ConnectTimeout bounds connection establishment.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	// DiscoveryTimeout bounds the timing characteristic discovery.
	DiscoveryTimeout time.Duration `yaml:"discovery_timeout"`

	// WriteTimeout bounds the coordinate write.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// SettleDelay is the pause before disconnecting. Zero derives it from
	// the periodic interval (2 ms per interval unit).
	SettleDelay time.Duration `yaml:"settle_delay"`

	// DisconnectTimeout bounds the wait for disconnect completion.
	// Zero waits forever.
	DisconnectTimeout time.Duration `yaml:"disconnect_timeout"`

	// RetryBackoff paces retries after failed sessions. Disabled by
	// default: failed sessions restart scanning immediately.
	RetryBackoff bool `yaml:"retry_backoff"`

	// EventQueueSize bounds the scan reports queued for commissioning.
	// Other commissioning events are always queued.
	EventQueueSize int `yaml:"event_queue_size"`

	// RosterPath, if set, is where the commissioned roster is saved.
	RosterPath string `yaml:"roster_path"`

	// Resume restores the allocation counter from RosterPath at startup.
	Resume bool `yaml:"resume"`

	// ReadingsDB, if set, is the SQLite database collected readings go to.
	ReadingsDB string `yaml:"readings_db"`

	// StatusAddr, if set, is the listen address of the status API.
	StatusAddr string `yaml:"status_addr"`
}

// DefaultCoordinator returns the reference coordinator configuration.
func DefaultCoordinator() Coordinator {
	return Coordinator{
		Broadcast:         DefaultBroadcast(),
		DeviceName:        wire.DefaultNodeName,
		FillOrder:         slot.FillInterleaved.String(),
		ConnectTimeout:    DefaultConnectTimeout,
		DiscoveryTimeout:  DefaultDiscoveryTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		DisconnectTimeout: DefaultDisconnectTimeout,
		EventQueueSize:    64,
	}
}

// Layout returns the slot layout implied by the configuration.
func (c Coordinator) Layout() (slot.Layout, error) {
	order, err := slot.ParseFillOrder(c.FillOrder)
	if err != nil {
		return slot.Layout{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return slot.Layout{
		NumSubevents:     int(c.Broadcast.NumSubevents),
		NumResponseSlots: int(c.Broadcast.NumResponseSlots),
		Order:            order,
	}, nil
}

// EffectiveSettleDelay returns SettleDelay, or the interval-derived delay
// when SettleDelay is zero.
func (c Coordinator) EffectiveSettleDelay() time.Duration {
	if c.SettleDelay > 0 {
		return c.SettleDelay
	}
	return time.Duration(c.Broadcast.IntervalMax) * 2 * time.Millisecond
}

// Validate checks the coordinator configuration.
func (c Coordinator) Validate() error {
	if err := c.Broadcast.Validate(); err != nil {
		return err
	}
	if c.DeviceName == "" {
		return fmt.Errorf("%w: device name is required", ErrInvalidConfig)
	}
	if _, err := c.Layout(); err != nil {
		return err
	}
	if c.DiscoveryTimeout <= 0 || c.WriteTimeout <= 0 {
		return fmt.Errorf("%w: discovery and write timeouts must be positive", ErrInvalidConfig)
	}
	if c.SettleDelay < 0 || c.ConnectTimeout < 0 || c.DisconnectTimeout < 0 {
		return fmt.Errorf("%w: negative delay", ErrInvalidConfig)
	}
	if c.EventQueueSize < 1 {
		return fmt.Errorf("%w: event queue size must be >= 1", ErrInvalidConfig)
	}
	if c.Resume && c.RosterPath == "" {
		return fmt.Errorf("%w: resume requires a roster path", ErrInvalidConfig)
	}
	return nil
}

// Node configures the node role.
type Node struct {
	// DeviceName is the name advertised while waiting for commissioning.
	DeviceName string `yaml:"device_name"`

	// SampleInterval is the sensor publishing cadence.
	SampleInterval time.Duration `yaml:"sample_interval"`

	// SyncSkip is the number of periodic events the node may skip.
	SyncSkip uint16 `yaml:"sync_skip"`

	// SyncTimeout is the synchronization supervision timeout.
	SyncTimeout time.Duration `yaml:"sync_timeout"`
}

// DefaultNode returns the reference node configuration.
func DefaultNode() Node {
	return Node{
		DeviceName:     wire.DefaultNodeName,
		SampleInterval: 5 * time.Second,
		SyncSkip:       1,
		SyncTimeout:    10 * time.Second,
	}
}

// Validate checks the node configuration.
func (n Node) Validate() error {
	if n.DeviceName == "" {
		return fmt.Errorf("%w: device name is required", ErrInvalidConfig)
	}
	if n.SampleInterval <= 0 {
		return fmt.Errorf("%w: sample interval must be positive", ErrInvalidConfig)
	}
	if n.SyncTimeout <= 0 {
		return fmt.Errorf("%w: sync timeout must be positive", ErrInvalidConfig)
	}
	return nil
}
