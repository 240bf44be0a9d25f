package node

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/esl-mosaic/pawr-go/pkg/config"
	"github.com/esl-mosaic/pawr-go/pkg/connection"
	"github.com/esl-mosaic/pawr-go/pkg/log"
	"github.com/esl-mosaic/pawr-go/pkg/slot"
	"github.com/esl-mosaic/pawr-go/pkg/transport"
)

// ErrNotStarted is returned by operations that need a started client.
var ErrNotStarted = errors.New("sync client not started")

// SyncConfig configures a SyncClient.
type SyncConfig struct {
	// DeviceName is advertised while waiting for a coordinator.
	DeviceName string

	// SyncSkip is the number of periodic events the sync may skip.
	SyncSkip uint16

	// SyncTimeout is the sync supervision timeout.
	SyncTimeout time.Duration

	// Backoff paces advertising restarts. If nil, delays start at one second
	// and double up to connection.MaxBackoff.
	Backoff *connection.Backoff

	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger

	// ProtocolLogger receives sync state changes. If nil, tracing is disabled.
	ProtocolLogger log.Logger
}

// SyncConfigFrom derives a SyncConfig from the node configuration.
func SyncConfigFrom(n config.Node) SyncConfig {
	return SyncConfig{
		DeviceName:  n.DeviceName,
		SyncSkip:    n.SyncSkip,
		SyncTimeout: n.SyncTimeout,
	}
}

// SyncClient keeps the node synchronized to the coordinator's periodic
// train and listening to the subevent of its coordinate.
type SyncClient struct {
	radio transport.Peripheral
	attr  *TimingAttribute
	cfg   SyncConfig

	started     bool
	advertising bool
	synced      bool
	sync        transport.SyncHandle
	peer        transport.Address
	tuned       bool
	subevent    uint8
}

// NewSyncClient creates a sync client reading its coordinate from attr.
func NewSyncClient(radio transport.Peripheral, attr *TimingAttribute, cfg SyncConfig) *SyncClient {
	if cfg.Backoff == nil {
		cfg.Backoff = connection.NewBackoffWithConfig(connection.BackoffConfig{
			Initial: time.Second,
			Max:     connection.MaxBackoff,
		})
	}
	return &SyncClient{radio: radio, attr: attr, cfg: cfg}
}

// Start subscribes to sync transfers and starts advertising. A subscription
// failure is returned. An advertising failure is returned together with the
// delay after which Advertise should be retried.
func (c *SyncClient) Start() (time.Duration, error) {
	if err := c.radio.SubscribeSyncTransfer(c.cfg.SyncSkip, c.cfg.SyncTimeout); err != nil {
		return 0, fmt.Errorf("subscribe sync transfer: %w", err)
	}
	c.started = true
	c.traceState("", "ADVERTISING", "")
	return c.Advertise()
}

// Advertise starts connectable advertising unless the node is already
// advertising or synced. On failure it returns the delay after which the
// caller should try again.
func (c *SyncClient) Advertise() (time.Duration, error) {
	if !c.started {
		return 0, ErrNotStarted
	}
	if c.advertising || c.synced {
		return 0, nil
	}
	if err := c.radio.StartAdvertising(c.cfg.DeviceName); err != nil {
		delay := c.cfg.Backoff.Next()
		c.warnLog("node: advertising failed", "retry_in", delay, "error", err)
		return delay, fmt.Errorf("start advertising: %w", err)
	}
	c.cfg.Backoff.Reset()
	c.advertising = true
	c.debugLog("node: advertising", "name", c.cfg.DeviceName)
	return 0, nil
}

// OnConnected notes that a coordinator connected, which ends advertising.
func (c *SyncClient) OnConnected(ev transport.Connected) {
	if ev.Err == nil {
		c.advertising = false
	}
}

// OnSyncEstablished records the sync and tunes it to the node's subevent.
// Without a written coordinate the node listens to subevent 0.
func (c *SyncClient) OnSyncEstablished(ev transport.SyncEstablished) {
	c.synced = true
	c.sync = ev.Sync
	c.peer = ev.Peer
	c.advertising = false
	c.traceState("ADVERTISING", "SYNCED", "")
	c.tune()
}

// OnCoordinate retunes the sync after a coordinate write.
func (c *SyncClient) OnCoordinate(coord slot.Coordinate) {
	c.debugLog("node: coordinate written", "coordinate", coord)
	if c.synced {
		c.tune()
	}
}

// OnSyncLost clears the sync and restarts advertising. The returned delay
// is non-zero when advertising should be retried.
func (c *SyncClient) OnSyncLost(ev transport.SyncLost) (time.Duration, error) {
	if !c.synced || ev.Sync != c.sync {
		return 0, nil
	}
	c.synced = false
	c.sync = 0
	c.peer = ""
	c.tuned = false
	c.traceState("SYNCED", "ADVERTISING", fmt.Sprintf("reason 0x%02X", ev.Reason))
	c.infoLog("node: sync lost", "reason", ev.Reason)
	return c.Advertise()
}

// Synced returns the sync handle and whether the node is synchronized.
func (c *SyncClient) Synced() (transport.SyncHandle, bool) {
	return c.sync, c.synced
}

// Subevent returns the subevent the sync listens to and whether the sync
// has been tuned.
func (c *SyncClient) Subevent() (uint8, bool) {
	return c.subevent, c.tuned
}

// Advertising reports whether the node advertises.
func (c *SyncClient) Advertising() bool {
	return c.advertising
}

func (c *SyncClient) tune() {
	coord, _ := c.attr.Coordinate()
	if err := c.radio.SetSyncSubevents(c.sync, []uint8{coord.Subevent}); err != nil {
		c.warnLog("node: failed to select subevent", "subevent", coord.Subevent, "error", err)
		return
	}
	c.subevent = coord.Subevent
	c.tuned = true
	c.debugLog("node: listening", "subevent", coord.Subevent)
}

func (c *SyncClient) traceState(from, to, reason string) {
	if c.cfg.ProtocolLogger == nil {
		return
	}
	coord, _ := c.attr.Coordinate()
	c.cfg.ProtocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: fmt.Sprintf("sync#%d", c.sync),
		Layer:        log.LayerService,
		Category:     log.CategoryState,
		LocalRole:    log.RoleNode,
		RemoteAddr:   string(c.peer),
		Coordinate:   coord.String(),
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntitySync,
			OldState: from,
			NewState: to,
			Reason:   reason,
		},
	})
}

func (c *SyncClient) debugLog(msg string, args ...any) {
	if c.cfg.Logger != nil {
		c.cfg.Logger.Debug(msg, args...)
	}
}

func (c *SyncClient) infoLog(msg string, args ...any) {
	if c.cfg.Logger != nil {
		c.cfg.Logger.Info(msg, args...)
	}
}

func (c *SyncClient) warnLog(msg string, args ...any) {
	if c.cfg.Logger != nil {
		c.cfg.Logger.Warn(msg, args...)
	}
}
