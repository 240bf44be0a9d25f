package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/esl-mosaic/pawr-go/pkg/config"
	"github.com/esl-mosaic/pawr-go/pkg/log"
	"github.com/esl-mosaic/pawr-go/pkg/persistence"
	"github.com/esl-mosaic/pawr-go/pkg/transport"
)

func TestNewCoordinatorServiceValidates(t *testing.T) {
	cfg := testCoordinatorConfig()
	cfg.Broadcast.NumSubevents = 0
	_, err := NewCoordinatorService(newStubCentral(), cfg)
	assert.ErrorIs(t, err, config.ErrInvalidTiming)

	cfg = testCoordinatorConfig()
	cfg.FillOrder = "diagonal"
	_, err = NewCoordinatorService(newStubCentral(), cfg)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestCoordinatorStartFailure(t *testing.T) {
	central := newStubCentral()
	central.On("StartPeriodicAdvertising", mock.Anything).Return(transport.ErrTransport)

	svc, err := NewCoordinatorService(central, testCoordinatorConfig())
	require.NoError(t, err)

	err = svc.Start(context.Background())
	assert.ErrorIs(t, err, transport.ErrTransport)
	assert.Equal(t, StateIdle, svc.State())
	central.AssertNotCalled(t, "StartScan")

	assert.ErrorIs(t, svc.Stop(), ErrNotStarted)
}

func TestCoordinatorDispatchesEvents(t *testing.T) {
	release := make(chan struct{})
	central := newStubCentral()
	central.On("StartPeriodicAdvertising", mock.Anything).Return(nil)
	central.On("StopPeriodicAdvertising").Return(nil)
	central.On("SetSubeventData", 2).Return(nil)
	// Hold the session in Scanning so it reads no events.
	central.On("StartScan").Run(func(mock.Arguments) { <-release }).Return(nil).Once()
	central.On("StartScan").Return(nil).Maybe()
	central.On("StopScan").Return(nil).Maybe()

	cfg := testCoordinatorConfig()
	cfg.EventQueueSize = 1
	rec := &log.Recorder{}
	cfg.ProtocolLogger = rec
	svc, err := NewCoordinatorService(central, cfg)
	require.NoError(t, err)
	require.NoError(t, svc.Start(context.Background()))

	for _, addr := range []transport.Address{"A", "B", "C", "D", "E"} {
		central.events <- transport.DeviceFound{Address: addr}
	}
	central.events <- transport.SubeventDataRequested{Start: 0, Count: 2}
	central.events <- transport.ResponseReceived{Subevent: 1, Slot: 0}

	require.Eventually(t, func() bool {
		st := svc.Status()
		return st.Scheduler.Polls == 2 && st.Collector.Empty == 1
	}, time.Second, 5*time.Millisecond)

	// At most one report is queued and one more held for delivery.
	dropped := svc.Status().DroppedEvents
	assert.GreaterOrEqual(t, dropped, uint64(3))
	assert.LessOrEqual(t, dropped, uint64(4))

	// Link events are never dropped, however full the queue is.
	central.events <- transport.Disconnected{Conn: 1}
	central.events <- transport.Disconnected{Conn: 2}
	central.events <- transport.Disconnected{Conn: 3}
	central.events <- transport.SubeventDataRequested{Start: 0, Count: 2}
	require.Eventually(t, func() bool {
		return svc.Status().Scheduler.Polls == 4
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, dropped, svc.Status().DroppedEvents)
	assert.GreaterOrEqual(t, svc.commissioningEvents.Len(), 3)

	close(release)
	require.NoError(t, svc.Stop())
	assert.Equal(t, StateStopped, svc.State())
	central.AssertCalled(t, "StopPeriodicAdvertising")

	select {
	case <-svc.Commissioned():
	case <-time.After(time.Second):
		t.Fatal("commissioning did not end")
	}
	assert.NoError(t, svc.CommissioningErr())
	assert.Equal(t, []string{"RUNNING", "STOPPED"}, rec.StateChanges(log.StateEntityService))
}

func TestCoordinatorResumesFromRoster(t *testing.T) {
	cfg := testCoordinatorConfig()
	layout, err := cfg.Layout()
	require.NoError(t, err)

	store := persistence.NewRosterStore(filepath.Join(t.TempDir(), "roster.json"))
	saved := &persistence.Roster{Capacity: layout.Capacity()}
	saved.Add(persistence.RosterEntry{Address: "a", Coordinate: layout.CoordinateAt(0)})
	saved.Add(persistence.RosterEntry{Address: "b", Coordinate: layout.CoordinateAt(1)})
	require.NoError(t, store.Save(saved))

	cfg.Roster = store
	cfg.RosterPath = store.Path()
	cfg.Resume = true
	svc, err := NewCoordinatorService(newStubCentral(), cfg)
	require.NoError(t, err)

	st := svc.Status()
	assert.Equal(t, 2, st.Committed)
	assert.Equal(t, 4, st.Capacity)
	assert.Len(t, svc.Roster().Nodes, 2)

	// A roster from a different layout is refused.
	cfg.Broadcast.NumResponseSlots = 3
	_, err = NewCoordinatorService(newStubCentral(), cfg)
	assert.ErrorIs(t, err, persistence.ErrRosterMismatch)
}

func TestCoordinatorResumeWithoutRosterFile(t *testing.T) {
	cfg := testCoordinatorConfig()
	cfg.Roster = persistence.NewRosterStore(filepath.Join(t.TempDir(), "missing.json"))
	cfg.RosterPath = cfg.Roster.Path()
	cfg.Resume = true

	svc, err := NewCoordinatorService(newStubCentral(), cfg)
	require.NoError(t, err)
	assert.Zero(t, svc.Status().Committed)
	assert.Empty(t, svc.Roster().Nodes)
}
