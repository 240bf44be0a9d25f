package node

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/esl-mosaic/pawr-go/pkg/config"
	"github.com/esl-mosaic/pawr-go/pkg/connection"
	"github.com/esl-mosaic/pawr-go/pkg/log"
	"github.com/esl-mosaic/pawr-go/pkg/slot"
	"github.com/esl-mosaic/pawr-go/pkg/transport"
)

func newTestSyncClient(radio transport.Peripheral, attr *TimingAttribute, rec *log.Recorder) *SyncClient {
	cfg := SyncConfigFrom(config.DefaultNode())
	cfg.Backoff = connection.NewBackoffWithConfig(connection.BackoffConfig{Initial: time.Second, Max: 4 * time.Second})
	if rec != nil {
		cfg.ProtocolLogger = rec
	}
	return NewSyncClient(radio, attr, cfg)
}

func TestSyncClientStart(t *testing.T) {
	radio := &stubPeripheral{}
	radio.On("SubscribeSyncTransfer", uint16(1), 10*time.Second).Return(nil)
	radio.On("StartAdvertising", "PAwR sync sample").Return(nil)

	c := newTestSyncClient(radio, NewTimingAttribute(nil), nil)
	delay, err := c.Start()
	require.NoError(t, err)
	assert.Zero(t, delay)
	assert.True(t, c.Advertising())
	radio.AssertExpectations(t)
}

func TestSyncClientStartSubscribeFailure(t *testing.T) {
	radio := &stubPeripheral{}
	radio.On("SubscribeSyncTransfer", mock.Anything, mock.Anything).Return(transport.ErrTransport)

	c := newTestSyncClient(radio, NewTimingAttribute(nil), nil)
	_, err := c.Start()
	assert.ErrorIs(t, err, transport.ErrTransport)
	radio.AssertNotCalled(t, "StartAdvertising", mock.Anything)

	_, err = c.Advertise()
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestSyncClientDefaultsToSubeventZero(t *testing.T) {
	radio := &stubPeripheral{}
	radio.On("SubscribeSyncTransfer", mock.Anything, mock.Anything).Return(nil)
	radio.On("StartAdvertising", mock.Anything).Return(nil)
	radio.On("SetSyncSubevents", transport.SyncHandle(4), []uint8{0}).Return(nil).Once()
	radio.On("SetSyncSubevents", transport.SyncHandle(4), []uint8{3}).Return(nil).Once()

	var c *SyncClient
	attr := NewTimingAttribute(func(coord slot.Coordinate) { c.OnCoordinate(coord) })
	c = newTestSyncClient(radio, attr, nil)
	_, err := c.Start()
	require.NoError(t, err)

	// Sync arrives before the coordinate write.
	c.OnSyncEstablished(transport.SyncEstablished{Sync: 4, Peer: "central"})
	sub, tuned := c.Subevent()
	assert.True(t, tuned)
	assert.Equal(t, uint8(0), sub)
	assert.False(t, c.Advertising())

	require.NoError(t, attr.Write(0, []byte{3, 1}))
	sub, _ = c.Subevent()
	assert.Equal(t, uint8(3), sub)
	radio.AssertExpectations(t)
}

func TestSyncClientCoordinateBeforeSync(t *testing.T) {
	radio := &stubPeripheral{}
	radio.On("SetSyncSubevents", transport.SyncHandle(1), []uint8{2}).Return(nil).Once()

	attr := NewTimingAttribute(nil)
	c := newTestSyncClient(radio, attr, nil)

	require.NoError(t, attr.Write(0, []byte{2, 9}))
	c.OnCoordinate(slot.Coordinate{Subevent: 2, ResponseSlot: 9})
	radio.AssertNotCalled(t, "SetSyncSubevents", mock.Anything, mock.Anything)

	c.OnSyncEstablished(transport.SyncEstablished{Sync: 1})
	radio.AssertExpectations(t)
}

func TestSyncClientSyncLostReadvertises(t *testing.T) {
	radio := &stubPeripheral{}
	radio.On("SubscribeSyncTransfer", mock.Anything, mock.Anything).Return(nil)
	radio.On("StartAdvertising", mock.Anything).Return(nil)
	radio.On("SetSyncSubevents", mock.Anything, mock.Anything).Return(nil)
	rec := &log.Recorder{}

	c := newTestSyncClient(radio, NewTimingAttribute(nil), rec)
	_, err := c.Start()
	require.NoError(t, err)
	c.OnConnected(transport.Connected{Conn: 1, Peer: "central"})
	c.OnSyncEstablished(transport.SyncEstablished{Sync: 2})

	// A stale handle is ignored.
	_, err = c.OnSyncLost(transport.SyncLost{Sync: 9})
	require.NoError(t, err)
	_, synced := c.Synced()
	assert.True(t, synced)

	delay, err := c.OnSyncLost(transport.SyncLost{Sync: 2, Reason: 0x08})
	require.NoError(t, err)
	assert.Zero(t, delay)

	_, synced = c.Synced()
	assert.False(t, synced)
	_, tuned := c.Subevent()
	assert.False(t, tuned)
	assert.True(t, c.Advertising())
	radio.AssertNumberOfCalls(t, "StartAdvertising", 2)

	assert.Equal(t, []string{"ADVERTISING", "SYNCED", "ADVERTISING"}, rec.StateChanges(log.StateEntitySync))
}

func TestSyncClientAdvertisingRetryBacksOff(t *testing.T) {
	radio := &stubPeripheral{}
	radio.On("SubscribeSyncTransfer", mock.Anything, mock.Anything).Return(nil)
	radio.On("StartAdvertising", mock.Anything).Return(errors.New("busy")).Times(3)
	radio.On("StartAdvertising", mock.Anything).Return(nil)

	c := newTestSyncClient(radio, NewTimingAttribute(nil), nil)

	var delays []time.Duration
	delay, err := c.Start()
	for err != nil {
		delays = append(delays, delay)
		delay, err = c.Advertise()
	}
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, delays)
	assert.True(t, c.Advertising())

	// Advertising again is a no-op.
	_, err = c.Advertise()
	require.NoError(t, err)
	radio.AssertNumberOfCalls(t, "StartAdvertising", 4)
}
