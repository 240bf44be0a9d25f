package commissioning

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/esl-mosaic/pawr-go/pkg/config"
	"github.com/esl-mosaic/pawr-go/pkg/log"
	"github.com/esl-mosaic/pawr-go/pkg/slot"
	"github.com/esl-mosaic/pawr-go/pkg/transport"
	"github.com/esl-mosaic/pawr-go/pkg/transport/sim"
	"github.com/esl-mosaic/pawr-go/pkg/wire"
)

func testParams(subevents, slots uint8) config.Broadcast {
	b := config.DefaultBroadcast()
	b.NumSubevents = subevents
	b.NumResponseSlots = slots
	return b
}

func testConfig(rec *log.Recorder) Config {
	cfg := Config{
		DeviceName:        wire.DefaultNodeName,
		ConnectTimeout:    time.Second,
		DiscoveryTimeout:  time.Second,
		WriteTimeout:      time.Second,
		SettleDelay:       time.Millisecond,
		DisconnectTimeout: time.Second,
	}
	if rec != nil {
		cfg.ProtocolLogger = rec
	}
	return cfg
}

type fixture struct {
	medium  *sim.Medium
	central *sim.Central
	alloc   *slot.Allocator
}

func newFixture(t *testing.T, subevents, slots uint8) *fixture {
	t.Helper()
	m := sim.NewMedium(sim.Config{})
	t.Cleanup(m.Close)

	params := testParams(subevents, slots)
	require.NoError(t, m.Central().StartPeriodicAdvertising(params))

	alloc, err := slot.NewAllocator(slot.Layout{
		NumSubevents:     int(subevents),
		NumResponseSlots: int(slots),
	})
	require.NoError(t, err)

	return &fixture{medium: m, central: m.Central(), alloc: alloc}
}

// addNode attaches an advertising peripheral that answers every coordinate
// write with reply.
func (f *fixture) addNode(t *testing.T, name string, reply error) *sim.Peripheral {
	t.Helper()
	p := f.medium.AddPeripheral()
	require.NoError(t, p.SubscribeSyncTransfer(1, 10*time.Second))
	require.NoError(t, p.StartAdvertising(name))

	go func() {
		for ev := range p.Events() {
			if req, ok := ev.(transport.WriteRequest); ok {
				req.Result <- reply
			}
		}
	}()
	return p
}

func (f *fixture) session(cfg Config) *Session {
	return NewSession(f.central, f.alloc, f.central.Events(), cfg)
}

type stubCentral struct {
	mock.Mock
}

var _ transport.Central = (*stubCentral)(nil)

func (s *stubCentral) Events() <-chan transport.Event {
	return s.Called().Get(0).(<-chan transport.Event)
}

func (s *stubCentral) StartPeriodicAdvertising(params config.Broadcast) error {
	return s.Called(params).Error(0)
}

func (s *stubCentral) StopPeriodicAdvertising() error {
	return s.Called().Error(0)
}

func (s *stubCentral) StartScan() error {
	return s.Called().Error(0)
}

func (s *stubCentral) StopScan() error {
	return s.Called().Error(0)
}

func (s *stubCentral) Connect(addr transport.Address) (transport.ConnHandle, error) {
	args := s.Called(addr)
	return args.Get(0).(transport.ConnHandle), args.Error(1)
}

func (s *stubCentral) TransferSync(conn transport.ConnHandle) error {
	return s.Called(conn).Error(0)
}

func (s *stubCentral) DiscoverCharacteristic(conn transport.ConnHandle, id uuid.UUID) error {
	return s.Called(conn, id).Error(0)
}

func (s *stubCentral) Write(conn transport.ConnHandle, attr uint16, data []byte) error {
	return s.Called(conn, attr, data).Error(0)
}

func (s *stubCentral) Disconnect(conn transport.ConnHandle) error {
	return s.Called(conn).Error(0)
}

func (s *stubCentral) SetSubeventData(data []transport.SubeventData) error {
	return s.Called(data).Error(0)
}

func advertised(t *testing.T, addr transport.Address, name string) transport.DeviceFound {
	t.Helper()
	adv, err := wire.AppendAD(nil, wire.ADTypeNameComplete, []byte(name))
	require.NoError(t, err)
	return transport.DeviceFound{Address: addr, Connectable: true, AdvData: adv}
}
