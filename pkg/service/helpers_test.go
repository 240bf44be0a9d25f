package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/esl-mosaic/pawr-go/pkg/config"
	"github.com/esl-mosaic/pawr-go/pkg/transport"
)

func testParams() config.Broadcast {
	b := config.DefaultBroadcast()
	b.NumSubevents = 2
	b.NumResponseSlots = 2
	return b
}

func testCoordinatorConfig() CoordinatorConfig {
	cfg := DefaultCoordinatorConfig()
	cfg.Broadcast = testParams()
	cfg.DiscoveryTimeout = 2 * time.Second
	cfg.WriteTimeout = time.Second
	cfg.SettleDelay = 5 * time.Millisecond
	cfg.DisconnectTimeout = time.Second
	return cfg
}

type stubCentral struct {
	mock.Mock
	events chan transport.Event
}

var _ transport.Central = (*stubCentral)(nil)

func newStubCentral() *stubCentral {
	return &stubCentral{events: make(chan transport.Event)}
}

func (s *stubCentral) Events() <-chan transport.Event {
	return s.events
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
	return s.Called(len(data)).Error(0)
}

type stubPeripheral struct {
	mock.Mock
	events chan transport.Event
}

var _ transport.Peripheral = (*stubPeripheral)(nil)

func newStubPeripheral() *stubPeripheral {
	return &stubPeripheral{events: make(chan transport.Event)}
}

func (s *stubPeripheral) Events() <-chan transport.Event {
	return s.events
}

func (s *stubPeripheral) SubscribeSyncTransfer(skip uint16, timeout time.Duration) error {
	return s.Called(skip, timeout).Error(0)
}

func (s *stubPeripheral) StartAdvertising(name string) error {
	return s.Called(name).Error(0)
}

func (s *stubPeripheral) StopAdvertising() error {
	return s.Called().Error(0)
}

func (s *stubPeripheral) SetSyncSubevents(sync transport.SyncHandle, subevents []uint8) error {
	return s.Called(sync, subevents).Error(0)
}

func (s *stubPeripheral) SetResponseData(sync transport.SyncHandle, params transport.ResponseParams, data []byte) error {
	return s.Called(sync, params, append([]byte(nil), data...)).Error(0)
}
