package node

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/esl-mosaic/pawr-go/pkg/transport"
)

type stubPeripheral struct {
	mock.Mock
}

var _ transport.Peripheral = (*stubPeripheral)(nil)

func (s *stubPeripheral) Events() <-chan transport.Event {
	return nil
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
