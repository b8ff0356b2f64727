package mocks

import (
	"context"

	"homehub/internal/models"

	"github.com/stretchr/testify/mock"
)

type StoreMock struct {
	mock.Mock
}

func (s *StoreMock) InsertDevice(ctx context.Context, d *models.Device) (string, error) {
	args := s.Called(ctx, d)
	return args.String(0), args.Error(1)
}

func (s *StoreMock) FindDeviceByID(ctx context.Context, devicesID string) (*models.Device, error) {
	args := s.Called(ctx, devicesID)
	d, _ := args.Get(0).(*models.Device)
	return d, args.Error(1)
}

func (s *StoreMock) UpdateEquipmentState(ctx context.Context, devicesID, eqpNo string, state any) (bool, error) {
	args := s.Called(ctx, devicesID, eqpNo, state)
	return args.Bool(0), args.Error(1)
}

func (s *StoreMock) EnsureIndexes(ctx context.Context) error {
	args := s.Called(ctx)
	return args.Error(0)
}

func (s *StoreMock) Ping(ctx context.Context) error {
	args := s.Called(ctx)
	return args.Error(0)
}
