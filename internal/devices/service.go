package devices

import (
	"context"
	"fmt"

	"homehub/internal/logs"
	"homehub/internal/models"
	"homehub/internal/notify"
)

const msgDeviceSaved = "data saved successfully"

// Store — контракт хранилища устройств (см. repo.DeviceStore, repo.MongoDeviceStore).
type Store interface {
	InsertDevice(ctx context.Context, d *models.Device) (string, error)
	FindDeviceByID(ctx context.Context, devicesID string) (*models.Device, error)
	UpdateEquipmentState(ctx context.Context, devicesID, eqpNo string, state any) (bool, error)
}

type Notifier interface {
	Notify(ctx context.Context, ev notify.Event)
}

type Service struct {
	store    Store
	notifier Notifier
}

// NewService; notifier может быть nil.
func NewService(store Store, notifier Notifier) *Service {
	return &Service{store: store, notifier: notifier}
}

type RegisterResult struct {
	Message string
	ID      string // id в хранилище; клиенту не отдаётся
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (RegisterResult, error) {
	d := req.Device()
	id, err := s.store.InsertDevice(ctx, d)
	if err != nil {
		return RegisterResult{}, err
	}
	logs.FromContext(ctx).Infof("Inserted Device ID: %s (devices_id=%s)", id, d.DevicesID)

	s.notify(ctx, notify.Event{
		Kind:        notify.KindDeviceRegistered,
		DevicesID:   d.DevicesID,
		DevicesName: d.DevicesName,
		OwnerID:     d.OwnerID,
		Matched:     true,
	})
	return RegisterResult{Message: msgDeviceSaved, ID: id}, nil
}

type UpdateResult struct {
	Message string
	Matched bool
}

// UpdateEquipment проверяет запрос и одним запросом меняет eqp_state.
// Если устройство/реле не нашлось, ответ всё равно успешный (Matched=false).
func (s *Service) UpdateEquipment(ctx context.Context, req UpdateEquipmentRequest) (UpdateResult, error) {
	if err := req.Validate(); err != nil {
		return UpdateResult{}, err
	}

	devicesID, eqpNo := textOf(req.DevicesID), textOf(req.EqpNo)
	matched, err := s.store.UpdateEquipmentState(ctx, devicesID, eqpNo, req.EqpState)
	if err != nil {
		return UpdateResult{}, err
	}
	if !matched {
		logs.FromContext(ctx).Warnf("update_eqp: no equipment %s on device %s", eqpNo, devicesID)
	}

	s.notify(ctx, notify.Event{
		Kind:      notify.KindEquipmentChanged,
		DevicesID: devicesID,
		OwnerID:   textOf(req.OwnerID),
		EqpNo:     eqpNo,
		EqpName:   displayValue(req.EqpName),
		EqpState:  req.EqpState,
		Matched:   matched,
	})

	return UpdateResult{
		Message: fmt.Sprintf("%s equipment %s successfully", displayValue(req.EqpName), displayValue(req.EqpState)),
		Matched: matched,
	}, nil
}

func (s *Service) Get(ctx context.Context, devicesID string) (*models.Device, error) {
	return s.store.FindDeviceByID(ctx, devicesID)
}

func (s *Service) notify(ctx context.Context, ev notify.Event) {
	if s.notifier != nil {
		s.notifier.Notify(ctx, ev)
	}
}
