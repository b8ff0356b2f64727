package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"homehub/internal/db"
	"homehub/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeviceStore — хранилище устройств поверх gorm (postgres/mysql).
type DeviceStore struct {
	db *gorm.DB
}

func NewDeviceStore(db *gorm.DB) *DeviceStore {
	return &DeviceStore{db: db}
}

// InsertDevice сохраняет устройство и его реле в одной транзакции. Возвращает id строки.
func (s *DeviceStore) InsertDevice(ctx context.Context, d *models.Device) (string, error) {
	rec, err := models.NewDeviceRecord(d)
	if err != nil {
		return "", fmt.Errorf("encode device %s: %w", d.DevicesID, err)
	}
	eqs := rec.Equipments

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&rec).Error; err != nil {
			return err
		}
		if len(eqs) == 0 {
			return nil
		}
		for i := range eqs {
			eqs[i].DeviceID = rec.ID
		}
		return tx.Create(&eqs).Error
	})
	if err != nil {
		return "", fmt.Errorf("insert device %s: %w", d.DevicesID, err)
	}
	return strconv.FormatUint(uint64(rec.ID), 10), nil
}

// FindDeviceByID — первое устройство с данным devices_id (уникальность не гарантируется).
func (s *DeviceStore) FindDeviceByID(ctx context.Context, devicesID string) (*models.Device, error) {
	var rec models.DeviceRecord
	err := s.db.WithContext(ctx).
		Preload("Equipments", func(tx *gorm.DB) *gorm.DB { return tx.Order("id") }).
		Where("devices_id = ?", devicesID).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrDeviceNotFound
		}
		return nil, fmt.Errorf("find device %s: %w", devicesID, err)
	}
	return rec.ToDevice()
}

// UpdateEquipmentState — один UPDATE по (devices_id, eqp_no). matched=false, если строк не нашлось.
func (s *DeviceStore) UpdateEquipmentState(ctx context.Context, devicesID, eqpNo string, state any) (bool, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return false, fmt.Errorf("encode state: %w", err)
	}
	tx := s.db.WithContext(ctx).
		Model(&models.EquipmentRecord{}).
		Where("devices_id = ? AND eqp_no = ?", devicesID, eqpNo).
		Update("eqp_state", datatypes.JSON(raw))
	if tx.Error != nil {
		return false, fmt.Errorf("update equipment %s/%s: %w", devicesID, eqpNo, tx.Error)
	}
	return tx.RowsAffected > 0, nil
}

// EnsureIndexes — индекс по devices_id (см. db.Migrate).
func (s *DeviceStore) EnsureIndexes(ctx context.Context) error {
	return db.EnsureDevicesIDIndex(s.db.WithContext(ctx))
}

func (s *DeviceStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
