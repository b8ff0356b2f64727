package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// DeviceRecord — строка устройства для SQL-хранилища (postgres/mysql).
// Реле лежат в отдельной таблице, devices_id продублирован туда, чтобы
// обновление состояния было одним UPDATE без join.
type DeviceRecord struct {
	ID          uint   `gorm:"primaryKey"`
	DevicesID   string `gorm:"column:devices_id;type:varchar(191);index:idx_home_devices_devices_id"`
	DevicesName string `gorm:"column:devices_name"`
	OwnerID     string `gorm:"column:owner_id"`
	HouseID     string `gorm:"column:house_id"`
	FloorID     string `gorm:"column:floor_id"`
	RoomID      string `gorm:"column:room_id"`
	HouseName   string `gorm:"column:house_name"`
	FloorName   string `gorm:"column:floor_name"`
	RoomName    string `gorm:"column:room_name"`
	CreatedAt   time.Time

	Equipments []EquipmentRecord `gorm:"foreignKey:DeviceID"`
}

func (DeviceRecord) TableName() string { return "home_devices" }

// EquipmentRecord — реле устройства. EqpState хранится как JSON, тип значения не фиксирован.
type EquipmentRecord struct {
	ID        uint           `gorm:"primaryKey"`
	DeviceID  uint           `gorm:"column:device_id;index"`
	DevicesID string         `gorm:"column:devices_id;type:varchar(191);index:idx_eqp_device_no,priority:1"`
	EqpNo     string         `gorm:"column:eqp_no;type:varchar(64);index:idx_eqp_device_no,priority:2"`
	EqpName   string         `gorm:"column:eqp_name"`
	EqpState  datatypes.JSON `gorm:"column:eqp_state"`
}

func (EquipmentRecord) TableName() string { return "home_device_equipments" }

// NewDeviceRecord переводит документ в строки для SQL.
func NewDeviceRecord(d *Device) (DeviceRecord, error) {
	rec := DeviceRecord{
		DevicesID:   d.DevicesID,
		DevicesName: d.DevicesName,
		OwnerID:     d.OwnerID,
		HouseID:     d.HouseID,
		FloorID:     d.FloorID,
		RoomID:      d.RoomID,
		HouseName:   d.HouseName,
		FloorName:   d.FloorName,
		RoomName:    d.RoomName,
	}
	rec.Equipments = make([]EquipmentRecord, 0, len(d.Equipments))
	for _, e := range d.Equipments {
		state, err := json.Marshal(e.EqpState)
		if err != nil {
			return DeviceRecord{}, err
		}
		rec.Equipments = append(rec.Equipments, EquipmentRecord{
			DevicesID: d.DevicesID,
			EqpNo:     e.EqpNo,
			EqpName:   e.EqpName,
			EqpState:  datatypes.JSON(state),
		})
	}
	return rec, nil
}

// ToDevice — обратное преобразование.
func (r DeviceRecord) ToDevice() (*Device, error) {
	d := &Device{
		DevicesID:   r.DevicesID,
		DevicesName: r.DevicesName,
		OwnerID:     r.OwnerID,
		HouseID:     r.HouseID,
		FloorID:     r.FloorID,
		RoomID:      r.RoomID,
		HouseName:   r.HouseName,
		FloorName:   r.FloorName,
		RoomName:    r.RoomName,
		Equipments:  make([]Equipment, 0, len(r.Equipments)),
	}
	for _, e := range r.Equipments {
		var state any
		if len(e.EqpState) > 0 {
			if err := json.Unmarshal(e.EqpState, &state); err != nil {
				return nil, err
			}
		}
		d.Equipments = append(d.Equipments, Equipment{EqpNo: e.EqpNo, EqpName: e.EqpName, EqpState: state})
	}
	return d, nil
}
