// internal/db/migrations.go
package db

import (
	"fmt"

	"homehub/internal/models"

	"gorm.io/gorm"
)

const devicesIDIndex = "idx_home_devices_devices_id"

// Migrate создаёт таблицы устройств/реле и неуникальный индекс по devices_id.
func Migrate(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	if err := db.AutoMigrate(&models.DeviceRecord{}, &models.EquipmentRecord{}); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return EnsureDevicesIDIndex(db)
}

// EnsureDevicesIDIndex — идемпотентно, можно вызывать сколько угодно раз.
func EnsureDevicesIDIndex(db *gorm.DB) error {
	if db.Migrator().HasIndex(&models.DeviceRecord{}, devicesIDIndex) {
		return nil
	}
	var err error
	switch dialect := db.Dialector.Name(); dialect {
	case "postgres":
		err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_home_devices_devices_id ON "home_devices" ("devices_id")`).Error
	case "mysql":
		err = db.Exec("CREATE INDEX `idx_home_devices_devices_id` ON `home_devices` (`devices_id`)").Error
	default:
		err = db.Migrator().CreateIndex(&models.DeviceRecord{}, devicesIDIndex)
	}
	if err != nil {
		return fmt.Errorf("create index %s: %w", devicesIDIndex, err)
	}
	return nil
}
