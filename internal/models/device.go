package models

import "errors"

// ErrDeviceNotFound — устройства с таким devices_id нет в хранилище.
var ErrDeviceNotFound = errors.New("device: not found")

// Equipment — реле/выключатель, встроенный в документ устройства.
// EqpState при создании false, после обновлений — что прислал клиент (обычно "on"/"off").
type Equipment struct {
	EqpNo    string `json:"eqp_no" bson:"eqp_no"`
	EqpName  string `json:"eqp_name" bson:"eqp_name"`
	EqpState any    `json:"eqp_state" bson:"eqp_state"`
}

// Device — документ устройства в коллекции home_devices.
type Device struct {
	DevicesID   string      `json:"devices_id" bson:"devices_id"`
	DevicesName string      `json:"devices_name" bson:"devices_name"`
	OwnerID     string      `json:"owner_id" bson:"owner_id"`
	HouseID     string      `json:"house_id" bson:"house_id"`
	FloorID     string      `json:"floor_id" bson:"floor_id"`
	RoomID      string      `json:"room_id" bson:"room_id"`
	HouseName   string      `json:"house_name" bson:"house_name"`
	FloorName   string      `json:"floor_name" bson:"floor_name"`
	RoomName    string      `json:"room_name" bson:"room_name"`
	Equipments  []Equipment `json:"equipments" bson:"equipments"`
}

var defaultEquipments = [...]Equipment{
	{EqpNo: "1", EqpName: "Eqp 1", EqpState: false},
	{EqpNo: "2", EqpName: "Eqp 2", EqpState: false},
	{EqpNo: "3", EqpName: "Eqp 3", EqpState: false},
	{EqpNo: "4", EqpName: "Eqp 4", EqpState: false},
	{EqpNo: "5", EqpName: "Eqp 5", EqpState: false},
	{EqpNo: "6", EqpName: "Eqp 6", EqpState: false},
	{EqpNo: "7", EqpName: "Eqp 7", EqpState: false},
	{EqpNo: "8", EqpName: "Eqp 8", EqpState: false},
}

// DefaultEquipments возвращает свежую копию шаблона из восьми реле.
// Каждое новое устройство получает свой слайс, общий шаблон не меняется.
func DefaultEquipments() []Equipment {
	out := make([]Equipment, len(defaultEquipments))
	copy(out, defaultEquipments[:])
	return out
}
