package devices

import (
	"bytes"
	"encoding/json"
	"reflect"

	"homehub/internal/models"
)

const (
	msgMissingFields  = "Missing required fields"
	msgEquipmentShape = "Each equipment must have 'eqp_no', 'eqp_name', and 'eqp_state'"
)

// Text — поле регистрации. Тип не проверяется: строка берётся как есть,
// любое другое JSON-значение сохраняется его текстом (123 -> "123"), null -> "".
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	var v any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return err
	}
	*t = Text(textOf(v))
	return nil
}

// RegisterRequest — тело POST /register_device. Поля не проверяются ни на наличие, ни на тип.
type RegisterRequest struct {
	DevicesName Text `json:"devices_name"`
	OwnerID     Text `json:"owner_id"`
	DevicesID   Text `json:"devices_id"`
	HouseID     Text `json:"house_id"`
	FloorID     Text `json:"floor_id"`
	RoomID      Text `json:"room_id"`
	HouseName   Text `json:"house_name"`
	FloorName   Text `json:"floor_name"`
	RoomName    Text `json:"room_name"`
}

// Device собирает документ с копией шаблона из восьми реле.
func (r RegisterRequest) Device() *models.Device {
	return &models.Device{
		DevicesID:   string(r.DevicesID),
		DevicesName: string(r.DevicesName),
		OwnerID:     string(r.OwnerID),
		HouseID:     string(r.HouseID),
		FloorID:     string(r.FloorID),
		RoomID:      string(r.RoomID),
		HouseName:   string(r.HouseName),
		FloorName:   string(r.FloorName),
		RoomName:    string(r.RoomName),
		Equipments:  models.DefaultEquipments(),
	}
}

// UpdateEquipmentRequest — тело POST /update_eqp.
// Поля — произвольные JSON-значения: проверяется только "пустота" (isBlank).
// Числа приходят как json.Number; в EqpState они сразу приводятся к int64/float64.
type UpdateEquipmentRequest struct {
	OwnerID   any `json:"owner_id"`
	DevicesID any `json:"devices_id"`
	HouseID   any `json:"house_id"`
	FloorID   any `json:"floor_id"`
	RoomID    any `json:"room_id"`
	HouseName any `json:"house_name"`
	FloorName any `json:"floor_name"`
	RoomName  any `json:"room_name"`
	EqpNo     any `json:"eqp_no"`
	EqpName   any `json:"eqp_name"`
	EqpState  any `json:"eqp_state"`
}

func (r *UpdateEquipmentRequest) UnmarshalJSON(b []byte) error {
	type plain UpdateEquipmentRequest
	var p plain
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&p); err != nil {
		return err
	}
	p.EqpState = normalizeNumbers(p.EqpState)
	*r = UpdateEquipmentRequest(p)
	return nil
}

// ValidationError — 400. MissingFields заполнен только для первой проверки.
type ValidationError struct {
	Message       string
	MissingFields []string
}

func (e *ValidationError) Error() string { return e.Message }

// Validate: сначала собираем все пустые поля (eqp_name сюда не входит),
// потом отдельно проверяем, что eqp_no/eqp_name/eqp_state вообще переданы.
func (r UpdateEquipmentRequest) Validate() error {
	required := []struct {
		name  string
		value any
	}{
		{"owner_id", r.OwnerID},
		{"devices_id", r.DevicesID},
		{"house_id", r.HouseID},
		{"floor_id", r.FloorID},
		{"room_id", r.RoomID},
		{"house_name", r.HouseName},
		{"floor_name", r.FloorName},
		{"room_name", r.RoomName},
		{"eqp_no", r.EqpNo},
		{"eqp_state", r.EqpState},
	}
	var missing []string
	for _, f := range required {
		if isBlank(f.value) {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Message: msgMissingFields, MissingFields: missing}
	}

	if r.EqpNo == nil || r.EqpName == nil || r.EqpState == nil {
		return &ValidationError{Message: msgEquipmentShape}
	}
	return nil
}

// isBlank — "пустое" значение: nil, "", false, 0, пустой массив/объект.
func isBlank(v any) bool {
	if v == nil {
		return true
	}
	switch x := v.(type) {
	case string:
		return x == ""
	case bool:
		return !x
	case float64:
		return x == 0
	case int64:
		return x == 0
	case json.Number:
		f, err := x.Float64()
		return err == nil && f == 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	}
	return false
}
