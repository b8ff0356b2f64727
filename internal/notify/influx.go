package notify

import (
	"context"
	"fmt"
	"strings"

	"homehub/config"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

const measurementEquipmentState = "equipment_state"

type pointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// InfluxSink пишет точку equipment_state на каждое изменение реле.
type InfluxSink struct {
	w pointWriter
}

func NewInfluxSink(w pointWriter) *InfluxSink { return &InfluxSink{w: w} }

// ConnectInflux возвращает клиент (закрыть при остановке) и синк с блокирующим write API.
func ConnectInflux(cfg config.InfluxDBConfig) (influxdb2.Client, *InfluxSink) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return client, NewInfluxSink(client.WriteAPIBlocking(cfg.Org, cfg.Bucket))
}

func (s *InfluxSink) Name() string { return "influxdb" }

func (s *InfluxSink) Publish(ctx context.Context, ev Event) error {
	if ev.Kind != KindEquipmentChanged {
		return nil
	}
	return s.w.WritePoint(ctx, equipmentPoint(ev))
}

func equipmentPoint(ev Event) *write.Point {
	fields := map[string]interface{}{
		"state":   fmt.Sprint(ev.EqpState),
		"matched": ev.Matched,
	}
	if on, ok := stateAsBool(ev.EqpState); ok {
		fields["on"] = on
	}
	return write.NewPoint(
		measurementEquipmentState,
		map[string]string{
			"devices_id": ev.DevicesID,
			"eqp_no":     ev.EqpNo,
		},
		fields,
		ev.At,
	)
}

// stateAsBool понимает bool, числа 0/1 и строки on/off/true/false/1/0.
func stateAsBool(v any) (bool, bool) {
	switch s := v.(type) {
	case bool:
		return s, true
	case int64:
		if s == 0 || s == 1 {
			return s == 1, true
		}
	case float64:
		if s == 0 || s == 1 {
			return s == 1, true
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "on", "true", "1":
			return true, true
		case "off", "false", "0":
			return false, true
		}
	}
	return false, false
}
