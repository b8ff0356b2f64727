// Package notify рассылает события устройств во внешние системы: MQTT (команда реле),
// AMQP (события жизненного цикла), InfluxDB (история состояний).
// Ошибки синков логируются и не влияют на ответ HTTP.
package notify

import (
	"context"
	"time"

	"homehub/internal/logs"
)

type Kind string

const (
	KindDeviceRegistered Kind = "device.registered"
	KindEquipmentChanged Kind = "equipment.changed"
)

// Event — одно событие. Для KindDeviceRegistered поля Eqp* пустые.
type Event struct {
	Kind        Kind      `json:"kind"`
	DevicesID   string    `json:"devices_id"`
	DevicesName string    `json:"devices_name,omitempty"`
	OwnerID     string    `json:"owner_id,omitempty"`
	EqpNo       string    `json:"eqp_no,omitempty"`
	EqpName     string    `json:"eqp_name,omitempty"`
	EqpState    any       `json:"eqp_state,omitempty"`
	Matched     bool      `json:"matched"`
	At          time.Time `json:"at"`
}

type Sink interface {
	Name() string
	Publish(ctx context.Context, ev Event) error
}

// Hub — синхронный fan-out по синкам с общим таймаутом.
type Hub struct {
	sinks   []Sink
	timeout time.Duration
}

const defaultTimeout = 3 * time.Second

func NewHub(sinks ...Sink) *Hub {
	return &Hub{sinks: sinks, timeout: defaultTimeout}
}

func (h *Hub) Len() int { return len(h.sinks) }

// Notify не отменяется вместе с запросом: клиент мог уже отключиться, событие всё равно уходит.
func (h *Hub) Notify(ctx context.Context, ev Event) {
	if h == nil || len(h.sinks) == 0 {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	log := logs.FromContext(ctx)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.timeout)
	defer cancel()

	for _, s := range h.sinks {
		if err := s.Publish(ctx, ev); err != nil {
			log.WithField("sink", s.Name()).Warnf("notify %s %s: %v", ev.Kind, ev.DevicesID, err)
		}
	}
}
