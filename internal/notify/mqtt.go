package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"homehub/config"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	mqttConnectTimeout = 10 * time.Second
	mqttPublishTimeout = 5 * time.Second
)

var ErrPublishTimeout = errors.New("notify: publish timeout")

// mqttPublisher — часть pahomqtt.Client, которая нужна синку.
type mqttPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
}

// MQTTSink отправляет новое состояние реле в топик <prefix>/<devices_id>/eqp/<eqp_no>/set,
// на который подписана прошивка устройства.
type MQTTSink struct {
	client  mqttPublisher
	prefix  string
	qos     byte
	timeout time.Duration
}

func NewMQTTSink(client mqttPublisher, prefix string, qos byte) *MQTTSink {
	if prefix == "" {
		prefix = "homehub"
	}
	return &MQTTSink{client: client, prefix: prefix, qos: qos, timeout: mqttPublishTimeout}
}

// ConnectMQTT — paho-клиент с автопереподключением.
func ConnectMQTT(cfg config.MQTTConfig) (pahomqtt.Client, error) {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectTimeout(mqttConnectTimeout)

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("mqtt connect %s: timeout", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, err)
	}
	return client, nil
}

func (s *MQTTSink) Name() string { return "mqtt" }

func (s *MQTTSink) Topic(devicesID, eqpNo string) string {
	return fmt.Sprintf("%s/%s/eqp/%s/set", s.prefix, devicesID, eqpNo)
}

type relayCommand struct {
	EqpNo    string `json:"eqp_no"`
	EqpName  string `json:"eqp_name"`
	EqpState any    `json:"eqp_state"`
}

func (s *MQTTSink) Publish(ctx context.Context, ev Event) error {
	if ev.Kind != KindEquipmentChanged {
		return nil
	}
	payload, err := json.Marshal(relayCommand{EqpNo: ev.EqpNo, EqpName: ev.EqpName, EqpState: ev.EqpState})
	if err != nil {
		return err
	}
	token := s.client.Publish(s.Topic(ev.DevicesID, ev.EqpNo), s.qos, false, payload)
	return waitToken(ctx, token, s.timeout)
}

// waitToken ждёт подтверждения брокера не дольше limit и не дольше дедлайна ctx.
func waitToken(ctx context.Context, token pahomqtt.Token, limit time.Duration) error {
	timer := time.NewTimer(limit)
	defer timer.Stop()
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrPublishTimeout, ctx.Err())
	case <-timer.C:
		return ErrPublishTimeout
	}
}
