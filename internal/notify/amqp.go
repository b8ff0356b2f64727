package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"homehub/internal/logs"

	"github.com/cenkalti/backoff"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	exchangeTypeTopic = "topic"
	amqpConnectBudget = 30 * time.Second
)

// amqpChannel — часть *amqp.Channel, нужная синку.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPSink публикует события в topic-exchange; routing key = Kind.
type AMQPSink struct {
	ch       amqpChannel
	exchange string
}

func NewAMQPSink(ch amqpChannel, exchange string) *AMQPSink {
	return &AMQPSink{ch: ch, exchange: exchange}
}

// DialAMQP подключается с экспоненциальным backoff и объявляет exchange.
func DialAMQP(url, exchange string) (*amqp.Connection, *amqp.Channel, error) {
	var conn *amqp.Connection
	connect := func() error {
		c, err := amqp.Dial(url)
		if err != nil {
			logs.Component("amqp").Warnf("dial: %v", err)
			return err
		}
		conn = c
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = amqpConnectBudget
	if err := backoff.Retry(connect, b); err != nil {
		return nil, nil, fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, exchangeTypeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("amqp exchange %s: %w", exchange, err)
	}
	return conn, ch, nil
}

func (s *AMQPSink) Name() string { return "amqp" }

func (s *AMQPSink) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.ch.PublishWithContext(ctx, s.exchange, string(ev.Kind), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.At,
		Body:         body,
	})
}
