package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// DefaultPublishTimeout bounds a publish when ctx carries no earlier deadline.
const DefaultPublishTimeout = 5 * time.Second

var ErrPublishTimeout = errors.New("mqtt: publish timed out")

// IPublisher publishes string payloads to MQTT topics.
type IPublisher interface {
	PublishToQos(ctx context.Context, topic string, qos byte, retained bool, payload string) error
	Connected() bool
	Close()
}

// Publisher wraps a shared MQTT client.
type Publisher struct {
	client  mqtt.Client
	timeout time.Duration
}

func NewPublisher(client mqtt.Client) *Publisher {
	return &Publisher{client: client, timeout: DefaultPublishTimeout}
}

// WithTimeout sets how long a publish may wait for the broker.
func (p *Publisher) WithTimeout(d time.Duration) *Publisher {
	if d > 0 {
		p.timeout = d
	}
	return p
}

// PublishToQos waits for the broker ack (QoS > 0) until ctx ends or the
// publish timeout expires; while paho is reconnecting the token stays pending.
func (p *Publisher) PublishToQos(ctx context.Context, topic string, qos byte, retained bool, payload string) error {
	token := p.client.Publish(topic, qos, retained, payload)

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("failed to publish message on %s: %w", topic, ctx.Err())
	case <-timer.C:
		return fmt.Errorf("failed to publish message on %s: %w", topic, ErrPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish message on %s: %w", topic, err)
	}
	return nil
}

func (p *Publisher) Connected() bool {
	return p.client != nil && p.client.IsConnectionOpen()
}

func (p *Publisher) Close() {
	if p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
