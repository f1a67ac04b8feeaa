// Package telemetry publishes frame clock statistics to an MQTT broker.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

//go:generate mockgen -destination=./mock/mock_telemetry.go . Publisher

// ErrNotConnected is returned by Publish while the broker is unreachable.
var ErrNotConnected = errors.New("telemetry: not connected")

const (
	connectTimeout = 5 * time.Second
	publishTimeout = 2 * time.Second
)

// Publisher publishes messages to a message broker
type Publisher interface {
	// Connect establishes connection to the broker
	Connect(ctx context.Context) error
	// Publish publishes a message to a topic
	Publish(topic string, payload []byte, qos byte) error
	// Disconnect closes the connection
	Disconnect() error
}

// MQTTPublisher implements Publisher on paho with automatic reconnection.
type MQTTPublisher struct {
	broker   string
	clientID string
	client   mqtt.Client

	mu        sync.RWMutex
	connected bool
}

// NewMQTTPublisher creates a publisher for broker (e.g. "tcp://localhost:1883").
func NewMQTTPublisher(broker, clientID string) *MQTTPublisher {
	return &MQTTPublisher{broker: broker, clientID: clientID}
}

// Connect establishes connection to the MQTT broker
func (p *MQTTPublisher) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(p.broker)
	opts.SetClientID(p.clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(mqtt.Client) {
		p.setConnected(true)
		slog.Info("telemetry: mqtt connection established",
			"broker", p.broker,
			"client_id", p.clientID,
		)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		p.setConnected(false)
		slog.Warn("telemetry: mqtt connection lost, will auto-reconnect",
			"error", err,
			"broker", p.broker,
		)
	}

	p.client = mqtt.NewClient(opts)
	slog.Info("telemetry: connecting to mqtt broker", "broker", p.broker)

	token := p.client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(connectTimeout):
		return fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}

	p.setConnected(true)
	return nil
}

// Publish sends payload to topic.
func (p *MQTTPublisher) Publish(topic string, payload []byte, qos byte) error {
	if !p.isConnected() {
		return ErrNotConnected
	}

	token := p.client.Publish(topic, qos, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}
	return nil
}

// Disconnect closes the MQTT connection
func (p *MQTTPublisher) Disconnect() error {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250) // 250ms grace period
		slog.Info("telemetry: mqtt disconnected")
	}
	p.setConnected(false)
	return nil
}

func (p *MQTTPublisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}

func (p *MQTTPublisher) isConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected
}
