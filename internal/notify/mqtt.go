package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/cjeanneret/boothcam/internal/config"
	"github.com/cjeanneret/boothcam/internal/debug"
	"github.com/cjeanneret/boothcam/internal/logic/capture"
)

const (
	defaultPublishTimeout = 5 * time.Second

	defaultDisconnectQuiesce = 1000 // milliseconds

	defaultKeepAlive = 60 * time.Second
)

// client is the part of pahomqtt.Client the notifier uses.
type client interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
	Disconnect(quiesce uint)
}

// MQTT publishes capture results to a broker.
type MQTT struct {
	client   client
	topics   Topics
	qos      byte
	clientID string

	mu     sync.Mutex
	closed bool
}

// Connect dials the broker described by cfg and announces the daemon online.
// The broker will mark it offline if the connection drops without Close.
func Connect(cfg config.MQTTConfig, timeout time.Duration) (*MQTT, error) {
	m := &MQTT{
		topics:   Topics{Prefix: cfg.TopicPrefix},
		qos:      cfg.QoS,
		clientID: cfg.ClientID,
	}

	opts := buildClientOptions(cfg, timeout)
	opts.SetWill(m.topics.Status(), statusPayload(cfg.ClientID, "offline", "unexpected_disconnect"), cfg.QoS, true)
	opts.SetOnConnectHandler(func(pahomqtt.Client) {
		debug.Info("mqtt: connected to %s", cfg.Broker)
		if err := m.publish(m.topics.Status(), []byte(statusPayload(cfg.ClientID, "online", "")), true); err != nil {
			debug.Warn("mqtt: online status: %v", err)
		}
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		debug.Warn("mqtt: connection lost: %v", err)
	})

	c := pahomqtt.NewClient(opts)
	m.client = c

	token := c.Connect()
	if !token.WaitTimeout(timeout) {
		c.Disconnect(0)
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, timeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return m, nil
}

func buildClientOptions(cfg config.MQTTConfig, timeout time.Duration) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(timeout)
	opts.SetKeepAlive(defaultKeepAlive)
	return opts
}

func statusPayload(clientID, status, reason string) string {
	p := map[string]string{
		"status":    status,
		"client_id": clientID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if reason != "" {
		p["reason"] = reason
	}
	b, _ := json.Marshal(p)
	return string(b)
}

// Publish sends res to <prefix>/capture/result.
func (m *MQTT) Publish(ctx context.Context, id string, res capture.Result) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	payload, err := json.Marshal(NewCaptureEvent(id, res, time.Now()))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return m.publish(m.topics.CaptureResult(), payload, false)
}

func (m *MQTT) publish(topic string, payload []byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if m.client == nil || !m.client.IsConnected() {
		return ErrNotConnected
	}

	token := m.client.Publish(topic, m.qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// Close announces the daemon offline and disconnects. Safe to call twice.
func (m *MQTT) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	var err error
	if m.client.IsConnected() {
		err = m.publish(m.topics.Status(), []byte(statusPayload(m.clientID, "offline", "graceful_shutdown")), true)
	}
	m.client.Disconnect(defaultDisconnectQuiesce)
	return err
}
