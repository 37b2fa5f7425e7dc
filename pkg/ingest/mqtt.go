package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTConfig holds broker connection settings.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
}

// MQTT subscribes the handler to device topics on a broker.
type MQTT struct {
	client  mqtt.Client
	handler *Handler
	qos     byte
	logger  *slog.Logger
}

// ConnectMQTT connects to the broker.
func ConnectMQTT(cfg MQTTConfig, handler *Handler, logger *slog.Logger) (*MQTT, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "broker", cfg.Broker, "error", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to mqtt broker: %w", token.Error())
	}

	return &MQTT{
		client:  client,
		handler: handler,
		qos:     cfg.QoS,
		logger:  logger,
	}, nil
}

// Subscribe routes every message on the handler's topics through Handle.
// Messages are handled with ctx; a failing message is logged and skipped.
func (m *MQTT) Subscribe(ctx context.Context) error {
	for _, topic := range m.handler.Topics() {
		token := m.client.Subscribe(topic, m.qos, func(_ mqtt.Client, msg mqtt.Message) {
			if err := m.handler.Handle(ctx, msg.Topic(), msg.Payload()); err != nil {
				m.logger.Warn("mqtt message rejected", "topic", msg.Topic(), "error", err)
			}
		})
		if token.Wait() && token.Error() != nil {
			return fmt.Errorf("subscribe to %s: %w", topic, token.Error())
		}
		m.logger.Info("mqtt subscribed", "topic", topic)
	}
	return nil
}

// Close disconnects from the broker.
func (m *MQTT) Close() {
	m.client.Disconnect(250)
}
