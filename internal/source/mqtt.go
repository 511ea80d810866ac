package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/miradorstack/flightwatch/internal/models"
)

// MQTTConfig configures the snapshot subscriber.
type MQTTConfig struct {
	Broker         string
	ClientID       string
	Topic          string
	QoS            byte
	Username       string
	Password       string
	ConnectTimeout time.Duration
	QueueSize      int
}

// MQTT subscribes to a topic carrying JSON snapshots keyed by recorder
// parameter name. Decoded snapshots wait in a bounded queue; when the queue is
// full the oldest snapshot is dropped.
type MQTT struct {
	cfg    MQTTConfig
	client mqtt.Client
	queue  chan models.FlightSnapshot
	logger *slog.Logger

	received atomic.Uint64
	dropped  atomic.Uint64
	rejected atomic.Uint64
}

// NewMQTT prepares a subscriber; call Connect to start receiving.
func NewMQTT(cfg MQTTConfig, logger *slog.Logger) *MQTT {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	m := &MQTT{
		cfg:    cfg,
		queue:  make(chan models.FlightSnapshot, cfg.QueueSize),
		logger: logger,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetConnectTimeout(cfg.ConnectTimeout)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetOrderMatters(false)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetOnConnectHandler(m.subscribe)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		m.logger.Warn("mqtt connection lost", slog.Any("error", err))
	})
	m.client = mqtt.NewClient(opts)
	return m
}

// Connect dials the broker. Subscription happens in the on-connect handler so
// it is renewed after every reconnect.
func (m *MQTT) Connect(ctx context.Context) error {
	if err := waitToken(ctx, m.client.Connect(), m.cfg.ConnectTimeout); err != nil {
		return fmt.Errorf("mqtt connect %s: %w", m.cfg.Broker, err)
	}
	return nil
}

func (m *MQTT) subscribe(client mqtt.Client) {
	token := client.Subscribe(m.cfg.Topic, m.cfg.QoS, m.handle)
	if err := waitToken(context.Background(), token, m.cfg.ConnectTimeout); err != nil {
		m.logger.Error("mqtt subscribe failed", slog.String("topic", m.cfg.Topic), slog.Any("error", err))
		return
	}
	m.logger.Info("mqtt subscribed", slog.String("broker", m.cfg.Broker), slog.String("topic", m.cfg.Topic))
}

func (m *MQTT) handle(_ mqtt.Client, msg mqtt.Message) {
	m.received.Add(1)

	var fields map[string]any
	if err := json.Unmarshal(msg.Payload(), &fields); err != nil {
		m.rejected.Add(1)
		m.logger.Warn("discarding undecodable snapshot", slog.String("topic", msg.Topic()), slog.Any("error", err))
		return
	}
	snap, err := models.DecodeSnapshot(fields)
	if err != nil {
		m.rejected.Add(1)
		m.logger.Warn("discarding invalid snapshot", slog.String("topic", msg.Topic()), slog.Any("error", err))
		return
	}
	m.enqueue(snap)
}

func (m *MQTT) enqueue(snap models.FlightSnapshot) {
	for {
		select {
		case m.queue <- snap:
			return
		default:
		}
		select {
		case <-m.queue:
			m.dropped.Add(1)
		default:
		}
	}
}

// Next returns the oldest queued snapshot or ErrNoSnapshot.
func (m *MQTT) Next(ctx context.Context) (models.FlightSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return models.FlightSnapshot{}, err
	}
	select {
	case snap := <-m.queue:
		return snap, nil
	default:
		return models.FlightSnapshot{}, ErrNoSnapshot
	}
}

// Stats reports how many messages were received, dropped for space and
// rejected as malformed.
func (m *MQTT) Stats() (received, dropped, rejected uint64) {
	return m.received.Load(), m.dropped.Load(), m.rejected.Load()
}

// Close unsubscribes and disconnects.
func (m *MQTT) Close() {
	if !m.client.IsConnected() {
		return
	}
	m.client.Unsubscribe(m.cfg.Topic).WaitTimeout(time.Second)
	m.client.Disconnect(250)
}

func waitToken(ctx context.Context, token mqtt.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return errors.New("timed out waiting for broker")
	case <-ctx.Done():
		return ctx.Err()
	}
}
