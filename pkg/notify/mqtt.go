package notify

import (
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/carebot-oss/carebot/pkg/engine"
	"github.com/carebot-oss/carebot/pkg/protocol"
)

// ErrNotConnected is returned for publishes attempted while the broker
// connection is down. Paho buffers nothing for us; callers decide
// whether a missed publish matters.
var ErrNotConnected = errors.New("mqtt not connected")

const (
	connectTimeout = 5 * time.Second
	publishTimeout = 2 * time.Second
)

// MQTTConfig configures the broker connection and topic layout.
type MQTTConfig struct {
	Broker   string // e.g. tcp://localhost:1883
	ClientID string
	Username string
	Password string

	// BaseTopic prefixes every publish, e.g. "carebot/bed-7".
	BaseTopic string

	QoS byte
}

// MQTTPublisher pushes engine output to an MQTT broker. Events go to
// <base>/events; status snapshots go retained to <base>/status so
// integrations see the last known state on subscribe.
type MQTTPublisher struct {
	cfg    MQTTConfig
	log    *zap.Logger
	client mqtt.Client

	mu        sync.RWMutex
	connected bool
}

// NewMQTTPublisher builds a publisher; call Connect before publishing.
func NewMQTTPublisher(cfg MQTTConfig, log *zap.Logger) *MQTTPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &MQTTPublisher{cfg: cfg, log: log}
}

// Connect establishes the broker connection with automatic reconnect.
func (p *MQTTPublisher) Connect() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(p.cfg.Broker)
	opts.SetClientID(p.cfg.ClientID)
	if p.cfg.Username != "" {
		opts.SetUsername(p.cfg.Username)
	}
	if p.cfg.Password != "" {
		opts.SetPassword(p.cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		p.mu.Lock()
		p.connected = true
		p.mu.Unlock()
		p.log.Info("mqtt connected", zap.String("broker", p.cfg.Broker))
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		p.mu.Lock()
		p.connected = false
		p.mu.Unlock()
		p.log.Warn("mqtt connection lost, auto-reconnecting",
			zap.String("broker", p.cfg.Broker),
			zap.Error(err))
	}

	p.client = mqtt.NewClient(opts)

	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("mqtt connect timeout after %s", connectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}

	p.mu.Lock()
	p.connected = true
	p.mu.Unlock()
	return nil
}

// PublishEvent sends one engine event to <base>/events.
func (p *MQTTPublisher) PublishEvent(ev engine.Event) error {
	msg, err := protocol.NewEventMessage(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return p.publish(p.EventTopic(), false, msg)
}

// PublishStatus sends a retained status snapshot to <base>/status.
func (p *MQTTPublisher) PublishStatus(st engine.Status) error {
	msg, err := protocol.NewStatusMessage(st)
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}
	return p.publish(p.StatusTopic(), true, msg)
}

// EventTopic returns the topic events are published to.
func (p *MQTTPublisher) EventTopic() string {
	return p.cfg.BaseTopic + "/events"
}

// StatusTopic returns the topic status snapshots are published to.
func (p *MQTTPublisher) StatusTopic() string {
	return p.cfg.BaseTopic + "/status"
}

func (p *MQTTPublisher) publish(topic string, retained bool, msg *protocol.Message) error {
	if !p.Connected() {
		return ErrNotConnected
	}

	payload, err := msg.Bytes()
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	token := p.client.Publish(topic, p.cfg.QoS, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s timed out after %s", topic, publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	p.log.Debug("published",
		zap.String("topic", topic),
		zap.Int("size", len(payload)))
	return nil
}

// Connected reports whether the broker connection is up.
func (p *MQTTPublisher) Connected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected
}

// Disconnect closes the broker connection.
func (p *MQTTPublisher) Disconnect() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250) // 250ms grace period
	}
	p.mu.Lock()
	p.connected = false
	p.mu.Unlock()
}
