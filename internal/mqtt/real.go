package mqtt

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/sweeney/kiosk-sleep/internal/logfields"
	"github.com/sweeney/kiosk-sleep/internal/logic"
)

// DefaultOutboxSize is the number of messages held while disconnected.
const DefaultOutboxSize = 100

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string // generated when empty
	Username   string
	Password   string
	OutboxSize int
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are queued and replayed on reconnect.
type RealPublisher struct {
	client paho.Client
	topic  string

	mu            sync.Mutex
	outbox        *outbox
	everConnected bool
}

// NewRealPublisher creates a publisher connected to the given broker.
// The broker is told to publish an OFFLINE message if the process vanishes.
func NewRealPublisher(o Options) (*RealPublisher, error) {
	if o.ClientID == "" {
		o.ClientID = "kiosk-sleep-" + uuid.NewString()[:8]
	}
	if o.OutboxSize <= 0 {
		o.OutboxSize = DefaultOutboxSize
	}

	p := &RealPublisher{
		topic:  Topic,
		outbox: newOutbox(o.OutboxSize),
	}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetBinaryWill(TopicSystem, willPayload(), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			slog.Warn("MQTT connection lost", logfields.Error(err))
		})
	if o.Username != "" {
		opts.SetUsername(o.Username).SetPassword(o.Password)
	}

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		// With connect retry the client keeps trying in the background;
		// messages are queued until it succeeds.
		slog.Warn("MQTT broker not reachable yet, retrying in background", slog.String("broker", o.Broker))
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	slog.Info("MQTT connected", slog.String("broker", o.Broker), slog.String("client_id", o.ClientID))
	return p, nil
}

// onConnect runs on every (re)connection. After the first it announces the
// reconnection and replays queued messages in order.
func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	reconnect := p.everConnected
	p.everConnected = true
	pending, dropped := p.outbox.takeAll()
	p.mu.Unlock()

	if !reconnect && len(pending) == 0 {
		return
	}

	if reconnect {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: SystemReconnected})
		c.Publish(TopicSystem, 1, false, payload)
		slog.Info("MQTT reconnected", slog.Int("queued", len(pending)), slog.Int("dropped", dropped))
	}
	for _, m := range pending {
		c.Publish(m.topic, m.qos, m.retained, m.payload)
	}
}

// Publish sends a scheduler event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	return p.send(queued{topic: p.topic, payload: payload})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) so lifecycle events survive a flaky link
	return p.send(queued{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) send(m queued) error {
	// Checked under mu so a message cannot be queued after onConnect has
	// drained the outbox.
	p.mu.Lock()
	if !p.client.IsConnectionOpen() {
		p.outbox.add(m)
		p.mu.Unlock()
		slog.Debug("MQTT offline, message queued", logfields.Topic(m.topic))
		return nil
	}
	p.mu.Unlock()

	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(publishTimeout) {
		p.mu.Lock()
		p.outbox.add(m)
		p.mu.Unlock()
		return fmt.Errorf("publish to %s: timeout", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", m.topic, err)
	}
	return nil
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Queued reports how many messages are waiting for a connection.
func (p *RealPublisher) Queued() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outbox.len()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
