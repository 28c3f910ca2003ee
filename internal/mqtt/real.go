package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/sweeney/microwave/internal/logic"
)

// Options configures a RealPublisher.
type Options struct {
	Broker         string
	ClientID       string
	BufferSize     int           // messages kept while disconnected
	RetryInterval  time.Duration // reconnect interval
	PublishTimeout time.Duration
}

// DefaultOptions returns options for the given broker.
func DefaultOptions(broker string) Options {
	return Options{
		Broker:         broker,
		ClientID:       "microwave",
		BufferSize:     100,
		RetryInterval:  5 * time.Second,
		PublishTimeout: 5 * time.Second,
	}
}

// RealPublisher publishes to an actual MQTT broker. Messages published
// while the connection is down are buffered and replayed on connect.
type RealPublisher struct {
	client  paho.Client
	timeout time.Duration
	logger  zerolog.Logger

	mu        sync.Mutex
	buf       *ringBuffer
	connected bool // at least one connection has been made
}

// NewRealPublisher creates a publisher and starts connecting in the
// background. It never blocks on the broker.
func NewRealPublisher(opts Options, logger zerolog.Logger) *RealPublisher {
	p := newPublisher(nil, opts, logger)

	will, _ := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     EventShutdown,
		Reason:    ReasonDisconnect,
	})

	co := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(opts.RetryInterval).
		SetWill(TopicSystem, string(will), 1, true).
		SetOnConnectHandler(func(paho.Client) { p.handleConnect() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.Warn().Err(err).Msg("mqtt: connection lost")
		})

	p.client = paho.NewClient(co)
	p.client.Connect()
	return p
}

func newPublisher(client paho.Client, opts Options, logger zerolog.Logger) *RealPublisher {
	return &RealPublisher{
		client:  client,
		timeout: opts.PublishTimeout,
		logger:  logger,
		buf:     newRingBuffer(opts.BufferSize, logger),
	}
}

// handleConnect replays buffered messages. After a reconnect it also
// announces RECONNECTED on the system topic.
func (p *RealPublisher) handleConnect() {
	p.mu.Lock()
	pending := p.buf.drainAll()
	reconnect := p.connected
	p.connected = true
	p.mu.Unlock()

	p.logger.Info().Int("buffered", len(pending)).Bool("reconnect", reconnect).Msg("mqtt: connected")

	for _, msg := range pending {
		if err := p.send(msg); err != nil {
			p.logger.Error().Err(err).Str("topic", msg.topic).Msg("mqtt: replay failed")
		}
	}

	if reconnect {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: EventReconnected})
		if err := p.send(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1}); err != nil {
			p.logger.Error().Err(err).Msg("mqtt: reconnected publish failed")
		}
	}
}

// Publish sends a session event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	return p.publish(bufferedMsg{topic: Topic, payload: payload})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for lifecycle events
	return p.publish(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) publish(msg bufferedMsg) error {
	p.mu.Lock()
	if !p.client.IsConnectionOpen() {
		p.buf.push(msg)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()
	return p.send(msg)
}

func (p *RealPublisher) send(msg bufferedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("publish %s: timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}
	return nil
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second quiesce
	return nil
}
