package mqtt

import (
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/microwave/internal/logic"
)

type sentMsg struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// stubClient implements the parts of paho.Client the publisher uses.
type stubClient struct {
	paho.Client

	mu           sync.Mutex
	open         bool
	sent         []sentMsg
	err          error
	disconnected bool
}

func (c *stubClient) IsConnectionOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *stubClient) setOpen(open bool) {
	c.mu.Lock()
	c.open = open
	c.mu.Unlock()
}

func (c *stubClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sentMsg{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	return &stubToken{err: c.err}
}

func (c *stubClient) Disconnect(uint) {
	c.mu.Lock()
	c.disconnected = true
	c.mu.Unlock()
}

func (c *stubClient) topics() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var topics []string
	for _, m := range c.sent {
		topics = append(topics, m.topic)
	}
	return topics
}

type stubToken struct{ err error }

func (t *stubToken) Wait() bool                     { return true }
func (t *stubToken) WaitTimeout(time.Duration) bool { return true }
func (t *stubToken) Error() error                   { return t.err }
func (t *stubToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func newTestPublisher(open bool) (*RealPublisher, *stubClient) {
	c := &stubClient{open: open}
	return newPublisher(c, DefaultOptions("tcp://localhost:1883"), zerolog.Nop()), c
}

func TestRealPublisherSendsWhenConnected(t *testing.T) {
	p, c := newTestPublisher(true)

	require.NoError(t, p.Publish(logic.Event{Type: logic.EventStarted, State: logic.StateHeating}))
	require.NoError(t, p.PublishSystem(SystemEvent{Event: EventStartup, Retained: true}))

	require.Len(t, c.sent, 2)
	assert.Equal(t, Topic, c.sent[0].topic)
	assert.Zero(t, c.sent[0].qos)
	assert.False(t, c.sent[0].retained)
	assert.Equal(t, TopicSystem, c.sent[1].topic)
	assert.Equal(t, byte(1), c.sent[1].qos)
	assert.True(t, c.sent[1].retained)
	assert.Contains(t, string(c.sent[0].payload), `"event":"STARTED"`)
	assert.True(t, p.IsConnected())
}

func TestRealPublisherBuffersWhileDisconnected(t *testing.T) {
	p, c := newTestPublisher(false)

	require.NoError(t, p.Publish(logic.Event{Type: logic.EventStarted}))
	require.NoError(t, p.PublishSystem(SystemEvent{Event: EventHeartbeat}))
	assert.Empty(t, c.sent)
	assert.Equal(t, 2, p.Buffered())
	assert.False(t, p.IsConnected())

	c.setOpen(true)
	p.handleConnect()

	assert.Equal(t, []string{Topic, TopicSystem}, c.topics(), "first connect replays without RECONNECTED")
	assert.Zero(t, p.Buffered())
}

func TestRealPublisherAnnouncesReconnect(t *testing.T) {
	p, c := newTestPublisher(true)
	p.handleConnect()
	assert.Empty(t, c.sent)

	c.setOpen(false)
	require.NoError(t, p.Publish(logic.Event{Type: logic.EventPaused}))

	c.setOpen(true)
	p.handleConnect()

	require.Len(t, c.sent, 2)
	assert.Equal(t, Topic, c.sent[0].topic)
	assert.Equal(t, TopicSystem, c.sent[1].topic)
	assert.Contains(t, string(c.sent[1].payload), EventReconnected)
}

func TestRealPublisherReturnsPublishError(t *testing.T) {
	p, c := newTestPublisher(true)
	c.err = errors.New("not authorized")

	err := p.Publish(logic.Event{Type: logic.EventStarted})
	assert.ErrorContains(t, err, "not authorized")
	assert.ErrorContains(t, err, Topic)
}

func TestRealPublisherClose(t *testing.T) {
	p, c := newTestPublisher(true)
	require.NoError(t, p.Close())
	assert.True(t, c.disconnected)
}
