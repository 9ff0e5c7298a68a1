package mqtt

import (
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/kiosk-sleep/internal/logic"
)

// stubClient implements the parts of paho.Client the publisher uses.
type stubClient struct {
	paho.Client

	mu        sync.Mutex
	open      bool
	onCheck   func() // run once, on the next IsConnectionOpen
	published []string
}

func (c *stubClient) IsConnectionOpen() bool {
	c.mu.Lock()
	open, hook := c.open, c.onCheck
	c.onCheck = nil
	c.mu.Unlock()
	if hook != nil {
		hook()
	}
	return open
}

func (c *stubClient) Publish(topic string, _ byte, _ bool, _ interface{}) paho.Token {
	c.mu.Lock()
	c.published = append(c.published, topic)
	c.mu.Unlock()
	return doneToken{}
}

func (c *stubClient) topics() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.published...)
}

type doneToken struct{}

func (doneToken) Wait() bool                     { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (doneToken) Error() error { return nil }

func newStubPublisher(c *stubClient) *RealPublisher {
	return &RealPublisher{client: c, topic: Topic, outbox: newOutbox(10), everConnected: true}
}

func wakeEvent() logic.Event {
	return logic.Event{
		Type:      logic.EventScheduledWake,
		Reason:    logic.ReasonAlarm,
		Timestamp: time.Date(2026, 1, 5, 6, 30, 0, 0, time.UTC),
	}
}

func TestRealPublisherQueuesWhileOffline(t *testing.T) {
	c := &stubClient{}
	p := newStubPublisher(c)

	require.NoError(t, p.Publish(wakeEvent()))
	assert.Equal(t, 1, p.Queued())
	assert.Empty(t, c.topics())

	c.open = true
	p.onConnect(c)
	assert.Equal(t, 0, p.Queued())
	assert.Equal(t, []string{TopicSystem, Topic}, c.topics())
}

func TestRealPublisherPublishesWhenConnected(t *testing.T) {
	c := &stubClient{open: true}
	p := newStubPublisher(c)

	require.NoError(t, p.Publish(wakeEvent()))
	assert.Equal(t, 0, p.Queued())
	assert.Equal(t, []string{Topic}, c.topics())
}

func TestRealPublisherReconnectDuringSend(t *testing.T) {
	c := &stubClient{}
	p := newStubPublisher(c)

	// The connection comes back while send is deciding to queue.
	done := make(chan struct{})
	c.onCheck = func() {
		go func() {
			defer close(done)
			p.onConnect(c)
		}()
	}

	require.NoError(t, p.Publish(wakeEvent()))
	<-done

	assert.Equal(t, 0, p.Queued(), "message stranded in the outbox")
	assert.Contains(t, c.topics(), Topic)
}
