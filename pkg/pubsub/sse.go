package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/ritzau/netview/pkg/logging"
)

// TopicConfig configures buffering behavior for a topic
type TopicConfig struct {
	BufferSize int  // Number of events to buffer (0 = no buffering)
	ReplayAll  bool // If true, replay all buffered events; if false, only replay last event

	// Coalesce makes a full subscriber channel drop its oldest event instead
	// of the new one, so a slow client always ends on the latest event
	Coalesce bool
}

const subscriptionBuffer = 64

// topicState is everything the publisher tracks for one topic
type topicState struct {
	config  TopicConfig
	version int
	buffer  []Event
	subs    map[*sseSubscription]struct{}
}

// replay returns the buffered events a new subscriber should see
func (t *topicState) replay() []Event {
	if len(t.buffer) == 0 {
		return nil
	}
	if t.config.ReplayAll {
		return t.buffer
	}
	return t.buffer[len(t.buffer)-1:]
}

func (t *topicState) remember(event Event) {
	size := t.config.BufferSize
	if size <= 0 {
		return
	}
	t.buffer = append(t.buffer, event)
	if len(t.buffer) > size {
		t.buffer = append([]Event(nil), t.buffer[len(t.buffer)-size:]...)
	}
}

// SSEPublisher implements Publisher using Server-Sent Events
type SSEPublisher struct {
	mu     sync.RWMutex
	topics map[string]*topicState
	closed bool
}

// NewSSEPublisher creates a new SSE-based publisher
func NewSSEPublisher() *SSEPublisher {
	return &SSEPublisher{topics: make(map[string]*topicState)}
}

// topic returns the state for name, creating it. Callers hold p.mu.
func (p *SSEPublisher) topic(name string) *topicState {
	t := p.topics[name]
	if t == nil {
		t = &topicState{subs: make(map[*sseSubscription]struct{})}
		p.topics[name] = t
	}
	return t
}

// ConfigureTopic sets buffering configuration for a topic
func (p *SSEPublisher) ConfigureTopic(topic string, config TopicConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic(topic).config = config
}

// Subscribe creates a new subscription to a topic. Buffered events are
// queued before any later publish can reach the subscriber.
func (p *SSEPublisher) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, fmt.Errorf("publisher is closed")
	}

	t := p.topic(topic)
	sub := &sseSubscription{
		topic:     topic,
		events:    make(chan Event, subscriptionBuffer),
		publisher: p,
	}
	t.subs[sub] = struct{}{}

	replayed := 0
	for _, event := range t.replay() {
		if sub.deliver(event, t.config.Coalesce) {
			replayed++
		}
	}
	p.mu.Unlock()

	if replayed > 0 {
		logging.Debug("Replayed events to new subscriber", "topic", topic, "count", replayed)
	}

	go func() {
		<-ctx.Done()
		sub.Close()
	}()

	return sub, nil
}

// Publish sends an event to all subscribers of a topic
func (p *SSEPublisher) Publish(topic string, eventType string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("publisher is closed")
	}

	t := p.topic(topic)
	t.version++
	event := Event{
		Topic:   topic,
		Type:    eventType,
		Data:    jsonData,
		Version: t.version,
	}
	t.remember(event)

	for sub := range t.subs {
		if !sub.deliver(event, t.config.Coalesce) {
			logging.Trace("Subscription channel full, dropping event", "topic", topic, "type", eventType)
		}
	}
	return nil
}

// Close shuts down the publisher and all subscriptions
func (p *SSEPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	for _, t := range p.topics {
		for sub := range t.subs {
			close(sub.events)
		}
	}
	p.topics = make(map[string]*topicState)
	return nil
}

// ForgetTopic drops the buffered events, version and configuration of a
// topic, used when the view behind it is unmounted. Live subscriptions stay.
func (p *SSEPublisher) ForgetTopic(topic string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.topics[topic]
	if !ok {
		return
	}
	if len(t.subs) == 0 {
		delete(p.topics, topic)
		return
	}
	p.topics[topic] = &topicState{subs: t.subs}
}

// Subscribers reports how many subscriptions a topic has
func (p *SSEPublisher) Subscribers(topic string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if t, ok := p.topics[topic]; ok {
		return len(t.subs)
	}
	return 0
}

// unsubscribe removes a subscription (called by subscription.Close())
func (p *SSEPublisher) unsubscribe(sub *sseSubscription) {
	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := p.topics[sub.topic]
	if !ok {
		return
	}
	delete(t.subs, sub)
	if len(t.subs) == 0 && len(t.buffer) == 0 && t.config == (TopicConfig{}) {
		delete(p.topics, sub.topic)
	}
}

// sseSubscription implements Subscription
type sseSubscription struct {
	topic     string
	events    chan Event
	publisher *SSEPublisher
	closed    bool
	mu        sync.Mutex
}

// deliver queues an event without blocking. With coalesce set, a full
// channel gives up its oldest event to make room. The publisher is the only
// sender and holds its lock, so one freed slot is enough.
func (s *sseSubscription) deliver(event Event, coalesce bool) bool {
	select {
	case s.events <- event:
		return true
	default:
	}
	if !coalesce {
		return false
	}
	select {
	case <-s.events:
	default:
	}
	select {
	case s.events <- event:
		return true
	default:
		return false
	}
}

// Topic returns the subscription topic
func (s *sseSubscription) Topic() string {
	return s.topic
}

// Events returns a channel for receiving events
func (s *sseSubscription) Events() <-chan Event {
	return s.events
}

// Close closes the subscription
func (s *sseSubscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	s.publisher.unsubscribe(s)

	return nil
}

// WriteSSE writes an event to an SSE response writer
// Format: "event: <type>\ndata: {json}\n\n"
func WriteSSE(w io.Writer, event Event) error {
	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, jsonData)
	return err
}
