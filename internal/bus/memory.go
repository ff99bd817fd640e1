// Package bus provides the pub/sub implementations consumed by the
// streaming core: an in-process fan-out table and a Pulsar-backed relay for
// multi-node deployments.
package bus

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ravel-org/sselay/internal/sse"
)

// Memory is an in-process bus. Sinks are registered per (topic, subscriber)
// and publishes fan out to every sink of the topic. Publishing never blocks:
// a delivery to a full sink is dropped for that subscriber only, everyone
// else still receives it.
type Memory struct {
	mu     sync.Mutex
	topics map[string]map[string]chan<- sse.Delivery
}

var _ sse.Bus = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		topics: make(map[string]map[string]chan<- sse.Delivery),
	}
}

func (m *Memory) Subscribe(topic, subscriber string, sink chan<- sse.Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sinks, ok := m.topics[topic]
	if !ok {
		sinks = make(map[string]chan<- sse.Delivery)
		m.topics[topic] = sinks
	}
	sinks[subscriber] = sink
	return nil
}

func (m *Memory) Unsubscribe(topic, subscriber string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sinks, ok := m.topics[topic]
	if !ok {
		return nil
	}
	delete(sinks, subscriber)
	if len(sinks) == 0 {
		delete(m.topics, topic)
	}
	return nil
}

// Publish dispatches the chunk to all current subscribers of topic. Holding
// the lock for the whole fan-out serializes publishes, which is what gives
// subscribers per-topic publish order.
func (m *Memory) Publish(topic string, c sse.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for subscriber, sink := range m.topics[topic] {
		select {
		case sink <- sse.Delivery{Topic: topic, Chunk: c}:
		default:
			logrus.WithFields(logrus.Fields{
				"subscriber": subscriber,
				"topic":      topic,
			}).Warn("bus: subscriber queue full, delivery dropped")
		}
	}
	return nil
}

// Subscribers returns the number of sinks currently registered for topic.
func (m *Memory) Subscribers(topic string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.topics[topic])
}
