package bus

import (
	"context"
	"encoding/json"

	"github.com/apache/pulsar-client-go/pulsar"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"

	"github.com/ravel-org/sselay/internal/sse"
)

// envelope is the broker wire format. Every relay node publishes envelopes
// to one shared Pulsar topic and consumes all of them, so a chunk published
// on any node reaches the subscribers of every node, including its own.
type envelope struct {
	Topic string `json:"topic"`
	Chunk any    `json:"chunk"`
}

type chunkPayload struct {
	Event string   `mapstructure:"event"`
	Lines []string `mapstructure:"lines"`
}

// PulsarOptions configures a Pulsar-backed bus.
type PulsarOptions struct {
	// URL of the Pulsar service, e.g. pulsar://localhost:6650.
	URL string

	// StreamTopic is the shared Pulsar topic carrying relay envelopes.
	StreamTopic string

	// Name identifies this node; it is used as producer name and
	// exclusive subscription name, so it must be unique per node.
	Name string
}

// Pulsar implements sse.Bus on top of a Pulsar stream. Local subscriptions
// go into an embedded Memory bus; a consumer relay re-dispatches every
// envelope from the stream into that local table.
type Pulsar struct {
	client   pulsar.Client
	producer pulsar.Producer
	consumer pulsar.Consumer
	local    *Memory
	cancel   context.CancelFunc
	done     chan struct{}
}

var _ sse.Bus = (*Pulsar)(nil)

// NewPulsar connects to the broker and starts the consumer relay.
func NewPulsar(opts PulsarOptions) (*Pulsar, error) {
	client, err := pulsar.NewClient(pulsar.ClientOptions{URL: opts.URL})
	if err != nil {
		return nil, err
	}

	producer, err := client.CreateProducer(pulsar.ProducerOptions{
		Topic: opts.StreamTopic,
		Name:  opts.Name,
	})
	if err != nil {
		client.Close()
		return nil, err
	}

	consumer, err := client.Subscribe(pulsar.ConsumerOptions{
		Topic:            opts.StreamTopic,
		SubscriptionName: opts.Name,
		Type:             pulsar.Exclusive,
	})
	if err != nil {
		producer.Close()
		client.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pulsar{
		client:   client,
		producer: producer,
		consumer: consumer,
		local:    NewMemory(),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go p.relay(ctx)
	return p, nil
}

func (p *Pulsar) Subscribe(topic, subscriber string, sink chan<- sse.Delivery) error {
	return p.local.Subscribe(topic, subscriber, sink)
}

func (p *Pulsar) Unsubscribe(topic, subscriber string) error {
	return p.local.Unsubscribe(topic, subscriber)
}

// Publish sends the chunk to the shared stream. Delivery to local
// subscribers happens when the envelope comes back through the relay, which
// keeps the ordering identical on every node.
func (p *Pulsar) Publish(topic string, c sse.Chunk) error {
	payload, err := json.Marshal(envelope{Topic: topic, Chunk: c})
	if err != nil {
		return err
	}

	_, err = p.producer.Send(context.Background(), &pulsar.ProducerMessage{
		Payload: payload,
	})
	return err
}

// relay consumes the shared stream and fans every envelope out to the local
// subscription table. Malformed envelopes are logged and skipped, they must
// not take the relay down for other publishers' messages.
func (p *Pulsar) relay(ctx context.Context) {
	defer close(p.done)

	for {
		msg, err := p.consumer.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logrus.WithError(err).Error("bus: pulsar receive failed")
			return
		}

		var env envelope
		if err := json.Unmarshal(msg.Payload(), &env); err != nil {
			logrus.WithError(err).Warn("bus: dropping malformed envelope")
			p.consumer.Ack(msg)
			continue
		}

		var payload chunkPayload
		if err := mapstructure.Decode(env.Chunk, &payload); err != nil || payload.Lines == nil {
			logrus.WithError(err).Warn("bus: dropping malformed envelope")
			p.consumer.Ack(msg)
			continue
		}

		kind := sse.KindMessage
		if payload.Event != "" {
			kind = sse.KindEvent
		}

		chunk, err := sse.BuildChunk(payload.Lines, kind, payload.Event)
		if err != nil {
			logrus.WithError(err).WithField("topic", env.Topic).Warn("bus: dropping invalid chunk")
			p.consumer.Ack(msg)
			continue
		}

		if err := p.local.Publish(env.Topic, chunk); err != nil {
			logrus.WithError(err).WithField("topic", env.Topic).Warn("bus: local dispatch failed")
		}
		p.consumer.Ack(msg)
	}
}

// Close stops the relay and releases the Pulsar client. Local sinks are not
// closed, their loops drain through the server's stop channel.
func (p *Pulsar) Close() {
	p.cancel()
	p.consumer.Close()
	<-p.done
	p.producer.Close()
	p.client.Close()
}
