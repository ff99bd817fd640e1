package sse

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/sirupsen/logrus"
)

// Delivery is one bus-delivered chunk together with the topic it was
// published on. The loop treats it as opaque until encoded.
type Delivery struct {
	Topic string
	Chunk Chunk
}

// Bus is the pub/sub service the streaming core consumes. Implementations
// must be safe for concurrent subscribe/unsubscribe/publish and must deliver
// chunks published on a single topic to a given sink in publish order.
// Delivery into a sink must never block: a slow connection backs up only its
// own loop, never the bus or other connections.
type Bus interface {
	Subscribe(topic, subscriber string, sink chan<- Delivery) error
	Unsubscribe(topic, subscriber string) error
	Publish(topic string, c Chunk) error
}

// Cause reports why a subscription loop ended.
type Cause string

const (
	// ClientDisconnected means the transport reported closure. A clean end
	// of stream, clients reconnect at the SSE protocol level.
	ClientDisconnected Cause = "client disconnected"

	// ShutdownRequested means the server asked all connections to drain,
	// or the bus tore the subscription down.
	ShutdownRequested Cause = "shutdown requested"

	// TransportWriteFailed means a write to the client failed mid-stream.
	TransportWriteFailed Cause = "transport write failed"

	// InvalidChunk means a malformed chunk arrived from the bus. This
	// indicates a publisher bug, so the loop terminates instead of
	// silently skipping.
	InvalidChunk Cause = "invalid chunk"
)

// Config holds per-stream options. The zero value disables the reconnect
// hint and keep-alive frames, producing bare SSE event frames only.
type Config struct {
	// Reconnect is sent once at stream start as a retry: hint for the
	// client. Zero disables the hint.
	Reconnect time.Duration

	// KeepAlive is the interval between comment frames keeping proxies
	// from timing out an otherwise quiet stream. Zero disables them.
	KeepAlive time.Duration

	// QueueLength is the buffer size of the per-connection delivery sink.
	// The bus drops deliveries for this connection when it is full.
	QueueLength int
}

// DefaultConfig is the configuration used when Stream receives nil.
var DefaultConfig = Config{
	KeepAlive:   30 * time.Second,
	QueueLength: 64,
}

// Stream subscribes the connection behind w to every topic in topics and
// relays published chunks as SSE frames until a terminal cause. It owns the
// connection from the moment it is called: it blocks waiting for the next
// delivery, the request context (client disconnect) or the stop channel
// (server shutdown), whichever comes first.
//
// initial, when non-nil, is written before any bus delivery. An empty topic
// list is valid: the loop subscribes to nothing and blocks until the
// transport closes or shutdown is requested.
//
// id identifies this connection towards the bus; when empty a fresh nanoid
// is generated.
//
// On every exit path each subscribed topic is unsubscribed exactly once;
// unsubscribe failures are logged and never fatal. Errors from Subscribe are
// returned to the caller unchanged with an empty cause.
func Stream(ctx context.Context, w io.Writer, b Bus, id string, topics []string, initial *Chunk, cfg *Config, stop <-chan struct{}) (Cause, error) {
	if cfg == nil {
		cfg = &DefaultConfig
	}

	if id == "" {
		var err error
		if id, err = gonanoid.New(); err != nil {
			return "", err
		}
	}

	queue := cfg.QueueLength
	if queue < 1 {
		queue = 1
	}
	sink := make(chan Delivery, queue)

	subscribed := make([]string, 0, len(topics))
	defer func() {
		for _, topic := range subscribed {
			if err := b.Unsubscribe(topic, id); err != nil {
				logrus.WithFields(logrus.Fields{
					"subscriber": id,
					"topic":      topic,
				}).WithError(err).Warn("sse: unsubscribe failed")
			}
		}
	}()

	for _, topic := range topics {
		if err := b.Subscribe(topic, id, sink); err != nil {
			return "", err
		}
		subscribed = append(subscribed, topic)
	}

	if cfg.Reconnect > 0 {
		hint := fmt.Sprintf("retry: %d\n\n", cfg.Reconnect/time.Millisecond)
		if err := writeFrame(w, []byte(hint)); err != nil {
			return TransportWriteFailed, err
		}
	}

	if initial != nil {
		if cause, err := relay(w, *initial); err != nil {
			return cause, err
		}
	}

	var keepalive <-chan time.Time
	if cfg.KeepAlive > 0 {
		ticker := time.NewTicker(cfg.KeepAlive)
		defer ticker.Stop()
		keepalive = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ClientDisconnected, nil
		case <-stop:
			return ShutdownRequested, nil
		case <-keepalive:
			if err := writeFrame(w, []byte(":keep-alive\n\n")); err != nil {
				return TransportWriteFailed, err
			}
		case d, ok := <-sink:
			if !ok {
				// Bus tore the subscription down, same drain as
				// a server shutdown from the client's view.
				return ShutdownRequested, nil
			}
			if cause, err := relay(w, d.Chunk); err != nil {
				return cause, err
			}
		}
	}
}

// relay encodes one chunk and writes the frame to the transport.
func relay(w io.Writer, c Chunk) (Cause, error) {
	frame, err := Encode(c)
	if err != nil {
		return InvalidChunk, err
	}
	if err := writeFrame(w, frame); err != nil {
		return TransportWriteFailed, err
	}
	return "", nil
}

func writeFrame(w io.Writer, frame []byte) error {
	if _, err := w.Write(frame); err != nil {
		return err
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
