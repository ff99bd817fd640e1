// Package api exposes the relay over HTTP: an SSE endpoint handing each
// connection to the streaming core, and a publish endpoint feeding the bus.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/sirupsen/logrus"

	"github.com/ravel-org/sselay/internal/core"
	"github.com/ravel-org/sselay/internal/sse"
	"github.com/ravel-org/sselay/pkg/topic"
)

type App struct {
	bus    sse.Bus
	config *core.Config
	stream sse.Config
	stop   chan struct{}
}

func New(config *core.Config, b sse.Bus) *App {
	stream := sse.DefaultConfig
	if config.Stream.ReconnectMillis > 0 {
		stream.Reconnect = time.Duration(config.Stream.ReconnectMillis) * time.Millisecond
	}
	if config.Stream.KeepAliveSeconds > 0 {
		stream.KeepAlive = time.Duration(config.Stream.KeepAliveSeconds) * time.Second
	}
	if config.Stream.QueueLength > 0 {
		stream.QueueLength = config.Stream.QueueLength
	}

	return &App{
		bus:    b,
		config: config,
		stream: stream,
		stop:   make(chan struct{}),
	}
}

func (app *App) Listen() error {
	logrus.WithField("addr", app.config.Addr).Info("api: listening")

	return http.ListenAndServe(app.config.Addr, app.Router())
}

// Router builds the HTTP routes. Split out from Listen for tests.
func (app *App) Router() *httprouter.Router {
	router := httprouter.New()
	router.GET("/sse", app.events())
	router.POST("/pub", app.publish())
	return router
}

// Close drains every live SSE connection and releases the bus. Safe to call
// once, after the listener stopped accepting new connections.
func (app *App) Close() {
	close(app.stop)

	if closer, ok := app.bus.(interface{ Close() }); ok {
		closer.Close()
	}
}

// events streams chunks published on the requested topics to the client.
// Topics come as repeated query parameters: GET /sse?topic=a&topic=b. An
// empty topic list is accepted, the connection just idles until closed.
func (app *App) events() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if _, ok := w.(http.Flusher); !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		topics := r.URL.Query()["topic"]
		for _, t := range topics {
			if _, err := topic.NewName(t); err != nil {
				http.Error(w, "Bad request.", http.StatusBadRequest)
				return
			}
		}

		id, err := gonanoid.New()
		if err != nil {
			http.Error(w, "Internal error.", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()

		initial := sse.NewEvent("connected", id)
		cause, err := sse.Stream(r.Context(), w, app.bus, id, topics, &initial, &app.stream, app.stop)

		entry := logrus.WithFields(logrus.Fields{
			"connection": id,
			"topics":     topics,
			"cause":      cause,
		})
		if err != nil {
			entry.WithError(err).Warn("api: stream ended")
			return
		}
		entry.Debug("api: stream ended")
	}
}

// publish accepts a chunk over HTTP and broadcasts it on the bus.
func (app *App) publish() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var input publishRequest
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			http.Error(w, "Bad request.", http.StatusBadRequest)
			return
		}

		if input.Data == nil {
			http.Error(w, "Bad request.", http.StatusBadRequest)
			return
		}

		if _, err := topic.NewName(input.Topic); err != nil {
			http.Error(w, "Bad request.", http.StatusBadRequest)
			return
		}

		chunk, err := sse.BuildChunk(input.Data, input.Kind, input.Event)
		if err != nil {
			http.Error(w, "Bad request.", http.StatusBadRequest)
			return
		}

		w.Header().Add("Content-Type", "application/json")

		if err := sse.Broadcast(app.bus, input.Topic, chunk); err != nil {
			logrus.WithError(err).WithField("topic", input.Topic).Error("api: publish failed")
			http.Error(w, "{\"success\": false}", http.StatusInternalServerError)
			return
		}

		if _, err := w.Write([]byte("{\"success\": true}")); err != nil {
			logrus.WithError(err).Warn("api: write response failed")
		}
	}
}
