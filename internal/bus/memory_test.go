package bus_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ravel-org/sselay/internal/bus"
	"github.com/ravel-org/sselay/internal/sse"
)

func TestMemoryFanOut(t *testing.T) {
	m := bus.NewMemory()

	first := make(chan sse.Delivery, 4)
	second := make(chan sse.Delivery, 4)
	require.NoError(t, m.Subscribe("orders", "c1", first))
	require.NoError(t, m.Subscribe("orders", "c2", second))
	require.Equal(t, 2, m.Subscribers("orders"))

	require.NoError(t, m.Publish("orders", sse.NewMessage("hello")))

	for _, sink := range []chan sse.Delivery{first, second} {
		d := <-sink
		require.Equal(t, "orders", d.Topic)
		require.Equal(t, []string{"hello"}, d.Chunk.Lines())
	}
}

func TestMemoryUnsubscribe(t *testing.T) {
	m := bus.NewMemory()

	sink := make(chan sse.Delivery, 4)
	require.NoError(t, m.Subscribe("orders", "c1", sink))
	require.NoError(t, m.Unsubscribe("orders", "c1"))
	require.Equal(t, 0, m.Subscribers("orders"))

	require.NoError(t, m.Publish("orders", sse.NewMessage("hello")))
	require.Empty(t, sink)
}

func TestMemoryUnsubscribeUnknown(t *testing.T) {
	m := bus.NewMemory()
	require.NoError(t, m.Unsubscribe("missing", "c1"))
}

func TestMemoryPublishOrder(t *testing.T) {
	m := bus.NewMemory()

	sink := make(chan sse.Delivery, 8)
	require.NoError(t, m.Subscribe("orders", "c1", sink))

	for _, line := range []string{"1", "2", "3", "4"} {
		require.NoError(t, m.Publish("orders", sse.NewMessage(line)))
	}

	for _, want := range []string{"1", "2", "3", "4"} {
		d := <-sink
		require.Equal(t, []string{want}, d.Chunk.Lines())
	}
}

func TestMemorySlowSubscriberDropped(t *testing.T) {
	m := bus.NewMemory()

	slow := make(chan sse.Delivery, 1)
	fast := make(chan sse.Delivery, 4)
	require.NoError(t, m.Subscribe("orders", "slow", slow))
	require.NoError(t, m.Subscribe("orders", "fast", fast))

	// The second publish overflows the slow sink and must not block.
	require.NoError(t, m.Publish("orders", sse.NewMessage("1")))
	require.NoError(t, m.Publish("orders", sse.NewMessage("2")))

	require.Len(t, slow, 1)
	require.Len(t, fast, 2)

	d := <-slow
	require.Equal(t, []string{"1"}, d.Chunk.Lines())
}
