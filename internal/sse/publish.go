package sse

// Broadcast sends the chunk to every subscriber of topic on the bus. It is
// fire-and-forget: exactly one dispatch call, no retries, bus errors are
// returned to the caller unchanged.
func Broadcast(b Bus, topic string, c Chunk) error {
	if !c.valid() {
		return ErrInvalidChunk
	}
	return b.Publish(topic, c)
}
