package newsletter

import "context"

// QueueService delivers raw messages published on a topic
type QueueService interface {
	Consume(ctx context.Context, topic string) (<-chan []byte, error)
	Close() error
}
