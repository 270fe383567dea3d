package digest

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/quantonganh/newsletter"
)

// Consumer triggers a digest for every message published on a queue topic.
// Messages carry the digest key, so the same authorization applies as over HTTP.
type Consumer struct {
	queue   newsletter.QueueService
	service newsletter.DigestService
	feedURL string
	keyHash string
}

// NewConsumer returns new queue consumer
func NewConsumer(queue newsletter.QueueService, service newsletter.DigestService, feedURL, keyHash string) *Consumer {
	return &Consumer{
		queue:   queue,
		service: service,
		feedURL: feedURL,
		keyHash: keyHash,
	}
}

// Run consumes topic until ctx is done or the queue closes the delivery channel
func (c *Consumer) Run(ctx context.Context, topic string) error {
	messages, err := c.queue.Consume(ctx, topic)
	if err != nil {
		return err
	}

	logger := zerolog.Ctx(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case body, ok := <-messages:
			if !ok {
				return nil
			}
			c.handle(ctx, logger, body)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, logger *zerolog.Logger, body []byte) {
	var req newsletter.DigestRequest
	if err := json.Unmarshal(body, &req); err != nil {
		logger.Warn().Err(err).Msg("skipping malformed digest message")
		return
	}

	result, err := c.service.SendDigest(ctx, c.feedURL, c.keyHash, req.Key)
	if err != nil {
		logger.Error().Err(err).Str("code", newsletter.ErrorCode(err)).Msg("queued digest failed")
		return
	}

	logger.Info().Str("status", string(result.Status)).Int("sent", result.SentCount).Msg("queued digest finished")
}
