package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/quantonganh/newsletter"
)

// SubscriptionService is a testify mock of newsletter.SubscriptionService
type SubscriptionService struct {
	mock.Mock
}

func (m *SubscriptionService) Subscribe(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *SubscriptionService) Confirm(ctx context.Context, token string) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}

func (m *SubscriptionService) Unsubscribe(ctx context.Context, token string) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}

func (m *SubscriptionService) FindByToken(ctx context.Context, token string) (*newsletter.Subscriber, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*newsletter.Subscriber), args.Error(1)
}

func (m *SubscriptionService) FindByEmail(ctx context.Context, email string) (*newsletter.Subscriber, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*newsletter.Subscriber), args.Error(1)
}

// DigestService is a testify mock of newsletter.DigestService
type DigestService struct {
	mock.Mock
}

func (m *DigestService) SendDigest(ctx context.Context, feedURL, expectedKeyHash, key string) (*newsletter.DigestResult, error) {
	args := m.Called(ctx, feedURL, expectedKeyHash, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*newsletter.DigestResult), args.Error(1)
}

func (m *DigestService) Dispatch(ctx context.Context, feedURL string) (*newsletter.DigestResult, error) {
	args := m.Called(ctx, feedURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*newsletter.DigestResult), args.Error(1)
}

// FeedReader is a testify mock of newsletter.FeedReader
type FeedReader struct {
	mock.Mock
}

func (m *FeedReader) FetchLatestEntry(ctx context.Context, location string) (*newsletter.Post, error) {
	args := m.Called(ctx, location)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*newsletter.Post), args.Error(1)
}

// QueueService is a testify mock of newsletter.QueueService
type QueueService struct {
	mock.Mock
}

func (m *QueueService) Consume(ctx context.Context, topic string) (<-chan []byte, error) {
	args := m.Called(ctx, topic)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan []byte), args.Error(1)
}

func (m *QueueService) Close() error {
	return m.Called().Error(0)
}
