package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/quantonganh/newsletter"
)

// SubscriberStore is a testify mock of newsletter.SubscriberStore
type SubscriberStore struct {
	mock.Mock
}

func (m *SubscriberStore) UpsertSubscriber(ctx context.Context, email, token string, resetConfirmation bool) error {
	args := m.Called(ctx, email, token, resetConfirmation)
	return args.Error(0)
}

func (m *SubscriberStore) SetConfirmedByToken(ctx context.Context, token string) (int64, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(int64), args.Error(1)
}

func (m *SubscriberStore) DeleteByToken(ctx context.Context, token string) (int64, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(int64), args.Error(1)
}

func (m *SubscriberStore) ListConfirmed(ctx context.Context) ([]newsletter.Recipient, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]newsletter.Recipient), args.Error(1)
}

func (m *SubscriberStore) FindByToken(ctx context.Context, token string) (*newsletter.Subscriber, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*newsletter.Subscriber), args.Error(1)
}

func (m *SubscriberStore) FindByEmail(ctx context.Context, email string) (*newsletter.Subscriber, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*newsletter.Subscriber), args.Error(1)
}
