package newsletter

import (
	"context"
	"time"
)

// SubscriberStore is the interface that wraps methods related to subscriber persistence
type SubscriberStore interface {
	UpsertSubscriber(ctx context.Context, email, token string, resetConfirmation bool) error
	SetConfirmedByToken(ctx context.Context, token string) (int64, error)
	DeleteByToken(ctx context.Context, token string) (int64, error)
	ListConfirmed(ctx context.Context) ([]Recipient, error)
	FindByToken(ctx context.Context, token string) (*Subscriber, error)
	FindByEmail(ctx context.Context, email string) (*Subscriber, error)
}

// SubscriptionService is the interface that wraps methods related to the subscription lifecycle
type SubscriptionService interface {
	Subscribe(ctx context.Context, email string) (string, error)
	Confirm(ctx context.Context, token string) (bool, error)
	Unsubscribe(ctx context.Context, token string) (bool, error)
	FindByToken(ctx context.Context, token string) (*Subscriber, error)
	FindByEmail(ctx context.Context, email string) (*Subscriber, error)
}

// Subscriber represents a subscriber
type Subscriber struct {
	ID        int       `storm:"id,increment" json:"id"`
	Email     string    `storm:"unique" json:"email"`
	Confirmed bool      `storm:"index" json:"confirmed"`
	Token     string    `storm:"unique" json:"token"`
	CreatedAt time.Time `json:"created_at"`
}

// Recipient is the part of a confirmed subscriber a digest needs
type Recipient struct {
	Email string
	Token string
}

// ResubscribePolicy decides what happens to the confirmation state
// when an existing address subscribes again.
type ResubscribePolicy string

const (
	// ResubscribeKeep only rotates the token.
	ResubscribeKeep ResubscribePolicy = "keep"
	// ResubscribeReset rotates the token and requires a new confirmation.
	ResubscribeReset ResubscribePolicy = "reset"
)

// NewSubscriber returns new unconfirmed subscriber
func NewSubscriber(email, token string) *Subscriber {
	return &Subscriber{
		Email:     email,
		Token:     token,
		CreatedAt: time.Now().UTC(),
	}
}

type SubscriptionRequest struct {
	Email string `json:"email"`
}

type SubscriptionResponse struct {
	Message string `json:"message"`
}
