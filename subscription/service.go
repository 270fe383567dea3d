// Package subscription implements the double opt-in lifecycle of a subscriber:
// subscribe, confirm and unsubscribe, each authorized by the subscriber's token.
package subscription

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/mail"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/quantonganh/newsletter"
)

const tokenBytes = 16

type service struct {
	store    newsletter.SubscriberStore
	mailer   newsletter.Mailer
	composer newsletter.Composer
	baseURL  string
	policy   newsletter.ResubscribePolicy
}

// NewService returns new subscription service.
// baseURL prefixes the confirmation links sent to subscribers.
func NewService(store newsletter.SubscriberStore, mailer newsletter.Mailer, composer newsletter.Composer, baseURL string, policy newsletter.ResubscribePolicy) newsletter.SubscriptionService {
	if policy == "" {
		policy = newsletter.ResubscribeKeep
	}

	return &service{
		store:    store,
		mailer:   mailer,
		composer: composer,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		policy:   policy,
	}
}

// Subscribe records email with a fresh token and sends a confirmation email.
// The token is returned even when the email could not be delivered.
func (s *service) Subscribe(ctx context.Context, rawEmail string) (string, error) {
	const op = "subscription.Subscribe"

	email, err := NormalizeEmail(rawEmail)
	if err != nil {
		return "", &newsletter.Error{Op: op, Err: err}
	}

	token, err := GenerateToken()
	if err != nil {
		return "", &newsletter.Error{Op: op, Err: err}
	}

	if err := s.store.UpsertSubscriber(ctx, email, token, s.policy == newsletter.ResubscribeReset); err != nil {
		return "", &newsletter.Error{Op: op, Err: err}
	}

	logger := zerolog.Ctx(ctx)
	msg, err := s.composer.ConfirmationEmail(ConfirmURL(s.baseURL, token))
	if err != nil {
		logger.Error().Err(err).Str("email", email).Msg("cannot compose confirmation email")
		return token, nil
	}

	if !s.mailer.Send(ctx, email, msg.Subject, msg.HTMLBody) {
		logger.Warn().Str("email", email).Msg("confirmation email was not delivered")
	}

	return token, nil
}

// Confirm marks the subscriber owning token as confirmed.
// It reports false without error when no subscriber owns token.
func (s *service) Confirm(ctx context.Context, token string) (bool, error) {
	const op = "subscription.Confirm"

	if strings.TrimSpace(token) == "" {
		return false, &newsletter.Error{Op: op, Err: newsletter.Errorf(newsletter.ErrInvalid, "token is required")}
	}

	n, err := s.store.SetConfirmedByToken(ctx, token)
	if err != nil {
		return false, &newsletter.Error{Op: op, Err: err}
	}

	return n > 0, nil
}

// Unsubscribe deletes the subscriber owning token.
func (s *service) Unsubscribe(ctx context.Context, token string) (bool, error) {
	const op = "subscription.Unsubscribe"

	if strings.TrimSpace(token) == "" {
		return false, &newsletter.Error{Op: op, Err: newsletter.Errorf(newsletter.ErrInvalid, "token is required")}
	}

	n, err := s.store.DeleteByToken(ctx, token)
	if err != nil {
		return false, &newsletter.Error{Op: op, Err: err}
	}

	if n > 0 {
		zerolog.Ctx(ctx).Info().Msg("subscriber deleted")
	}

	return n > 0, nil
}

func (s *service) FindByToken(ctx context.Context, token string) (*newsletter.Subscriber, error) {
	if token == "" {
		return nil, newsletter.Errorf(newsletter.ErrInvalid, "token is required")
	}
	return s.store.FindByToken(ctx, token)
}

func (s *service) FindByEmail(ctx context.Context, rawEmail string) (*newsletter.Subscriber, error) {
	email := strings.ToLower(strings.TrimSpace(rawEmail))
	if email == "" {
		return nil, newsletter.Errorf(newsletter.ErrInvalid, "email is required")
	}
	return s.store.FindByEmail(ctx, email)
}

// NormalizeEmail trims and lower-cases rawEmail and checks that it is a bare address.
func NormalizeEmail(rawEmail string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(rawEmail))
	if email == "" {
		return "", newsletter.Errorf(newsletter.ErrInvalid, "email is required")
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", newsletter.Errorf(newsletter.ErrInvalid, "%s is not a valid email address", email)
	}

	return email, nil
}

// GenerateToken returns 128 random bits, hex encoded.
func GenerateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "rand.Read")
	}
	return hex.EncodeToString(b), nil
}

// ConfirmURL returns the link that confirms the subscription owning token
func ConfirmURL(baseURL, token string) string {
	return strings.TrimSuffix(baseURL, "/") + "/subscriptions/confirm?token=" + url.QueryEscape(token)
}

// UnsubscribeURL returns the link that leads to the unsubscribe confirmation step
func UnsubscribeURL(baseURL, token string) string {
	return strings.TrimSuffix(baseURL, "/") + "/unsubscribe?token=" + url.QueryEscape(token)
}
