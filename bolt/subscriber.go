package bolt

import (
	"context"

	"github.com/asdine/storm/v3"
	"github.com/asdine/storm/v3/q"
	"github.com/go-errors/errors"

	"github.com/quantonganh/newsletter"
)

type subscriberStore struct {
	db *DB
}

// NewSubscriberStore returns a subscriber store backed by db
func NewSubscriberStore(db *DB) newsletter.SubscriberStore {
	return &subscriberStore{
		db: db,
	}
}

// UpsertSubscriber inserts a new unconfirmed subscriber or rotates the token of an existing one.
// Lookup and write share one writable bolt transaction, and bolt allows a single writer at a time.
func (ss *subscriberStore) UpsertSubscriber(ctx context.Context, email, token string, resetConfirmation bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx, err := ss.db.stormDB.Begin(true)
	if err != nil {
		return errors.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	var s newsletter.Subscriber
	err = tx.One("Email", email, &s)
	switch {
	case errors.Is(err, storm.ErrNotFound):
		if err := tx.Save(newsletter.NewSubscriber(email, token)); err != nil {
			return errors.Errorf("failed to save: %v", err)
		}
	case err != nil:
		return errors.Errorf("failed to find by email: %v", err)
	default:
		if err := tx.UpdateField(&s, "Token", token); err != nil {
			return errors.Errorf("failed to update token: %v", err)
		}
		if resetConfirmation {
			if err := tx.UpdateField(&s, "Confirmed", false); err != nil {
				return errors.Errorf("failed to reset confirmation: %v", err)
			}
		}
	}

	return tx.Commit()
}

// SetConfirmedByToken confirms the subscriber owning token
func (ss *subscriberStore) SetConfirmedByToken(ctx context.Context, token string) (int64, error) {
	return ss.mutateByToken(ctx, token, func(node storm.Node, s *newsletter.Subscriber) error {
		return node.UpdateField(s, "Confirmed", true)
	})
}

// DeleteByToken deletes the subscriber owning token
func (ss *subscriberStore) DeleteByToken(ctx context.Context, token string) (int64, error) {
	return ss.mutateByToken(ctx, token, func(node storm.Node, s *newsletter.Subscriber) error {
		return node.DeleteStruct(s)
	})
}

func (ss *subscriberStore) mutateByToken(ctx context.Context, token string, fn func(storm.Node, *newsletter.Subscriber) error) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	tx, err := ss.db.stormDB.Begin(true)
	if err != nil {
		return 0, errors.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	var s newsletter.Subscriber
	if err := tx.One("Token", token, &s); err != nil {
		if errors.Is(err, storm.ErrNotFound) {
			return 0, nil
		}
		return 0, errors.Errorf("failed to find by token: %v", err)
	}

	if err := fn(tx, &s); err != nil {
		return 0, errors.Errorf("failed to update subscriber %d: %v", s.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Errorf("failed to commit: %v", err)
	}

	return 1, nil
}

// ListConfirmed returns email and token of every confirmed subscriber
func (ss *subscriberStore) ListConfirmed(ctx context.Context) ([]newsletter.Recipient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var subscribers []newsletter.Subscriber
	err := ss.db.stormDB.Select(q.Eq("Confirmed", true)).OrderBy("ID").Find(&subscribers)
	if err != nil && !errors.Is(err, storm.ErrNotFound) {
		return nil, errors.Errorf("failed to find confirmed subscribers: %v", err)
	}

	recipients := make([]newsletter.Recipient, 0, len(subscribers))
	for _, s := range subscribers {
		recipients = append(recipients, newsletter.Recipient{Email: s.Email, Token: s.Token})
	}

	return recipients, nil
}

// FindByToken finds subscriber by token
func (ss *subscriberStore) FindByToken(ctx context.Context, token string) (*newsletter.Subscriber, error) {
	return ss.findOne(ctx, "Token", token)
}

// FindByEmail finds subscriber by email
func (ss *subscriberStore) FindByEmail(ctx context.Context, email string) (*newsletter.Subscriber, error) {
	return ss.findOne(ctx, "Email", email)
}

func (ss *subscriberStore) findOne(ctx context.Context, field, value string) (*newsletter.Subscriber, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var s newsletter.Subscriber
	if err := ss.db.stormDB.One(field, value, &s); err != nil {
		if errors.Is(err, storm.ErrNotFound) {
			return nil, newsletter.Errorf(newsletter.ErrNotFound, "subscriber not found")
		}
		return nil, errors.Errorf("failed to find by %s: %v", field, err)
	}

	return &s, nil
}
