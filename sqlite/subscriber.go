package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/quantonganh/newsletter"
)

const (
	upsertQuery = `INSERT INTO subscribers (email, token, confirmed, created_at) VALUES (?, ?, 0, ?)
ON CONFLICT(email) DO UPDATE SET token = excluded.token`
	upsertResetQuery = upsertQuery + `, confirmed = 0`

	selectColumns = `SELECT id, email, confirmed, token, created_at FROM subscribers`
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

// UpsertSubscriber inserts a new unconfirmed subscriber or rotates the token of an existing one
func (ss *subscriberStore) UpsertSubscriber(ctx context.Context, email, token string, resetConfirmation bool) error {
	query := upsertQuery
	if resetConfirmation {
		query = upsertResetQuery
	}

	s := newsletter.NewSubscriber(email, token)
	if _, err := ss.db.sqlDB.ExecContext(ctx, query, s.Email, s.Token, s.CreatedAt); err != nil {
		return errors.Wrap(err, "failed to upsert subscriber")
	}
	return nil
}

// SetConfirmedByToken confirms the subscriber owning token
func (ss *subscriberStore) SetConfirmedByToken(ctx context.Context, token string) (int64, error) {
	res, err := ss.db.sqlDB.ExecContext(ctx, `UPDATE subscribers SET confirmed = 1 WHERE token = ?`, token)
	if err != nil {
		return 0, errors.Wrap(err, "failed to confirm subscriber")
	}
	return res.RowsAffected()
}

// DeleteByToken deletes the subscriber owning token
func (ss *subscriberStore) DeleteByToken(ctx context.Context, token string) (int64, error) {
	res, err := ss.db.sqlDB.ExecContext(ctx, `DELETE FROM subscribers WHERE token = ?`, token)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete subscriber")
	}
	return res.RowsAffected()
}

// ListConfirmed returns email and token of every confirmed subscriber
func (ss *subscriberStore) ListConfirmed(ctx context.Context) ([]newsletter.Recipient, error) {
	rows, err := ss.db.sqlDB.QueryContext(ctx, `SELECT email, token FROM subscribers WHERE confirmed = 1 ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list confirmed subscribers")
	}
	defer rows.Close()

	recipients := []newsletter.Recipient{}
	for rows.Next() {
		var r newsletter.Recipient
		if err := rows.Scan(&r.Email, &r.Token); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}
		recipients = append(recipients, r)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate rows")
	}

	return recipients, nil
}

// FindByToken finds subscriber by token
func (ss *subscriberStore) FindByToken(ctx context.Context, token string) (*newsletter.Subscriber, error) {
	return ss.findOne(ctx, selectColumns+` WHERE token = ?`, token)
}

// FindByEmail finds subscriber by email
func (ss *subscriberStore) FindByEmail(ctx context.Context, email string) (*newsletter.Subscriber, error) {
	return ss.findOne(ctx, selectColumns+` WHERE email = ?`, email)
}

func (ss *subscriberStore) findOne(ctx context.Context, query string, arg string) (*newsletter.Subscriber, error) {
	var s newsletter.Subscriber
	err := ss.db.sqlDB.QueryRowContext(ctx, query, arg).
		Scan(&s.ID, &s.Email, &s.Confirmed, &s.Token, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, newsletter.Errorf(newsletter.ErrNotFound, "subscriber not found")
		}
		return nil, errors.Wrap(err, "failed to find subscriber")
	}
	return &s, nil
}
