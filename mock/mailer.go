package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/quantonganh/newsletter"
)

// Mailer is a testify mock of newsletter.Mailer
type Mailer struct {
	mock.Mock
}

func (m *Mailer) Send(ctx context.Context, to, subject, htmlBody string) bool {
	args := m.Called(ctx, to, subject, htmlBody)
	return args.Bool(0)
}

// Recipients returns the to address of every Send call, in call order
func (m *Mailer) Recipients() []string {
	var to []string
	for _, c := range m.Calls {
		if c.Method == "Send" {
			to = append(to, c.Arguments.String(1))
		}
	}
	return to
}

// Composer is a testify mock of newsletter.Composer
type Composer struct {
	mock.Mock
}

func (m *Composer) ConfirmationEmail(confirmURL string) (*newsletter.Message, error) {
	args := m.Called(confirmURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*newsletter.Message), args.Error(1)
}

func (m *Composer) DigestEmail(post *newsletter.Post, postURL, unsubscribeURL string) (*newsletter.Message, error) {
	args := m.Called(post, postURL, unsubscribeURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*newsletter.Message), args.Error(1)
}
