package newsletter

import "context"

// Mailer sends a single HTML message. Failures are reported as false, never as an error.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) bool
}

// Composer renders the emails sent to subscribers
type Composer interface {
	ConfirmationEmail(confirmURL string) (*Message, error)
	DigestEmail(post *Post, postURL, unsubscribeURL string) (*Message, error)
}

// Message is a rendered email
type Message struct {
	Subject  string
	HTMLBody string
}
