package email

import (
	"bytes"
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/quantonganh/newsletter"
)

type senderFunc func(m *gomail.Message) error

func (f senderFunc) Send(_ context.Context, m *gomail.Message) error {
	return f(m)
}

func testConfig() *newsletter.Config {
	var c newsletter.Config
	c.Newsletter.From = "newsletter@example.com"
	c.Newsletter.Contact = "newsletter@example.com"
	c.Newsletter.Product.Name = "example.com"
	c.Newsletter.Product.Link = "https://example.com/"
	return &c
}

func TestMailer_Send(t *testing.T) {
	var sent []*gomail.Message
	m := NewMailerWithSender("newsletter@example.com", senderFunc(func(msg *gomail.Message) error {
		sent = append(sent, msg)
		return nil
	}))

	ok := m.Send(context.Background(), "foo@example.com", "Hello", "<p>Hi</p>")
	require.True(t, ok)
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"foo@example.com"}, sent[0].GetHeader("To"))
	assert.Equal(t, []string{"newsletter@example.com"}, sent[0].GetHeader("From"))
	assert.Equal(t, []string{"Hello"}, sent[0].GetHeader("Subject"))

	var buf bytes.Buffer
	_, err := sent[0].WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "text/html")
}

func TestMailer_SendFailure(t *testing.T) {
	m := NewMailerWithSender("newsletter@example.com", senderFunc(func(*gomail.Message) error {
		return errors.New("connection refused")
	}))

	assert.False(t, m.Send(context.Background(), "foo@example.com", "Hello", "<p>Hi</p>"))
}

func TestMailer_SendCancelled(t *testing.T) {
	called := false
	m := NewMailerWithSender("newsletter@example.com", senderFunc(func(*gomail.Message) error {
		called = true
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.False(t, m.Send(ctx, "foo@example.com", "Hello", "<p>Hi</p>"))
	assert.False(t, called)
}

func TestComposer_ConfirmationEmail(t *testing.T) {
	c := NewComposer(testConfig())

	msg, err := c.ConfirmationEmail("https://newsletter.example.com/subscriptions/confirm?token=0123abcd")
	require.NoError(t, err)
	assert.Equal(t, "Confirm your subscription to example.com", msg.Subject)
	assert.Contains(t, msg.HTMLBody, "Confirm Subscription")
	assert.Contains(t, msg.HTMLBody, "token=0123abcd")
	assert.Contains(t, msg.HTMLBody, "newsletter@example.com")
}

func TestComposer_DigestEmail(t *testing.T) {
	c := NewComposer(testConfig())
	post := &newsletter.Post{Title: "New Test Post", Link: "https://example.com/blog/test-post"}

	msg, err := c.DigestEmail(post, "https://example.com/blog/test-post?s=newsletter", "https://newsletter.example.com/unsubscribe?token=feedbeef")
	require.NoError(t, err)
	assert.Equal(t, "New post on example.com: New Test Post", msg.Subject)
	assert.Contains(t, msg.HTMLBody, "New Test Post")
	assert.Contains(t, msg.HTMLBody, "https://example.com/blog/test-post?s=newsletter")
	assert.Contains(t, msg.HTMLBody, "token=feedbeef")
	assert.Contains(t, msg.HTMLBody, "Unsubscribe")
}
