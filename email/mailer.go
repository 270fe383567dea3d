package email

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/quantonganh/newsletter"
)

const defaultTimeout = 30 * time.Second

// Sender delivers a gomail message within ctx
type Sender interface {
	Send(ctx context.Context, m *gomail.Message) error
}

type mailer struct {
	from   string
	sender Sender
}

// NewMailer returns a mailer that delivers through the configured SMTP server
func NewMailer(config *newsletter.Config) newsletter.Mailer {
	s := NewSMTPSender(config.SMTP.Host, config.SMTP.Port, config.SMTP.Username, config.SMTP.Password, config.SMTP.Timeout)
	return NewMailerWithSender(config.Newsletter.From, s)
}

// NewMailerWithSender returns a mailer that hands messages to sender
func NewMailerWithSender(from string, sender Sender) newsletter.Mailer {
	return &mailer{
		from:   from,
		sender: sender,
	}
}

// Send delivers one HTML message. It reports whether the SMTP server accepted it.
func (m *mailer) Send(ctx context.Context, to, subject, htmlBody string) bool {
	logger := zerolog.Ctx(ctx)

	if err := ctx.Err(); err != nil {
		logger.Warn().Err(err).Str("to", to).Msg("mail not sent")
		return false
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	if err := m.sender.Send(ctx, msg); err != nil {
		err = errors.Wrapf(err, "failed to send mail to %s", to)
		logger.Error().Err(err).Msg("mail not sent")
		sentry.CaptureException(err)
		return false
	}

	return true
}

// SMTPSender opens one SMTP session per message. The whole session,
// from dial to QUIT, shares a single deadline.
type SMTPSender struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// NewSMTPSender returns a sender for host:port. A zero timeout means 30s.
func NewSMTPSender(host string, port int, username, password string, timeout time.Duration) *SMTPSender {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &SMTPSender{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		Timeout:  timeout,
	}
}

// Send delivers m, giving up at the earlier of ctx's deadline and s.Timeout
func (s *SMTPSender) Send(ctx context.Context, m *gomail.Message) error {
	deadline := time.Now().Add(s.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	addr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
	dialer := &net.Dialer{Deadline: deadline}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "failed to connect to %s", addr)
	}
	defer conn.Close()

	if err := conn.SetDeadline(deadline); err != nil {
		return errors.Wrap(err, "failed to set deadline")
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	c, err := smtp.NewClient(conn, s.Host)
	if err != nil {
		return errors.Wrap(err, "smtp.NewClient")
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.Host}); err != nil {
			return errors.Wrap(err, "STARTTLS")
		}
	}

	if s.Username != "" {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(smtp.PlainAuth("", s.Username, s.Password, s.Host)); err != nil {
				return errors.Wrap(err, "AUTH")
			}
		}
	}

	send := gomail.SendFunc(func(from string, to []string, msg io.WriterTo) error {
		if err := c.Mail(from); err != nil {
			return errors.Wrap(err, "MAIL FROM")
		}
		for _, rcpt := range to {
			if err := c.Rcpt(rcpt); err != nil {
				return errors.Wrapf(err, "RCPT TO %s", rcpt)
			}
		}

		w, err := c.Data()
		if err != nil {
			return errors.Wrap(err, "DATA")
		}
		if _, err := msg.WriteTo(w); err != nil {
			_ = w.Close()
			return errors.Wrap(err, "failed to write message")
		}
		return errors.Wrap(w.Close(), "DATA close")
	})
	if err := gomail.Send(send, m); err != nil {
		return err
	}

	return errors.Wrap(c.Quit(), "QUIT")
}
