package newsletter

import (
	"net/url"
	"time"

	"github.com/pkg/errors"
)

// Config represents the main config
type Config struct {
	DB struct {
		Type string // "bolt" or "sqlite"
		Path string
	}

	HTTP struct {
		Addr   string
		Domain string
	}

	// BaseURL prefixes the confirmation and unsubscribe links, e.g. https://newsletter.example.com
	BaseURL string

	SMTP struct {
		Host     string
		Port     int
		Username string
		Password string
		// Timeout bounds a whole SMTP session, from dial to QUIT
		Timeout time.Duration
	}

	Newsletter struct {
		From              string
		Contact           string
		ResubscribePolicy ResubscribePolicy
		Product           struct {
			Name string
			Link string
		}
	}

	Feed struct {
		Timeout time.Duration
	}

	Digest struct {
		FeedURL       string
		KeyHash       string
		Window        time.Duration
		Concurrency   int
		TrackingParam string
		Topic         string
		Cron          struct {
			Spec string
		}
	}

	Sentry struct {
		DSN string
	}

	AMQP struct {
		URL string
	}
}

// Validate checks the settings that have no sensible default
func (c *Config) Validate() error {
	switch c.DB.Type {
	case "bolt", "sqlite":
	default:
		return errors.Errorf("unsupported db.type %q", c.DB.Type)
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Errorf("baseurl must be an absolute http(s) URL, got %q", c.BaseURL)
	}

	if c.Digest.FeedURL == "" {
		return errors.New("digest.feedurl is required")
	}

	if c.Digest.KeyHash == "" {
		return errors.New("digest.keyhash is required")
	}

	if c.Digest.Window <= 0 {
		return errors.New("digest.window must be a positive duration")
	}

	switch c.Newsletter.ResubscribePolicy {
	case ResubscribeKeep, ResubscribeReset:
	default:
		return errors.Errorf("unsupported newsletter.resubscribepolicy %q", c.Newsletter.ResubscribePolicy)
	}

	return nil
}
