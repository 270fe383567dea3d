// Package digest announces a new feed post to every confirmed subscriber.
package digest

import (
	"context"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/quantonganh/newsletter"
	"github.com/quantonganh/newsletter/pkg/hash"
	"github.com/quantonganh/newsletter/subscription"
)

const defaultTrackingParam = "newsletter"

// Options configures a Dispatcher
type Options struct {
	// Window is how recent the latest entry must be to count as a new post. Required.
	Window time.Duration
	// Concurrency bounds the number of messages in flight. Zero means sequential.
	Concurrency int
	// TrackingParam is the value of the "s" query parameter added to post links.
	TrackingParam string
	// BaseURL prefixes the unsubscribe links.
	BaseURL string
	// Now replaces time.Now in tests.
	Now func() time.Time
}

// Dispatcher sends digests
type Dispatcher struct {
	store    newsletter.SubscriberStore
	mailer   newsletter.Mailer
	reader   newsletter.FeedReader
	composer newsletter.Composer

	window        time.Duration
	concurrency   int
	trackingParam string
	baseURL       string
	now           func() time.Time
}

var _ newsletter.DigestService = (*Dispatcher)(nil)

// NewDispatcher returns new digest dispatcher
func NewDispatcher(store newsletter.SubscriberStore, mailer newsletter.Mailer, reader newsletter.FeedReader, composer newsletter.Composer, opts Options) (*Dispatcher, error) {
	if opts.Window <= 0 {
		return nil, errors.New("digest window must be positive")
	}

	d := &Dispatcher{
		store:         store,
		mailer:        mailer,
		reader:        reader,
		composer:      composer,
		window:        opts.Window,
		concurrency:   opts.Concurrency,
		trackingParam: opts.TrackingParam,
		baseURL:       opts.BaseURL,
		now:           opts.Now,
	}

	if d.concurrency <= 0 {
		d.concurrency = 1
	}
	if d.trackingParam == "" {
		d.trackingParam = defaultTrackingParam
	}
	if d.now == nil {
		d.now = time.Now
	}

	return d, nil
}

// SendDigest checks key against expectedKeyHash and, when it matches, dispatches the digest.
// A mismatch returns an unauthorized error before the feed or the store is touched.
func (d *Dispatcher) SendDigest(ctx context.Context, feedURL, expectedKeyHash, key string) (*newsletter.DigestResult, error) {
	if !hash.Verify(expectedKeyHash, key) {
		return nil, &newsletter.Error{
			Op:  "digest.SendDigest",
			Err: newsletter.Errorf(newsletter.ErrUnauthorized, "unauthorized"),
		}
	}

	return d.Dispatch(ctx, feedURL)
}

// Dispatch loads the feed and, when its latest entry is within the window,
// emails it to every confirmed subscriber.
func (d *Dispatcher) Dispatch(ctx context.Context, feedURL string) (*newsletter.DigestResult, error) {
	const op = "digest.Dispatch"
	logger := zerolog.Ctx(ctx)

	post, err := d.reader.FetchLatestEntry(ctx, feedURL)
	if err != nil {
		logger.Error().Err(err).Str("feed", feedURL).Msg("cannot load feed")
		return nil, &newsletter.Error{
			Op:  op,
			Err: &newsletter.Error{Code: newsletter.ErrFeedLoadFailed, Message: "Failed to load feed.", Err: err},
		}
	}

	if !d.IsNew(post) {
		logger.Info().Str("title", post.Title).Time("updated", post.UpdatedAt).Msg("no new posts")
		return &newsletter.DigestResult{Status: newsletter.DigestNoNewPosts}, nil
	}

	recipients, err := d.store.ListConfirmed(ctx)
	if err != nil {
		return nil, &newsletter.Error{Op: op, Err: err}
	}

	sent := d.fanOut(ctx, post, recipients)
	logger.Info().
		Str("title", post.Title).
		Int("recipients", len(recipients)).
		Int("sent", sent).
		Msg("digest sent")

	return &newsletter.DigestResult{
		Status:    newsletter.DigestSent,
		Post:      post,
		SentCount: sent,
	}, nil
}

// IsNew reports whether post was updated within the window
func (d *Dispatcher) IsNew(post *newsletter.Post) bool {
	if post == nil || post.UpdatedAt.IsZero() {
		return false
	}
	return post.UpdatedAt.After(d.now().Add(-d.window))
}

func (d *Dispatcher) fanOut(ctx context.Context, post *newsletter.Post, recipients []newsletter.Recipient) int {
	var (
		g    errgroup.Group
		sent int64
	)
	g.SetLimit(d.concurrency)

	postURL := TrackingURL(post.Link, d.trackingParam)
	for _, r := range recipients {
		r := r
		g.Go(func() error {
			if d.send(ctx, post, postURL, r) {
				atomic.AddInt64(&sent, 1)
			}
			// a failed send never cancels the others
			return nil
		})
	}
	_ = g.Wait()

	return int(sent)
}

func (d *Dispatcher) send(ctx context.Context, post *newsletter.Post, postURL string, r newsletter.Recipient) bool {
	msg, err := d.composer.DigestEmail(post, postURL, subscription.UnsubscribeURL(d.baseURL, r.Token))
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("to", r.Email).Msg("cannot compose digest email")
		return false
	}

	return d.mailer.Send(ctx, r.Email, msg.Subject, msg.HTMLBody)
}

// TrackingURL adds s=param to the query of link
func TrackingURL(link, param string) string {
	u, err := url.Parse(link)
	if err != nil {
		return link
	}

	q := u.Query()
	q.Set("s", param)
	u.RawQuery = q.Encode()

	return u.String()
}
