// Package feed reads the most recent entry of an RSS or Atom feed.
package feed

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/pkg/errors"

	"github.com/quantonganh/newsletter"
)

const defaultTimeout = 10 * time.Second

// Reader fetches feeds over HTTP or from the local file system
type Reader struct {
	parser *gofeed.Parser
}

// NewReader returns a feed reader whose HTTP requests time out after timeout.
// A zero timeout selects a 10 second default.
func NewReader(timeout time.Duration) *Reader {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}

	return &Reader{
		parser: parser,
	}
}

// FetchLatestEntry returns the first entry in document order.
// Feeds are expected to list their newest entry first.
func (r *Reader) FetchLatestEntry(ctx context.Context, location string) (*newsletter.Post, error) {
	f, err := r.fetch(ctx, location)
	if err != nil {
		return nil, err
	}

	if len(f.Items) == 0 {
		return nil, errors.Errorf("feed %s has no entries", location)
	}

	return toPost(f.Items[0]), nil
}

func (r *Reader) fetch(ctx context.Context, location string) (*gofeed.Feed, error) {
	if location == "" {
		return nil, errors.New("feed location cannot be empty")
	}

	u, err := url.Parse(location)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid feed location %s", location)
	}

	switch u.Scheme {
	case "http", "https":
		f, err := r.parser.ParseURLWithContext(location, ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to fetch feed %s", location)
		}
		return f, nil
	case "file", "":
		path := location
		if u.Scheme == "file" {
			path = u.Path
		}

		file, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open feed")
		}
		defer file.Close()

		f, err := r.parser.Parse(file)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse feed %s", path)
		}
		return f, nil
	default:
		return nil, errors.Errorf("unsupported feed scheme %q", u.Scheme)
	}
}

func toPost(item *gofeed.Item) *newsletter.Post {
	post := &newsletter.Post{
		Title: strings.TrimSpace(item.Title),
		Link:  item.Link,
	}

	if item.UpdatedParsed != nil {
		post.UpdatedAt = *item.UpdatedParsed
	} else if item.PublishedParsed != nil {
		post.UpdatedAt = *item.PublishedParsed
	}

	if post.Link == "" && len(item.Links) > 0 {
		post.Link = item.Links[0]
	}

	return post
}
