package newsletter

import (
	"context"
	"time"
)

// DigestService is the interface that wraps methods related to digest dispatch
type DigestService interface {
	SendDigest(ctx context.Context, feedURL, expectedKeyHash, key string) (*DigestResult, error)
	Dispatch(ctx context.Context, feedURL string) (*DigestResult, error)
}

// FeedReader fetches the most recent entry of a feed
type FeedReader interface {
	FetchLatestEntry(ctx context.Context, location string) (*Post, error)
}

// Post is the normalized view of a feed entry
type Post struct {
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DigestStatus is the outcome of a digest run that reached the feed
type DigestStatus string

const (
	DigestNoNewPosts DigestStatus = "no_new_posts"
	DigestSent       DigestStatus = "digest_sent"
)

// DigestResult represents the outcome of a digest run
type DigestResult struct {
	Status    DigestStatus `json:"message"`
	Post      *Post        `json:"post,omitempty"`
	SentCount int          `json:"sent_count"`
}

type DigestRequest struct {
	Key string `json:"key"`
}

type DigestResponse struct {
	Message   string `json:"message"`
	SentCount int    `json:"sent_count,omitempty"`
}
