package tasks

import (
	"context"

	"github.com/lysyi3m/rss-nibbler/app/feed"
)

// EntryFetcher downloads and parses one feed. Failures wrap feed.ErrFetch.
type EntryFetcher interface {
	Fetch(ctx context.Context, url string) ([]feed.Entry, error)
}

// ContentExtractor returns sanitized readable content for an article link.
type ContentExtractor interface {
	Extract(ctx context.Context, link string) (string, error)
}
