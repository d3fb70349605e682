package database

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("not found")
	ErrStorage  = errors.New("storage failure")
)

type FeedRepository interface {
	GetFeedByURL(ctx context.Context, url string) (*Feed, error)
	GetFeeds(ctx context.Context) ([]Feed, error)
	GetFeedCount(ctx context.Context) (int, error)

	CreateFeed(ctx context.Context, title, url, description string) (int64, error)
}

// ArticleRepository is the guid-keyed deduplicating store.
type ArticleRepository interface {
	IsKnown(ctx context.Context, guid string) (bool, error)
	Save(ctx context.Context, article *Article) error
	FindByGUID(ctx context.Context, guid string) (*Article, error)
}

var (
	_ FeedRepository    = (*SQLFeedRepository)(nil)
	_ ArticleRepository = (*SQLArticleRepository)(nil)
)
