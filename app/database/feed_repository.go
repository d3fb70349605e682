package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SQLFeedRepository handles database operations for feeds
type SQLFeedRepository struct {
	db *DB
}

func NewFeedRepository(db *DB) *SQLFeedRepository {
	return &SQLFeedRepository{db: db}
}

// GetFeedByURL returns nil, nil when no feed has exactly this url.
func (r *SQLFeedRepository) GetFeedByURL(ctx context.Context, url string) (*Feed, error) {
	var feed Feed
	err := r.db.GetContext(ctx, &feed, `
		SELECT id, title, url, COALESCE(description, '') AS description
		FROM feeds
		WHERE url = ?
	`, url)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get feed by URL: %w", ErrStorage, err)
	}

	return &feed, nil
}

func (r *SQLFeedRepository) GetFeeds(ctx context.Context) ([]Feed, error) {
	var feeds []Feed
	err := r.db.SelectContext(ctx, &feeds, `
		SELECT id, title, url, COALESCE(description, '') AS description
		FROM feeds
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get feeds: %w", ErrStorage, err)
	}

	return feeds, nil
}

func (r *SQLFeedRepository) GetFeedCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM feeds"); err != nil {
		return 0, fmt.Errorf("%w: failed to get feed count: %w", ErrStorage, err)
	}
	return count, nil
}

// CreateFeed inserts a feed and returns its id. An empty description is
// stored as NULL.
func (r *SQLFeedRepository) CreateFeed(ctx context.Context, title, url, description string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO feeds (title, url, description)
		VALUES (?, ?, ?)
	`, title, url, sql.NullString{String: description, Valid: description != ""})
	if err != nil {
		return 0, fmt.Errorf("%w: failed to create feed: %w", ErrStorage, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: failed to read feed id: %w", ErrStorage, err)
	}

	return id, nil
}
