package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
)

// SQLArticleRepository is the guid-keyed article store
type SQLArticleRepository struct {
	db *DB
}

func NewArticleRepository(db *DB) *SQLArticleRepository {
	return &SQLArticleRepository{db: db}
}

func (r *SQLArticleRepository) IsKnown(ctx context.Context, guid string) (bool, error) {
	var known bool
	err := r.db.GetContext(ctx, &known, `SELECT EXISTS(SELECT 1 FROM articles WHERE guid = ?)`, guid)
	if err != nil {
		return false, fmt.Errorf("%w: failed to check article: %w", ErrStorage, err)
	}

	slog.Debug("Checked article", "guid", guid, "known", known)
	return known, nil
}

// Save inserts the article and sets its ID. A guid that is already stored is
// rejected by the unique constraint and reported as ErrStorage.
func (r *SQLArticleRepository) Save(ctx context.Context, article *Article) error {
	result, err := r.db.NamedExecContext(ctx, `
		INSERT INTO articles (feed_id, guid, title, link, pub_date, article_text, time_stamp)
		VALUES (:feed_id, :guid, :title, :link, :pub_date, :article_text, :time_stamp)
	`, article)
	if err != nil {
		return fmt.Errorf("%w: failed to store article %q: %w", ErrStorage, article.GUID, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: failed to read article id: %w", ErrStorage, err)
	}
	article.ID = id

	slog.Info("Stored article", "guid", article.GUID, "feed_id", article.FeedID)
	return nil
}

// FindByGUID returns the article with its feed title joined in. A miss wraps
// ErrNotFound.
func (r *SQLArticleRepository) FindByGUID(ctx context.Context, guid string) (*Article, error) {
	var article Article
	err := r.db.GetContext(ctx, &article, `
		SELECT a.id, a.feed_id, a.guid, a.title, a.link, a.pub_date,
		       a.article_text, a.time_stamp, f.title AS feed_title
		FROM articles a
		JOIN feeds f ON f.id = a.feed_id
		WHERE a.guid = ?
	`, guid)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("article %q: %w", guid, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get article %q: %w", ErrStorage, guid, err)
	}

	return &article, nil
}
