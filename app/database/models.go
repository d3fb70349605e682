package database

import (
	"time"
)

// Feed represents a subscribed feed row
type Feed struct {
	ID          int64  `db:"id"`
	Title       string `db:"title"`
	URL         string `db:"url"`
	Description string `db:"description"`
}

// Article represents a stored article row. FeedTitle is filled in by reads
// that join the owning feed and is never written.
type Article struct {
	ID          int64     `db:"id"`
	FeedID      int64     `db:"feed_id"`
	GUID        string    `db:"guid"`
	Title       string    `db:"title"`
	Link        string    `db:"link"`
	PubDate     string    `db:"pub_date"`
	ArticleText string    `db:"article_text"`
	TimeStamp   time.Time `db:"time_stamp"`
	FeedTitle   string    `db:"feed_title"`
}
