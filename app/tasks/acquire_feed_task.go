package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/rss-nibbler/app/database"
	"github.com/lysyi3m/rss-nibbler/app/feed"
)

// AcquireFeedTask fetches one feed and stores the entries that have not been
// seen before. NewGUIDs lists them in entry order.
type AcquireFeedTask struct {
	Task
	Feed        database.Feed
	fetcher     EntryFetcher
	mapper      *feed.Mapper
	articleRepo database.ArticleRepository
	extractor   ContentExtractor // nil unless content extraction is enabled
	clock       func() time.Time

	NewGUIDs []string
}

func NewAcquireFeedTask(f database.Feed, fetcher EntryFetcher, mapper *feed.Mapper, articleRepo database.ArticleRepository, extractor ContentExtractor, clock func() time.Time) *AcquireFeedTask {
	return &AcquireFeedTask{
		Task:        NewTask(TaskTypeAcquireFeed, f.Title),
		Feed:        f,
		fetcher:     fetcher,
		mapper:      mapper,
		articleRepo: articleRepo,
		extractor:   extractor,
		clock:       clock,
	}
}

func (t *AcquireFeedTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	entries, err := t.fetcher.Fetch(ctx, t.Feed.URL)
	if err != nil {
		return fmt.Errorf("failed to fetch feed %d: %w", t.Feed.ID, err)
	}

	skippedCount := 0
	duplicateCount := 0
	errorCount := 0

	for i, entry := range entries {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		article, err := t.mapper.Map(entry, t.clock())
		if err != nil {
			slog.Warn("Could not map entry, skipping", "feed_id", t.Feed.ID, "index", i, "error", err)
			skippedCount++
			continue
		}

		known, err := t.articleRepo.IsKnown(ctx, article.GUID)
		if err != nil {
			slog.Error("Failed to check article", "feed_id", t.Feed.ID, "guid", article.GUID, "error", err)
			errorCount++
			continue
		}
		if known {
			duplicateCount++
			continue
		}

		if t.extractor != nil && article.ArticleText == feed.NoArticleText {
			t.extractContent(ctx, article)
		}

		record := &database.Article{
			FeedID:      t.Feed.ID,
			GUID:        article.GUID,
			Title:       article.Title,
			Link:        article.Link,
			PubDate:     article.PubDate,
			ArticleText: article.ArticleText,
			TimeStamp:   article.TimeStamp,
		}
		if err := t.articleRepo.Save(ctx, record); err != nil {
			slog.Error("Failed to store article", "feed_id", t.Feed.ID, "guid", article.GUID, "error", err)
			errorCount++
			continue
		}

		t.NewGUIDs = append(t.NewGUIDs, article.GUID)
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"feed", t.FeedName,
		"feed_id", t.Feed.ID,
		"duration", t.GetDuration(),
		"total", len(entries),
		"skipped", skippedCount,
		"duplicates", duplicateCount,
		"new", len(t.NewGUIDs),
		"errors", errorCount)

	return nil
}

func (t *AcquireFeedTask) extractContent(ctx context.Context, article *feed.Article) {
	content, err := t.extractor.Extract(ctx, article.Link)
	if err != nil {
		slog.Warn("Content extraction failed, keeping placeholder", "link", article.Link, "error", err)
		return
	}
	article.ArticleText = content
}
