package tasks

import (
	"context"
	"log/slog"

	"github.com/lysyi3m/rss-nibbler/app/database"
	"github.com/lysyi3m/rss-nibbler/app/feed"
)

// SyncSubscriptionsTask adds every outline feed whose URL is not stored yet.
// Existing feeds are never updated or removed.
type SyncSubscriptionsTask struct {
	Task
	subscriptions []feed.Subscription
	feedRepo      database.FeedRepository

	Created int
	Total   int // feeds stored once the sync is done
}

func NewSyncSubscriptionsTask(subscriptions []feed.Subscription, feedRepo database.FeedRepository) *SyncSubscriptionsTask {
	return &SyncSubscriptionsTask{
		Task:          NewTask(TaskTypeSyncSubscriptions, ""),
		subscriptions: subscriptions,
		feedRepo:      feedRepo,
	}
}

func (t *SyncSubscriptionsTask) Execute(ctx context.Context) error {
	errorCount := 0

	for _, sub := range t.subscriptions {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		existing, err := t.feedRepo.GetFeedByURL(ctx, sub.URL)
		if err != nil {
			slog.Error("Failed to look up feed", "url", sub.URL, "error", err)
			errorCount++
			continue
		}
		if existing != nil {
			slog.Debug("Feed already registered", "url", sub.URL, "feed_id", existing.ID)
			continue
		}

		id, err := t.feedRepo.CreateFeed(ctx, sub.Title, sub.URL, sub.Description)
		if err != nil {
			slog.Error("Failed to register feed", "url", sub.URL, "error", err)
			errorCount++
			continue
		}

		slog.Info("Registered feed", "feed_id", id, "title", sub.Title, "url", sub.URL)
		t.Created++
	}

	total, err := t.feedRepo.GetFeedCount(ctx)
	if err != nil {
		slog.Error("Failed to count feeds", "error", err)
		errorCount++
	}
	t.Total = total

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"subscriptions", len(t.subscriptions),
		"created", t.Created,
		"feeds", t.Total,
		"errors", errorCount)

	return nil
}
