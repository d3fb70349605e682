package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/rss-nibbler/app/database"
	"github.com/lysyi3m/rss-nibbler/app/feed"
)

// Runner drives one acquisition run: subscriptions are reconciled first, then
// every stored feed is acquired in id order, one at a time.
type Runner struct {
	feedRepo    database.FeedRepository
	articleRepo database.ArticleRepository
	fetcher     EntryFetcher
	mapper      *feed.Mapper
	extractor   ContentExtractor
	clock       func() time.Time
}

func NewRunner(feedRepo database.FeedRepository, articleRepo database.ArticleRepository, fetcher EntryFetcher, mapper *feed.Mapper) *Runner {
	return &Runner{
		feedRepo:    feedRepo,
		articleRepo: articleRepo,
		fetcher:     fetcher,
		mapper:      mapper,
		clock:       time.Now,
	}
}

// WithContentExtractor enables the readable-content fallback.
func (r *Runner) WithContentExtractor(extractor ContentExtractor) *Runner {
	r.extractor = extractor
	return r
}

func (r *Runner) WithClock(clock func() time.Time) *Runner {
	r.clock = clock
	return r
}

// Run returns the guids stored during this run, in feed order and then entry
// order. A feed that fails to fetch is logged and skipped.
func (r *Runner) Run(ctx context.Context, subscriptions []feed.Subscription) ([]string, error) {
	slog.Info("Starting to acquire content", "subscriptions", len(subscriptions))

	r.execute(ctx, NewSyncSubscriptionsTask(subscriptions, r.feedRepo))

	feeds, err := r.feedRepo.GetFeeds(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list feeds: %w", err)
	}

	var newGUIDs []string
	for _, f := range feeds {
		if err := ctx.Err(); err != nil {
			return newGUIDs, err
		}

		slog.Info("Getting content for feed", "feed_id", f.ID, "url", f.URL)
		task := NewAcquireFeedTask(f, r.fetcher, r.mapper, r.articleRepo, r.extractor, r.clock)
		r.execute(ctx, task)
		newGUIDs = append(newGUIDs, task.NewGUIDs...)
	}

	slog.Info("Finished acquiring content", "feeds", len(feeds), "new", len(newGUIDs))

	return newGUIDs, nil
}

func (r *Runner) execute(ctx context.Context, task TaskInterface) {
	task.Start()

	if err := task.Execute(ctx); err != nil {
		slog.Error("Task failed",
			"type", string(task.GetType()),
			"id", task.GetID(),
			"feed", task.GetFeedName(),
			"error", err)
	}
}
