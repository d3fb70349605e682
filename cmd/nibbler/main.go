package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/lysyi3m/rss-nibbler/app/cfg"
	"github.com/lysyi3m/rss-nibbler/app/database"
	"github.com/lysyi3m/rss-nibbler/app/digest"
	"github.com/lysyi3m/rss-nibbler/app/feed"
	"github.com/lysyi3m/rss-nibbler/app/tasks"
)

func main() {
	os.Exit(run())
}

func run() int {
	config, err := cfg.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}
	if config == nil {
		// Help or version was shown
		return 0
	}

	logFile, err := setupLogging(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		return 1
	}
	defer logFile.Close()

	slog.Info("Starting RSS Nibbler", "version", config.Version, "subscriptions_dir", config.SubDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(filepath.Join(config.DBDir, database.FileName))
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		return 1
	}
	defer db.Close()

	subscriptions, err := feed.LoadSubscriptions(filepath.Join(config.SubDir, feed.SubscriptionsFile))
	if err != nil {
		slog.Error("Failed to load subscriptions, continuing with stored feeds", "error", err)
	}

	feedRepo := database.NewFeedRepository(db)
	articleRepo := database.NewArticleRepository(db)

	httpClient := &http.Client{}
	normalizer := feed.NewNormalizer(feed.ImageStyle{
		Width:  config.ImageWidth,
		Height: config.ImageHeight,
		Border: config.ImageBorder,
	}).WithTags(config.TransparentTags, config.OpaqueTags)
	fetcher := feed.NewFetcher(httpClient, feed.NewParser(), config.UserAgent, config.FetchTimeout)

	runner := tasks.NewRunner(feedRepo, articleRepo, fetcher, feed.NewMapper(normalizer))
	if config.ExtractContent {
		runner.WithContentExtractor(feed.NewContentExtractor(httpClient, normalizer, config.UserAgent, config.FetchTimeout))
	}

	guids, err := runner.Run(ctx, subscriptions)
	if err != nil {
		slog.Error("Acquisition run failed", "error", err)
	}

	if err := publishDigest(ctx, config, articleRepo, normalizer, guids); err != nil {
		slog.Error("Failed to publish digest", "error", err)
	}

	slog.Info("RSS Nibbler finished", "new_articles", len(guids))
	return 0
}

// publishDigest builds and delivers the digest for guids. Stored articles are
// never offered again, so cancellation of ctx is ignored here.
func publishDigest(ctx context.Context, config *cfg.Cfg, articleRepo database.ArticleRepository, normalizer *feed.Normalizer, guids []string) error {
	ctx = context.WithoutCancel(ctx)

	msg, err := digest.NewAssembler(articleRepo, normalizer, config.FromEmail, config.ToEmail).Build(ctx, guids)
	if err != nil {
		return fmt.Errorf("failed to build digest: %w", err)
	}
	if msg == nil {
		slog.Info("Nothing to deliver")
		return nil
	}

	var sender digest.Sender
	if config.SMTP != nil {
		client, err := digest.NewSMTPClient(config.SMTP)
		if err != nil {
			slog.Error("Failed to set up SMTP, writing digest to file instead", "error", err)
		} else {
			sender = client
		}
	}

	return digest.NewDeliverer(sender, config.EmailDir, config.EmailDirSet).Deliver(ctx, msg)
}

// setupLogging sends records to stderr and to a dated file in the log dir.
func setupLogging(config *cfg.Cfg) (*os.File, error) {
	if err := os.MkdirAll(config.LogDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	name := fmt.Sprintf("nibbler_%s.log", time.Now().Format("20060102"))
	logFile, err := os.OpenFile(filepath.Join(config.LogDir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	level := slog.LevelInfo
	if config.Debug {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(io.MultiWriter(os.Stderr, logFile), &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))

	return logFile, nil
}
