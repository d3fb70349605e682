package tasks

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/rss-nibbler/app/database"
	"github.com/lysyi3m/rss-nibbler/app/feed"
)

type fakeFetcher struct {
	entries map[string][]feed.Entry
	calls   []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]feed.Entry, error) {
	f.calls = append(f.calls, url)
	entries, ok := f.entries[url]
	if !ok {
		return nil, fmt.Errorf("%w: %s: HTTP error: 404", feed.ErrFetch, url)
	}
	return entries, nil
}

type fakeExtractor struct {
	content string
	err     error
	links   []string
}

func (e *fakeExtractor) Extract(_ context.Context, link string) (string, error) {
	e.links = append(e.links, link)
	return e.content, e.err
}

var runNow = time.Date(2026, time.October, 17, 7, 30, 0, 0, time.UTC)

type testEnv struct {
	db          *database.DB
	feedRepo    *database.SQLFeedRepository
	articleRepo *database.SQLArticleRepository
	fetcher     *fakeFetcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), database.FileName))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &testEnv{
		db:          db,
		feedRepo:    database.NewFeedRepository(db),
		articleRepo: database.NewArticleRepository(db),
		fetcher:     &fakeFetcher{entries: map[string][]feed.Entry{}},
	}
}

func (e *testEnv) runner() *Runner {
	mapper := feed.NewMapper(feed.NewNormalizer(feed.DefaultImageStyle()))
	return NewRunner(e.feedRepo, e.articleRepo, e.fetcher, mapper).
		WithClock(func() time.Time { return runNow })
}

func entry(link, title, guid string) feed.Entry {
	e := feed.Entry{Link: feed.Ptr(link), Description: feed.Ptr("<p>" + title + "</p>")}
	if title != "" {
		e.Title = feed.Ptr(title)
	}
	if guid != "" {
		e.GUID = feed.Ptr(guid)
	}
	return e
}

func TestRunner_StoresNewArticlesInOrder(t *testing.T) {
	env := newTestEnv(t)
	env.fetcher.entries["https://a.example.com/feed"] = []feed.Entry{
		entry("https://a.example.com/1", "A1", "a-1"),
		entry("https://a.example.com/2", "A2", "a-2"),
	}
	env.fetcher.entries["https://b.example.com/feed"] = []feed.Entry{
		entry("https://b.example.com/1", "B1", "b-1"),
	}

	subs := []feed.Subscription{
		{Title: "Feed A", URL: "https://a.example.com/feed"},
		{Title: "Feed B", URL: "https://b.example.com/feed"},
	}

	guids, err := env.runner().Run(context.Background(), subs)
	require.NoError(t, err)
	assert.Equal(t, []string{"a-1", "a-2", "b-1"}, guids)

	article, err := env.articleRepo.FindByGUID(context.Background(), "b-1")
	require.NoError(t, err)
	assert.Equal(t, "B1", article.Title)
	assert.Equal(t, "Feed B", article.FeedTitle)
	assert.Equal(t, "<p>B1</p>", article.ArticleText)
	assert.Equal(t, "20261017", article.PubDate)
}

func TestRunner_SecondRunFindsNothingNew(t *testing.T) {
	env := newTestEnv(t)
	env.fetcher.entries["https://a.example.com/feed"] = []feed.Entry{
		entry("https://a.example.com/1", "A1", "a-1"),
		entry("https://a.example.com/2", "A2", "a-2"),
	}
	subs := []feed.Subscription{{Title: "Feed A", URL: "https://a.example.com/feed"}}

	first, err := env.runner().Run(context.Background(), subs)
	require.NoError(t, err)
	assert.Len(t, first, 2)

	second, err := env.runner().Run(context.Background(), subs)
	require.NoError(t, err)
	assert.Empty(t, second)

	count, err := env.feedRepo.GetFeedCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRunner_DuplicateDerivedGUIDStoredOnce(t *testing.T) {
	env := newTestEnv(t)
	// Neither entry has a guid; both fall back to the same title.
	env.fetcher.entries["https://a.example.com/feed"] = []feed.Entry{
		entry("https://a.example.com/1", "Same title", ""),
		entry("https://a.example.com/2", "Same title", ""),
	}

	guids, err := env.runner().Run(context.Background(), []feed.Subscription{{Title: "Feed A", URL: "https://a.example.com/feed"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Same title"}, guids)

	article, err := env.articleRepo.FindByGUID(context.Background(), "Same title")
	require.NoError(t, err)
	assert.Equal(t, "https://a.example.com/1", article.Link)
}

func TestRunner_GUIDUniqueAcrossFeeds(t *testing.T) {
	env := newTestEnv(t)
	env.fetcher.entries["https://a.example.com/feed"] = []feed.Entry{entry("https://a.example.com/1", "Shared", "shared")}
	env.fetcher.entries["https://b.example.com/feed"] = []feed.Entry{entry("https://b.example.com/1", "Shared", "shared")}

	guids, err := env.runner().Run(context.Background(), []feed.Subscription{
		{Title: "Feed A", URL: "https://a.example.com/feed"},
		{Title: "Feed B", URL: "https://b.example.com/feed"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"shared"}, guids)
}

func TestRunner_FetchFailureSkipsFeed(t *testing.T) {
	env := newTestEnv(t)
	env.fetcher.entries["https://b.example.com/feed"] = []feed.Entry{entry("https://b.example.com/1", "B1", "b-1")}

	guids, err := env.runner().Run(context.Background(), []feed.Subscription{
		{Title: "Broken", URL: "https://broken.example.com/feed"},
		{Title: "Feed B", URL: "https://b.example.com/feed"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"b-1"}, guids)
	assert.Equal(t, []string{"https://broken.example.com/feed", "https://b.example.com/feed"}, env.fetcher.calls)
}

func TestRunner_EntriesWithoutLinkSkipped(t *testing.T) {
	env := newTestEnv(t)
	env.fetcher.entries["https://a.example.com/feed"] = []feed.Entry{
		{Title: feed.Ptr("No link"), GUID: feed.Ptr("no-link")},
		entry("https://a.example.com/2", "A2", "a-2"),
	}

	guids, err := env.runner().Run(context.Background(), []feed.Subscription{{Title: "Feed A", URL: "https://a.example.com/feed"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a-2"}, guids)

	known, err := env.articleRepo.IsKnown(context.Background(), "no-link")
	require.NoError(t, err)
	assert.False(t, known)
}

func TestRunner_EmptySubscriptions(t *testing.T) {
	env := newTestEnv(t)

	guids, err := env.runner().Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, guids)
	assert.Empty(t, env.fetcher.calls)
}

func TestRunner_CancelledContext(t *testing.T) {
	env := newTestEnv(t)
	env.fetcher.entries["https://a.example.com/feed"] = []feed.Entry{entry("https://a.example.com/1", "A1", "a-1")}

	_, err := env.feedRepo.CreateFeed(context.Background(), "Feed A", "https://a.example.com/feed", "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	guids, err := env.runner().Run(ctx, nil)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, guids)
}

func TestRunner_ContentExtraction(t *testing.T) {
	env := newTestEnv(t)
	env.fetcher.entries["https://a.example.com/feed"] = []feed.Entry{
		{Link: feed.Ptr("https://a.example.com/bare"), GUID: feed.Ptr("bare")},
		entry("https://a.example.com/full", "Full", "full"),
	}
	extractor := &fakeExtractor{content: "<p>Extracted body</p>"}

	guids, err := env.runner().WithContentExtractor(extractor).
		Run(context.Background(), []feed.Subscription{{Title: "Feed A", URL: "https://a.example.com/feed"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"bare", "full"}, guids)
	assert.Equal(t, []string{"https://a.example.com/bare"}, extractor.links)

	article, err := env.articleRepo.FindByGUID(context.Background(), "bare")
	require.NoError(t, err)
	assert.Equal(t, "<p>Extracted body</p>", article.ArticleText)
}

func TestRunner_ContentExtractionFailureKeepsPlaceholder(t *testing.T) {
	env := newTestEnv(t)
	env.fetcher.entries["https://a.example.com/feed"] = []feed.Entry{
		{Link: feed.Ptr("https://a.example.com/bare"), GUID: feed.Ptr("bare")},
	}

	guids, err := env.runner().WithContentExtractor(&fakeExtractor{err: errors.New("timeout")}).
		Run(context.Background(), []feed.Subscription{{Title: "Feed A", URL: "https://a.example.com/feed"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"bare"}, guids)

	article, err := env.articleRepo.FindByGUID(context.Background(), "bare")
	require.NoError(t, err)
	assert.Equal(t, feed.NoArticleText, article.ArticleText)
}
