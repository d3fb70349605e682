package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fetchedRSS = `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Fetched</title>
    <item><title>One</title><link>https://example.com/1</link><guid>1</guid></item>
    <item><title>Two</title><link>https://example.com/2</link><guid>2</guid></item>
  </channel>
</rss>`

func newTestFetcher() *Fetcher {
	return NewFetcher(http.DefaultClient, NewParser(), "RSS Nibbler/test", 2*time.Second)
}

func TestFetch(t *testing.T) {
	var gotUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(fetchedRSS))
	}))
	defer server.Close()

	entries, err := newTestFetcher().Fetch(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, "RSS Nibbler/test", gotUserAgent)
	require.Len(t, entries, 2)
	title, _ := entries[0].TitleValue()
	assert.Equal(t, "One", title)
	guid, _ := entries[1].GUIDValue()
	assert.Equal(t, "2", guid)
}

func TestFetchErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/broken":
			w.WriteHeader(http.StatusInternalServerError)
		case "/garbage":
			_, _ = w.Write([]byte("<html><body>not a feed</body></html>"))
		case "/slow":
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte(fetchedRSS))
		}
	}))
	defer server.Close()

	fetcher := NewFetcher(http.DefaultClient, NewParser(), "RSS Nibbler/test", 50*time.Millisecond)

	tests := []struct {
		name string
		url  string
	}{
		{"server error", server.URL + "/broken"},
		{"not a feed", server.URL + "/garbage"},
		{"timeout", server.URL + "/slow"},
		{"bad url", "://nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := fetcher.Fetch(context.Background(), tt.url)
			assert.ErrorIs(t, err, ErrFetch)
			assert.Nil(t, entries)
		})
	}
}
