package feed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const subscriptionsOPML = `<?xml version="1.0" encoding="UTF-8"?>
<opml version="1.0">
  <head><title>Subscriptions</title></head>
  <body>
    <outline text="kottke.org" title="kottke.org" type="rss" xmlUrl="http://feeds.kottke.org/main" htmlUrl="http://kottke.org/"/>
    <outline text="Tech" title="Tech">
      <outline text="Matt Mullenweg" type="rss" xmlUrl="https://ma.tt/feed/" description="Unlucky in Cards"/>
      <outline title="Only a title" type="rss" xmlUrl="https://example.com/title.xml"/>
      <outline type="rss" xmlUrl="https://example.com/untitled.xml"/>
    </outline>
    <outline text="kottke again" type="rss" xmlUrl="http://feeds.kottke.org/main"/>
  </body>
</opml>`

func TestParseSubscriptions(t *testing.T) {
	subscriptions, err := ParseSubscriptions([]byte(subscriptionsOPML))
	require.NoError(t, err)

	expected := []Subscription{
		{Title: "kottke.org", URL: "http://feeds.kottke.org/main"},
		{Title: "Matt Mullenweg", URL: "https://ma.tt/feed/", Description: "Unlucky in Cards"},
		{Title: "Only a title", URL: "https://example.com/title.xml"},
		{Title: "https://example.com/untitled.xml", URL: "https://example.com/untitled.xml"},
		{Title: "kottke again", URL: "http://feeds.kottke.org/main"},
	}
	assert.Equal(t, expected, subscriptions)
}

func TestParseSubscriptionsInvalid(t *testing.T) {
	_, err := ParseSubscriptions([]byte("<opml><body><outline"))
	assert.Error(t, err)
}

func TestLoadSubscriptions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, SubscriptionsFile)
	require.NoError(t, os.WriteFile(path, []byte(subscriptionsOPML), 0o644))

	subscriptions, err := LoadSubscriptions(path)
	require.NoError(t, err)
	assert.Len(t, subscriptions, 5)

	_, err = LoadSubscriptions(filepath.Join(dir, "missing.xml"))
	assert.Error(t, err)
}
