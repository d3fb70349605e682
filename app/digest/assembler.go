package digest

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html"
	"html/template"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/wneessen/go-mail"
	"golang.org/x/text/unicode/norm"

	"github.com/lysyi3m/rss-nibbler/app/database"
	"github.com/lysyi3m/rss-nibbler/app/feed"
)

// PlainText is the text/plain part of every digest.
const PlainText = "Today's News Nibble"

const subjectPrefix = "Today's News Nibble -- "

//go:embed templates/digest.html
var templateFS embed.FS

//go:embed resources/*.png
var resourceFS embed.FS

// inlineImages are referenced from the template as cid:image1 and cid:image2.
var inlineImages = []struct {
	file      string
	contentID string
}{
	{file: "resources/nibbler.png", contentID: "image1"},
	{file: "resources/github.png", contentID: "image2"},
}

var digestTemplate = template.Must(template.ParseFS(templateFS, "templates/digest.html"))

// Record is one article as displayed in the digest.
type Record struct {
	Title       string
	FeedTitle   string
	ArticleText template.HTML
	Link        string
}

type Assembler struct {
	articleRepo database.ArticleRepository
	normalizer  *feed.Normalizer
	titlePolicy *bluemonday.Policy
	from        string
	to          string
	clock       func() time.Time
}

func NewAssembler(articleRepo database.ArticleRepository, normalizer *feed.Normalizer, from, to string) *Assembler {
	return &Assembler{
		articleRepo: articleRepo,
		normalizer:  normalizer,
		titlePolicy: bluemonday.StrictPolicy(),
		from:        from,
		to:          to,
		clock:       time.Now,
	}
}

func (a *Assembler) WithClock(clock func() time.Time) *Assembler {
	a.clock = clock
	return a
}

// Build returns the digest message for guids, or nil when there is nothing
// to send.
func (a *Assembler) Build(ctx context.Context, guids []string) (*mail.Msg, error) {
	if len(guids) == 0 {
		slog.Info("No new articles, skipping digest")
		return nil, nil
	}

	records := a.Records(ctx, guids)
	if len(records) == 0 {
		slog.Warn("None of the new articles could be found, skipping digest", "requested", len(guids))
		return nil, nil
	}

	body, err := a.Render(records)
	if err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err := msg.From(a.from); err != nil {
		return nil, fmt.Errorf("invalid sender address %q: %w", a.from, err)
	}
	if err := msg.To(a.to); err != nil {
		return nil, fmt.Errorf("invalid recipient address %q: %w", a.to, err)
	}

	now := a.clock()
	msg.Subject(subjectPrefix + now.Format(time.ANSIC))
	msg.SetDateWithValue(now)
	msg.SetBodyString(mail.TypeTextPlain, PlainText)
	msg.AddAlternativeString(mail.TypeTextHTML, body)

	for _, img := range inlineImages {
		if err := msg.EmbedFromEmbedFS(img.file, &resourceFS,
			mail.WithFileName(path.Base(img.file)),
			mail.WithFileContentID(img.contentID)); err != nil {
			return nil, fmt.Errorf("failed to embed image %s: %w", img.file, err)
		}
	}

	slog.Info("Digest assembled", "articles", len(records), "requested", len(guids))

	return msg, nil
}

// Records looks up every guid in order. Guids that cannot be found are
// logged and left out.
func (a *Assembler) Records(ctx context.Context, guids []string) []Record {
	records := make([]Record, 0, len(guids))

	for _, guid := range guids {
		article, err := a.articleRepo.FindByGUID(ctx, guid)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				slog.Warn("Could not find article for digest", "guid", guid)
			} else {
				slog.Error("Failed to load article for digest", "guid", guid, "error", err)
			}
			continue
		}

		records = append(records, Record{
			Title:       a.cleanTitle(article.Title),
			FeedTitle:   a.cleanTitle(article.FeedTitle),
			ArticleText: template.HTML(a.normalizer.ApplyEmailMarkup(article.ArticleText)),
			Link:        article.Link,
		})
	}

	return records
}

func (a *Assembler) Render(records []Record) (string, error) {
	var buf bytes.Buffer
	if err := digestTemplate.Execute(&buf, struct{ Articles []Record }{records}); err != nil {
		return "", fmt.Errorf("failed to render digest: %w", err)
	}
	return buf.String(), nil
}

// cleanTitle strips markup and returns NFC text; the template escapes it.
func (a *Assembler) cleanTitle(title string) string {
	stripped := html.UnescapeString(a.titlePolicy.Sanitize(title))
	return norm.NFC.String(strings.TrimSpace(stripped))
}
