package feed

import (
	"errors"
	"time"
)

const (
	EmptyContentText   = "No Content Provided in this article."
	NoArticleText      = "No article text is available. Go to the site to read this article."
	fallbackDateFormat = "20060102"
)

var ErrMissingLink = errors.New("entry has no link")

type Mapper struct {
	normalizer *Normalizer
}

func NewMapper(normalizer *Normalizer) *Mapper {
	return &Mapper{normalizer: normalizer}
}

// Map turns an entry into an Article. Every field is resolved independently;
// the only failure is an entry without a link.
func (m *Mapper) Map(entry Entry, now time.Time) (*Article, error) {
	link, ok := entry.LinkValue()
	if !ok || link == "" {
		return nil, ErrMissingLink
	}

	article := &Article{
		Link:      link,
		TimeStamp: now,
	}

	if title, ok := entry.TitleValue(); ok && title != "" {
		article.Title = title
	} else {
		article.Title = link
	}

	if guid, ok := entry.GUIDValue(); ok && guid != "" {
		article.GUID = guid
	} else {
		article.GUID = article.Title
	}

	if published, ok := entry.PublishedValue(); ok && published != "" {
		article.PubDate = published
	} else {
		article.PubDate = now.Format(fallbackDateFormat)
	}

	article.ArticleText = m.articleText(entry, link)

	return article, nil
}

func (m *Mapper) articleText(entry Entry, link string) string {
	if content, ok := entry.ContentValue(); ok {
		if content == "" {
			return m.normalizer.Sanitize(EmptyContentText)
		}
		return m.normalizer.ResolveRelativeImages(m.normalizer.Sanitize(content), link)
	}

	if description, ok := entry.DescriptionValue(); ok {
		return m.normalizer.Sanitize(description)
	}

	return NoArticleText
}
