package feed

import (
	"time"
)

// Entry is one raw item as supplied by a feed, normalized so that field
// presence is explicit. A nil pointer means the source did not carry the
// field at all; a non-nil pointer to "" means it was present but empty.
type Entry struct {
	Link        *string
	Title       *string
	GUID        *string
	Published   *string
	Content     []string // nil when the entry has no content element
	Description *string
}

func (e Entry) LinkValue() (string, bool) {
	return optional(e.Link)
}

func (e Entry) TitleValue() (string, bool) {
	return optional(e.Title)
}

func (e Entry) GUIDValue() (string, bool) {
	return optional(e.GUID)
}

func (e Entry) PublishedValue() (string, bool) {
	return optional(e.Published)
}

func (e Entry) DescriptionValue() (string, bool) {
	return optional(e.Description)
}

// ContentValue returns the first content value. present is true whenever the
// content element exists, even if it is empty.
func (e Entry) ContentValue() (value string, present bool) {
	if e.Content == nil {
		return "", false
	}
	if len(e.Content) == 0 {
		return "", true
	}
	return e.Content[0], true
}

func optional(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	return *s, true
}

// Ptr is a small helper for building entries by hand.
func Ptr(s string) *string {
	return &s
}

// Article is the result of mapping an Entry. It is not yet bound to a feed.
type Article struct {
	GUID        string
	Title       string
	Link        string
	PubDate     string
	ArticleText string
	TimeStamp   time.Time
}

// Subscription is one feed descriptor from the subscription outline.
type Subscription struct {
	Title       string
	URL         string
	Description string
}

// ImageStyle holds the attributes forced onto every <img> in a digest.
type ImageStyle struct {
	Width  int
	Height int
	Border int
}

func DefaultImageStyle() ImageStyle {
	return ImageStyle{Width: 480, Height: 320, Border: 0}
}
