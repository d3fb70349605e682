package feed

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmcdole/gofeed"
	xpp "github.com/mmcdole/goxpp"
	"github.com/samber/lo"
	"golang.org/x/net/html/charset"
)

const (
	contentModuleNS = "purl.org/rss/1.0/modules/content"
	atomNS          = "w3.org/2005/atom"
	atomLegacyNS    = "purl.org/atom"
)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses an RSS, Atom or JSON feed document into entries, in document
// order.
func (p *Parser) Run(data []byte) (string, []Entry, error) {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return "", nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	// gofeed folds a missing and an empty content element into "", so
	// presence comes from a second pass over the raw XML.
	present := contentPresence(data)

	entries := lo.Map(feed.Items, func(item *gofeed.Item, i int) Entry {
		return p.normalizeItem(item, i < len(present) && present[i])
	})

	return feed.Title, entries, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item, hasContent bool) Entry {
	entry := Entry{
		Link:        nonEmpty(item.Link),
		Title:       nonEmpty(item.Title),
		GUID:        nonEmpty(item.GUID),
		Published:   nonEmpty(item.Published),
		Description: nonEmpty(item.Description),
	}

	if item.Content != "" {
		entry.Content = []string{item.Content}
	} else if hasContent {
		entry.Content = []string{""}
	}

	if entry.Link == nil && len(item.Links) > 0 {
		entry.Link = nonEmpty(item.Links[0])
	}

	return entry
}

// contentPresence reports, for each <item> or <entry> in document order,
// whether it carries a content:encoded or Atom content element. JSON feeds
// yield nil.
func contentPresence(data []byte) []bool {
	if !bytes.HasPrefix(bytes.TrimSpace(data), []byte("<")) {
		return nil
	}

	parser := xpp.NewXMLPullParser(bytes.NewReader(data), false, charset.NewReaderLabel)

	var present []bool
	itemTag := ""
	for {
		event, err := parser.Next()
		if err != nil {
			slog.Debug("Content presence scan stopped early", "items", len(present), "error", err)
			return present
		}

		switch event {
		case xpp.EndDocument:
			return present
		case xpp.StartTag:
			name := strings.ToLower(parser.Name)
			if itemTag == "" {
				if name == "item" || name == "entry" {
					itemTag = name
					present = append(present, false)
				}
				continue
			}
			if isContentElement(itemTag, name, strings.ToLower(parser.Space)) {
				present[len(present)-1] = true
			}
		case xpp.EndTag:
			if itemTag != "" && strings.ToLower(parser.Name) == itemTag {
				itemTag = ""
			}
		}
	}
}

// isContentElement matches content:encoded in any item, and the Atom content
// element inside an entry. Other namespaces such as media:content do not count.
func isContentElement(itemTag, name, space string) bool {
	switch name {
	case "encoded":
		return space == "content" || strings.Contains(space, contentModuleNS)
	case "content":
		if strings.Contains(space, atomNS) || strings.Contains(space, atomLegacyNS) {
			return true
		}
		return space == "" && itemTag == "entry"
	}
	return false
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
