package feed

import (
	"cmp"
	"fmt"
	"os"

	"github.com/gilliek/go-opml/opml"
)

// SubscriptionsFile is the outline file expected inside the subscriptions dir.
const SubscriptionsFile = "subscriptions.xml"

func LoadSubscriptions(path string) ([]Subscription, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read subscriptions: %w", err)
	}

	return ParseSubscriptions(data)
}

// ParseSubscriptions flattens an OPML outline depth-first. Folder outlines
// without an xmlUrl are descended into but not returned.
func ParseSubscriptions(data []byte) ([]Subscription, error) {
	doc, err := opml.NewOPML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse subscriptions: %w", err)
	}

	var subscriptions []Subscription
	var walk func(outlines []opml.Outline)
	walk = func(outlines []opml.Outline) {
		for _, outline := range outlines {
			if outline.XMLURL != "" {
				subscriptions = append(subscriptions, Subscription{
					Title:       cmp.Or(outline.Text, outline.Title, outline.XMLURL),
					URL:         outline.XMLURL,
					Description: outline.Description,
				})
			}
			walk(outline.Outlines)
		}
	}
	walk(doc.Outlines())

	return subscriptions, nil
}
