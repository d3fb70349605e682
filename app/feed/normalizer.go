package feed

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// UnprocessableContent replaces article text the HTML parser could not handle.
const UnprocessableContent = "Unable to process this article's content."

var deniedAttributes = map[string]bool{
	"class":  true,
	"id":     true,
	"style":  true,
	"width":  true,
	"height": true,
	"border": true,
}

// Normalizer rewrites feed-supplied HTML into markup that renders the same
// way in every mail client. None of its methods return errors.
type Normalizer struct {
	transparentTags []string // removed, children kept
	opaqueTags      []string // removed with all descendants
	imageStyle      ImageStyle
}

func NewNormalizer(imageStyle ImageStyle) *Normalizer {
	return &Normalizer{
		transparentTags: []string{"span"},
		opaqueTags:      []string{"br"},
		imageStyle:      imageStyle,
	}
}

// WithTags overrides the transparent and opaque tag sets.
func (n *Normalizer) WithTags(transparent, opaque []string) *Normalizer {
	n.transparentTags = transparent
	n.opaqueTags = opaque
	return n
}

func (n *Normalizer) Sanitize(input string) string {
	doc, err := parseFragment(input)
	if err != nil {
		slog.Warn("Failed to parse HTML for sanitizing", "error", err)
		return UnprocessableContent
	}
	body := doc.Find("body")

	body.Find("script, style").Remove()
	if len(n.opaqueTags) > 0 {
		body.Find(strings.Join(n.opaqueTags, ", ")).Remove()
	}

	body.Find("*").Each(func(_ int, s *goquery.Selection) {
		node := s.Get(0)
		kept := node.Attr[:0]
		for _, attr := range node.Attr {
			if dropAttribute(attr) {
				continue
			}
			kept = append(kept, attr)
		}
		node.Attr = kept
	})

	for _, tag := range n.transparentTags {
		body.Find(tag).Each(func(_ int, s *goquery.Selection) {
			s.ReplaceWithSelection(s.Contents())
		})
	}

	if body.Children().Length() == 0 && strings.TrimSpace(body.Text()) != "" {
		body.WrapInnerHtml("<p></p>")
	}

	return render(body)
}

// ResolveRelativeImages prefixes scheme-less <img src> values with the part of
// link that ends three characters after its last dot. For
// "https://kottke.org/18/06/post" that is "https://kottke.org".
func (n *Normalizer) ResolveRelativeImages(input, link string) string {
	doc, err := parseFragment(input)
	if err != nil {
		slog.Warn("Failed to parse HTML for image resolution", "link", link, "error", err)
		return UnprocessableContent
	}
	body := doc.Find("body")

	prefix, ok := linkPrefix(link)
	if !ok {
		slog.Debug("Link has no extension boundary, leaving images untouched", "link", link)
		return render(body)
	}

	body.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, exists := s.Attr("src")
		if !exists || hasScheme(src) {
			return
		}
		s.SetAttr("src", prefix+src)
	})

	return render(body)
}

func (n *Normalizer) ApplyEmailMarkup(input string) string {
	doc, err := parseFragment(input)
	if err != nil {
		slog.Warn("Failed to parse HTML for email markup", "error", err)
		return UnprocessableContent
	}
	body := doc.Find("body")

	body.Find("img").Each(func(_ int, s *goquery.Selection) {
		s.SetAttr("width", strconv.Itoa(n.imageStyle.Width))
		s.SetAttr("height", strconv.Itoa(n.imageStyle.Height))
		s.SetAttr("border", strconv.Itoa(n.imageStyle.Border))
	})

	return render(body)
}

func parseFragment(input string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(input))
}

func render(body *goquery.Selection) string {
	out, err := body.Html()
	if err != nil {
		slog.Warn("Failed to render HTML", "error", err)
		return UnprocessableContent
	}
	return out
}

func dropAttribute(attr html.Attribute) bool {
	key := strings.ToLower(attr.Key)
	if deniedAttributes[key] || strings.HasPrefix(key, "on") {
		return true
	}
	if key == "href" || key == "src" {
		return strings.HasPrefix(strings.ToLower(strings.TrimSpace(attr.Val)), "javascript:")
	}
	return false
}

func linkPrefix(link string) (string, bool) {
	dot := strings.LastIndex(link, ".")
	if dot < 0 {
		return "", false
	}
	end := min(dot+4, len(link))
	return link[:end], true
}

func hasScheme(src string) bool {
	return strings.Contains(src, "http") || strings.Contains(src, "://")
}
