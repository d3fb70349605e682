package feed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html/charset"
)

// ContentExtractor pulls the readable body out of an article page. It backs
// the opt-in fallback for entries that carry neither content nor description.
type ContentExtractor struct {
	httpClient *http.Client
	normalizer *Normalizer
	userAgent  string
	timeout    time.Duration
}

func NewContentExtractor(httpClient *http.Client, normalizer *Normalizer, userAgent string, timeout time.Duration) *ContentExtractor {
	return &ContentExtractor{
		httpClient: httpClient,
		normalizer: normalizer,
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

// Extract downloads link and returns its sanitized readable content with
// image paths resolved against link.
func (e *ContentExtractor) Extract(ctx context.Context, link string) (string, error) {
	data, contentType, err := e.fetchArticle(ctx, link)
	if err != nil {
		return "", fmt.Errorf("failed to fetch article content: %w", err)
	}

	pageURL, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("invalid article link: %w", err)
	}

	content, err := e.Run(data, contentType, pageURL)
	if err != nil {
		return "", err
	}

	return e.normalizer.ResolveRelativeImages(e.normalizer.Sanitize(content), link), nil
}

func (e *ContentExtractor) Run(data []byte, contentType string, pageURL *url.URL) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	reader, err := charset.NewReader(bytes.NewReader(data), contentType)
	if err != nil {
		return "", fmt.Errorf("failed to decode HTML: %w", err)
	}

	article, err := readability.FromReader(reader, pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	if article.Content == "" {
		return "", fmt.Errorf("no content extracted from HTML data")
	}

	slog.Debug("Content extracted successfully",
		"title", article.Title,
		"content_length", len(article.Content))

	return article.Content, nil
}

func (e *ContentExtractor) fetchArticle(ctx context.Context, link string) ([]byte, string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, link, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "text/html") {
		return nil, "", fmt.Errorf("content type is not HTML: %s", contentType)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response body: %w", err)
	}

	return data, contentType, nil
}
