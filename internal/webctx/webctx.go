// Package webctx fetches web pages and reduces them to plain text used as
// supplementary context for generation prompts.
package webctx

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// MaxContent is the cap on extracted page content, in bytes.
const MaxContent = 6000

// ErrInvalidURL is returned for URLs without an http(s) scheme and host.
var ErrInvalidURL = errors.New("invalid URL")

// Page is the text extracted from one URL.
type Page struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Fetcher retrieves and extracts a single page.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (Page, error)
}

// ValidateURL checks that rawURL is an absolute http or https URL.
func ValidateURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	return u, nil
}

// WikipediaURLs returns the English and Simple English Wikipedia article
// URLs for query.
func WikipediaURLs(query string) []string {
	title := url.PathEscape(strings.ReplaceAll(strings.TrimSpace(query), " ", "_"))
	return []string{
		"https://en.wikipedia.org/wiki/" + title,
		"https://simple.wikipedia.org/wiki/" + title,
	}
}

// TopicURLs returns reference pages likely to describe a technical topic.
func TopicURLs(topic string) []string {
	topic = strings.TrimSpace(topic)
	return []string{
		"https://en.wikipedia.org/wiki/" + url.PathEscape(strings.ReplaceAll(topic, " ", "_")),
		"https://www.w3schools.com/" + url.PathEscape(strings.ToLower(topic)) + "/",
		"https://developer.mozilla.org/en-US/docs/Web/" + url.PathEscape(strings.ToUpper(topic)),
	}
}

// ContextBlock renders pages as prompt context.
func ContextBlock(pages []Page) string {
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		parts = append(parts, fmt.Sprintf("Source: %s (%s)\n%s", p.Title, p.URL, p.Content))
	}
	return strings.Join(parts, "\n\n")
}

// SourcesFooter renders a "Sources:" list to append to an answer. It is
// empty when pages is.
func SourcesFooter(pages []Page) string {
	if len(pages) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\nSources:")
	for _, p := range pages {
		fmt.Fprintf(&b, "\n- %s: %s", p.Title, p.URL)
	}
	return b.String()
}
