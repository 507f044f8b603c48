package webctx

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	defaultUserAgent = "Mozilla/5.0 (compatible; StudyForge/1.0; +https://studyforge.dev)"
	maxBody          = 2 << 20
)

var (
	spaceRun   = regexp.MustCompile(`\s+`)
	references = regexp.MustCompile(`\[\d+\]`)
	mainClass  = regexp.MustCompile(`content|article|main|body`)
)

var _ Fetcher = (*HTTPFetcher)(nil)

// HTTPFetcher fetches pages over HTTP and extracts their readable text.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher returns a fetcher whose requests time out after timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: defaultUserAgent,
	}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return Page{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return Page{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("fetch %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Page{}, fmt.Errorf("fetch %s: status %d", u, resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return Page{}, fmt.Errorf("parse %s: %w", u, err)
	}
	return Extract(doc, u.String(), strings.HasSuffix(u.Hostname(), "wikipedia.org")), nil
}

// Extract reduces a parsed document to a Page. Scripts, styles and page
// chrome are ignored. Wikipedia pages read paragraphs from the article body;
// other pages read paragraphs from the largest content-like container, or
// from the whole document when there is none.
func Extract(doc *html.Node, pageURL string, wikipedia bool) Page {
	page := Page{URL: pageURL}
	if t := find(doc, func(n *html.Node) bool { return n.DataAtom == atom.Title }); t != nil {
		page.Title = Clean(text(t))
	}

	var root *html.Node
	if wikipedia {
		root = find(doc, func(n *html.Node) bool { return n.DataAtom == atom.Div && attr(n, "id") == "mw-content-text" })
	} else {
		best := 0
		walk(doc, func(n *html.Node) {
			switch n.DataAtom {
			case atom.Article, atom.Main, atom.Div:
			default:
				return
			}
			if !mainClass.MatchString(attr(n, "class")) {
				return
			}
			if l := len(text(n)); l > best {
				root, best = n, l
			}
		})
	}
	if root == nil {
		root = doc
	}

	var paras []string
	walk(root, func(n *html.Node) {
		if n.DataAtom == atom.P {
			if s := strings.TrimSpace(text(n)); s != "" {
				paras = append(paras, s)
			}
		}
	})
	page.Content = Cap(Clean(strings.Join(paras, " ")), MaxContent)
	return page
}

// Clean collapses whitespace and strips bracketed reference markers.
func Clean(s string) string {
	s = spaceRun.ReplaceAllString(s, " ")
	s = references.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Cap truncates s to n bytes on a rune boundary, marking the cut with "...".
func Cap(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut] + "..."
}

func skipped(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Nav, atom.Footer, atom.Header, atom.Noscript:
		return true
	}
	return false
}

// walk visits element nodes depth first, not descending into skipped ones.
func walk(n *html.Node, fn func(*html.Node)) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if skipped(c) {
			continue
		}
		fn(c)
		walk(c, fn)
	}
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	var found *html.Node
	walk(n, func(c *html.Node) {
		if found == nil && match(c) {
			found = c
		}
	})
	return found
}

// Text returns the visible text under n with whitespace collapsed.
func Text(n *html.Node) string {
	return Clean(text(n))
}

func text(n *html.Node) string {
	var b strings.Builder
	var rec func(*html.Node)
	rec = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		}
		if n.Type == html.ElementNode && skipped(n) {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rec(c)
		}
	}
	rec(n)
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
