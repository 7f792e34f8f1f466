// Package parser extracts audit signals from HTML documents: metadata,
// structured data, heading and content statistics, and outbound links.
// Extraction is pure and deterministic given the document bytes.
package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/pagelens/pagelens/internal/urlnorm"
)

// maxLinksPerPage caps how many outbound links one page may contribute.
const maxLinksPerPage = 100

// PageFacts holds everything the audit layer needs from one parsed page.
type PageFacts struct {
	Title               string
	PrimaryHeading      string
	MetaDescription     string
	CanonicalURL        string
	HasStructuredData   bool
	StructuredDataTypes []string
	HeadingCounts       [6]int // index 0 is h1
	WordCount           int
	ImageCount          int
	ImageAltCount       int
	Links               []Link
}

// Link is one outbound link discovered on a page. Navigational links come
// from nav, header, or footer elements and are queued ahead of body links
// when seeding a crawl.
type Link struct {
	URL          string
	Navigational bool
}

// Extract parses an HTML document and collects its audit signals. Malformed
// embedded structured-data blocks are tolerated per block; a page that fails
// partial extraction still yields zero values for the missing fields.
func Extract(pageURL string, body []byte) (*PageFacts, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL: %w", err)
	}

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	e := &extractor{base: base, seen: make(map[string]bool)}
	e.walk(doc, walkState{})

	return &e.facts, nil
}

type walkState struct {
	inBody  bool
	inNav   bool
	skipped bool // inside script/style/noscript/template
}

type extractor struct {
	base  *url.URL
	facts PageFacts
	seen  map[string]bool
}

func (e *extractor) walk(n *html.Node, st walkState) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "body":
			st.inBody = true
		case "nav", "header", "footer":
			st.inNav = true
		case "script":
			e.parseScript(n)
			st.skipped = true
		case "style", "noscript", "template":
			st.skipped = true
		case "title":
			if e.facts.Title == "" {
				e.facts.Title = extractText(n)
			}
		case "meta":
			e.parseMeta(n)
		case "link":
			e.parseLinkTag(n)
		case "h1", "h2", "h3", "h4", "h5", "h6":
			level := int(n.Data[1] - '1')
			e.facts.HeadingCounts[level]++
			if level == 0 && e.facts.PrimaryHeading == "" {
				e.facts.PrimaryHeading = extractText(n)
			}
		case "img":
			e.facts.ImageCount++
			if strings.TrimSpace(attr(n, "alt")) != "" {
				e.facts.ImageAltCount++
			}
		case "a":
			e.parseAnchor(n, st.inNav)
		}
	}

	if n.Type == html.TextNode && st.inBody && !st.skipped {
		e.facts.WordCount += len(strings.Fields(n.Data))
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		e.walk(c, st)
	}
}

// parseScript records structured-data blocks. Each ld+json block is decoded
// best-effort: a block that fails to decode still counts toward presence but
// contributes no types.
func (e *extractor) parseScript(n *html.Node) {
	if !strings.EqualFold(strings.TrimSpace(attr(n, "type")), "application/ld+json") {
		return
	}
	e.facts.HasStructuredData = true

	var raw strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			raw.WriteString(c.Data)
		}
	}
	for _, t := range structuredDataTypes([]byte(raw.String())) {
		e.facts.StructuredDataTypes = append(e.facts.StructuredDataTypes, t)
	}
}

// structuredDataTypes pulls @type values out of one ld+json block, handling
// a single object, a top-level array of objects, and string-or-array @type.
func structuredDataTypes(block []byte) []string {
	var types []string

	collect := func(obj map[string]any) {
		switch v := obj["@type"].(type) {
		case string:
			types = append(types, v)
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok {
					types = append(types, s)
				}
			}
		}
	}

	var obj map[string]any
	if err := json.Unmarshal(block, &obj); err == nil {
		collect(obj)
		return types
	}

	var list []map[string]any
	if err := json.Unmarshal(block, &list); err == nil {
		for _, item := range list {
			collect(item)
		}
	}
	return types
}

func (e *extractor) parseMeta(n *html.Node) {
	if strings.EqualFold(attr(n, "name"), "description") && e.facts.MetaDescription == "" {
		e.facts.MetaDescription = strings.TrimSpace(attr(n, "content"))
	}
}

func (e *extractor) parseLinkTag(n *html.Node) {
	if !strings.EqualFold(attr(n, "rel"), "canonical") {
		return
	}
	href := attr(n, "href")
	if href == "" || e.facts.CanonicalURL != "" {
		return
	}
	if resolved, err := e.resolve(href); err == nil {
		e.facts.CanonicalURL = resolved
	}
}

// parseAnchor resolves an anchor against the page URL and runs it through the
// canonicalizer. Links that fail normalization are silently omitted.
func (e *extractor) parseAnchor(n *html.Node, navigational bool) {
	if len(e.facts.Links) >= maxLinksPerPage {
		return
	}
	href := strings.TrimSpace(attr(n, "href"))
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") {
		return
	}

	resolved, err := e.resolve(href)
	if err != nil {
		return
	}
	normalized, ok := urlnorm.Normalize(resolved)
	if !ok || e.seen[normalized] {
		return
	}
	e.seen[normalized] = true
	e.facts.Links = append(e.facts.Links, Link{URL: normalized, Navigational: navigational})
}

func (e *extractor) resolve(href string) (string, error) {
	u, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return e.base.ResolveReference(u).String(), nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// extractText recursively collects the text content of a node.
func extractText(n *html.Node) string {
	if n.Type == html.TextNode {
		return strings.TrimSpace(n.Data)
	}
	var parts []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if text := extractText(c); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
