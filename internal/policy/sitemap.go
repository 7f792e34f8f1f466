package policy

import (
	"context"
	"encoding/xml"
	"net/url"

	"github.com/pagelens/pagelens/internal/urlnorm"
)

const (
	// maxChildSitemaps bounds recursion into a sitemap-index document.
	maxChildSitemaps = 5
	// maxSitemapURLs caps the total number of location entries collected.
	maxSitemapURLs = 200
)

type sitemapLoc struct {
	Loc string `xml:"loc"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	URLs    []sitemapLoc `xml:"url"`
}

type sitemapIndex struct {
	XMLName  xml.Name     `xml:"sitemapindex"`
	Sitemaps []sitemapLoc `xml:"sitemap"`
}

// LoadSitemapURLs fetches the sitemap at the site's well-known path and
// returns normalized, in-scope page URLs. A sitemap-index is expanded into at
// most maxChildSitemaps children; collection stops at maxSitemapURLs entries.
// Fetch or parse failure yields an empty list.
func LoadSitemapURLs(ctx context.Context, fetch FetchFunc, site *url.URL, allowSubdomains bool) []string {
	sitemapURL := site.Scheme + "://" + site.Host + "/sitemap.xml"
	body, ok := fetch(ctx, sitemapURL)
	if !ok {
		return nil
	}

	var idx sitemapIndex
	if err := xml.Unmarshal(body, &idx); err == nil && len(idx.Sitemaps) > 0 {
		children := idx.Sitemaps
		if len(children) > maxChildSitemaps {
			children = children[:maxChildSitemaps]
		}
		var urls []string
		for _, child := range children {
			if len(urls) >= maxSitemapURLs {
				break
			}
			childBody, ok := fetch(ctx, child.Loc)
			if !ok {
				continue
			}
			urls = appendLeafURLs(urls, childBody, site.Host, allowSubdomains)
		}
		return urls
	}

	return appendLeafURLs(nil, body, site.Host, allowSubdomains)
}

// appendLeafURLs parses a leaf sitemap and appends its admissible entries.
func appendLeafURLs(urls []string, body []byte, auditHost string, allowSubdomains bool) []string {
	var set urlSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return urls
	}
	for _, entry := range set.URLs {
		if len(urls) >= maxSitemapURLs {
			break
		}
		normalized, ok := urlnorm.Normalize(entry.Loc)
		if !ok {
			continue
		}
		parsed, err := url.Parse(normalized)
		if err != nil {
			continue
		}
		if !urlnorm.InScope(parsed.Host, auditHost, allowSubdomains) {
			continue
		}
		urls = append(urls, normalized)
	}
	return urls
}
