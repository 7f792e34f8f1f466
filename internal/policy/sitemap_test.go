package policy

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leafSitemap(locs ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><urlset>`)
	for _, loc := range locs {
		b.WriteString("<url><loc>" + loc + "</loc></url>")
	}
	b.WriteString("</urlset>")
	return b.String()
}

func TestLoadSitemapURLsLeaf(t *testing.T) {
	site := &url.URL{Scheme: "https", Host: "example.com"}
	fetch := func(ctx context.Context, rawURL string) ([]byte, bool) {
		assert.Equal(t, "https://example.com/sitemap.xml", rawURL)
		return []byte(leafSitemap(
			"https://example.com/",
			"https://example.com/about/",
			"https://example.com/brochure.pdf",
			"https://other.com/page",
		)), true
	}

	urls := LoadSitemapURLs(context.Background(), fetch, site, false)
	assert.Equal(t, []string{"https://example.com/", "https://example.com/about"}, urls)
}

func TestLoadSitemapURLsIndexCapsChildren(t *testing.T) {
	site := &url.URL{Scheme: "https", Host: "example.com"}

	var index strings.Builder
	index.WriteString(`<?xml version="1.0"?><sitemapindex>`)
	for i := 1; i <= 6; i++ {
		fmt.Fprintf(&index, "<sitemap><loc>https://example.com/sitemap-%d.xml</loc></sitemap>", i)
	}
	index.WriteString("</sitemapindex>")

	fetched := map[string]int{}
	fetch := func(ctx context.Context, rawURL string) ([]byte, bool) {
		fetched[rawURL]++
		if rawURL == "https://example.com/sitemap.xml" {
			return []byte(index.String()), true
		}
		var n int
		fmt.Sscanf(rawURL, "https://example.com/sitemap-%d.xml", &n)
		return []byte(leafSitemap(fmt.Sprintf("https://example.com/page-%d", n))), true
	}

	urls := LoadSitemapURLs(context.Background(), fetch, site, false)
	require.Len(t, urls, 5, "only the first five children are expanded")
	assert.Zero(t, fetched["https://example.com/sitemap-6.xml"], "sixth child never fetched")
}

func TestLoadSitemapURLsCapsEntries(t *testing.T) {
	site := &url.URL{Scheme: "https", Host: "example.com"}
	locs := make([]string, 0, maxSitemapURLs+50)
	for i := 0; i < maxSitemapURLs+50; i++ {
		locs = append(locs, fmt.Sprintf("https://example.com/p/%d", i))
	}
	fetch := func(ctx context.Context, rawURL string) ([]byte, bool) {
		return []byte(leafSitemap(locs...)), true
	}

	urls := LoadSitemapURLs(context.Background(), fetch, site, false)
	assert.Len(t, urls, maxSitemapURLs)
}

func TestLoadSitemapURLsFailures(t *testing.T) {
	site := &url.URL{Scheme: "https", Host: "example.com"}

	t.Run("fetch failure", func(t *testing.T) {
		fetch := func(ctx context.Context, rawURL string) ([]byte, bool) { return nil, false }
		assert.Empty(t, LoadSitemapURLs(context.Background(), fetch, site, false))
	})

	t.Run("malformed xml", func(t *testing.T) {
		fetch := func(ctx context.Context, rawURL string) ([]byte, bool) {
			return []byte("<urlset><url><loc>https://example.com/a"), true
		}
		assert.Empty(t, LoadSitemapURLs(context.Background(), fetch, site, false))
	})

	t.Run("unreachable child skipped", func(t *testing.T) {
		fetch := func(ctx context.Context, rawURL string) ([]byte, bool) {
			switch rawURL {
			case "https://example.com/sitemap.xml":
				return []byte(`<sitemapindex>` +
					"<sitemap><loc>https://example.com/dead.xml</loc></sitemap>" +
					"<sitemap><loc>https://example.com/live.xml</loc></sitemap>" +
					"</sitemapindex>"), true
			case "https://example.com/live.xml":
				return []byte(leafSitemap("https://example.com/alive")), true
			}
			return nil, false
		}
		urls := LoadSitemapURLs(context.Background(), fetch, site, false)
		assert.Equal(t, []string{"https://example.com/alive"}, urls)
	})
}
