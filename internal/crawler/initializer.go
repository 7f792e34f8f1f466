package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pagelens/pagelens/internal/parser"
	"github.com/pagelens/pagelens/internal/policy"
	"github.com/pagelens/pagelens/internal/urlnorm"
)

// agentToken is the lower-cased crawler name matched against user-agent
// blocks in the crawl-policy document.
const agentToken = "pagelens"

// InitParams describes a new crawl campaign.
type InitParams struct {
	Domain          string // "example.com" or a full URL
	BrandName       string
	OwnerID         string
	PageBudget      int // 0 means DefaultPageBudget; clamped to [1, 500]
	AllowSubdomains bool
}

// Initializer creates the audit record and seeds the initial frontier from
// the homepage, its on-page links, and the sitemap.
type Initializer struct {
	storage Storage
	fetcher *Fetcher
}

// NewInitializer creates an initializer backed by the given store and fetcher.
func NewInitializer(storage Storage, fetcher *Fetcher) *Initializer {
	return &Initializer{storage: storage, fetcher: fetcher}
}

// Initialize builds the audit and its frontier and persists both with the
// frontier in running state. Homepage fetch failure degrades gracefully: the
// audit is still created with whatever policy and sitemap data was obtainable.
func (i *Initializer) Initialize(ctx context.Context, params InitParams) (*InitResult, error) {
	site, err := parseSite(params.Domain)
	if err != nil {
		return nil, err
	}
	budget := ClampPageBudget(params.PageBudget)

	docFetch := func(ctx context.Context, rawURL string) ([]byte, bool) {
		return i.fetcher.FetchDocument(ctx, rawURL, InitFetchTimeout)
	}

	// The homepage, policy, sitemap, and AI-guidance fetches are
	// independent; run them concurrently.
	var (
		homepage    *FetchResult
		homepageOK  bool
		rules       []policy.Rule
		sitemapURLs []string
		hasAIPolicy bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		homepage, homepageOK = i.fetcher.FetchPage(gctx, site.String(), InitFetchTimeout)
		return nil
	})
	g.Go(func() error {
		rules = policy.LoadRules(gctx, docFetch, site, agentToken)
		return nil
	})
	g.Go(func() error {
		sitemapURLs = policy.LoadSitemapURLs(gctx, docFetch, site, params.AllowSubdomains)
		return nil
	})
	g.Go(func() error {
		_, hasAIPolicy = i.fetcher.FetchDocument(gctx, site.String()+"llms.txt", InitFetchTimeout)
		return nil
	})
	_ = g.Wait()

	audit := &Audit{
		ID:              uuid.NewString(),
		Domain:          site.Host,
		BrandName:       params.BrandName,
		OwnerID:         params.OwnerID,
		PageBudget:      budget,
		AllowSubdomains: params.AllowSubdomains,
		HasAIPolicy:     hasAIPolicy,
		Status:          AuditCrawling,
		CreatedAt:       time.Now().UTC(),
	}

	frontier := &Frontier{
		AuditID:         audit.ID,
		Seen:            make(map[string]struct{}),
		Rules:           rules,
		PageBudget:      budget,
		AllowSubdomains: params.AllowSubdomains,
		Status:          FrontierRunning,
		UpdatedAt:       audit.CreatedAt,
	}

	// Queue priority: homepage, then homepage navigation links, then
	// homepage body links, then sitemap entries.
	if home, ok := urlnorm.Normalize(site.String()); ok {
		admitURL(frontier, audit, home)
	}
	if homepageOK {
		if facts, err := parser.Extract(homepage.URL, homepage.Body); err == nil {
			for _, link := range facts.Links {
				if link.Navigational {
					admitURL(frontier, audit, link.URL)
				}
			}
			for _, link := range facts.Links {
				if !link.Navigational {
					admitURL(frontier, audit, link.URL)
				}
			}
		}
	} else {
		slog.Warn("Homepage fetch failed during initialization", "domain", site.Host)
	}
	for _, u := range sitemapURLs {
		admitURL(frontier, audit, u)
	}

	if err := i.storage.CreateAudit(audit); err != nil {
		return nil, fmt.Errorf("failed to create audit: %w", err)
	}
	if err := i.storage.CreateFrontier(frontier); err != nil {
		return nil, fmt.Errorf("failed to create frontier: %w", err)
	}

	slog.Info("Initialized crawl",
		"audit_id", audit.ID,
		"domain", audit.Domain,
		"queue_size", len(frontier.Queue),
		"page_budget", budget,
		"policy_rules", len(rules),
		"sitemap_urls", len(sitemapURLs))

	return &InitResult{
		AuditID:    audit.ID,
		QueueSize:  len(frontier.Queue),
		PageBudget: budget,
		Status:     FrontierRunning,
	}, nil
}

// admitURL enqueues a normalized URL if it is unseen, in scope, and allowed
// by the crawl policy.
func admitURL(frontier *Frontier, audit *Audit, normalizedURL string) {
	if _, seen := frontier.Seen[normalizedURL]; seen {
		return
	}
	parsed, err := url.Parse(normalizedURL)
	if err != nil {
		return
	}
	if !urlnorm.InScope(parsed.Host, audit.Domain, audit.AllowSubdomains) {
		return
	}
	if !policy.Allowed(parsed.Path, frontier.Rules) {
		return
	}
	frontier.Enqueue(normalizedURL)
}

// parseSite turns a user-supplied domain or URL into the site's base URL.
func parseSite(domain string) (*url.URL, error) {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return nil, fmt.Errorf("domain is required")
	}
	if !strings.Contains(domain, "://") {
		domain = "https://" + domain
	}
	parsed, err := url.Parse(domain)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("invalid domain %q", domain)
	}
	return &url.URL{Scheme: parsed.Scheme, Host: strings.ToLower(parsed.Host), Path: "/"}, nil
}
