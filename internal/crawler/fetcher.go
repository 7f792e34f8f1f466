package crawler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultUserAgent identifies the crawler to site operators so they can
// recognize it and, if desired, block it via their crawl policy.
const DefaultUserAgent = "PageLens/1.0 (+https://pagelens.dev/bot)"

// maxBodyBytes caps buffered response bodies.
const maxBodyBytes = 1 << 20

// FetchResult is the raw outcome of a successful HTML page fetch.
type FetchResult struct {
	URL        string // final URL after redirects
	StatusCode int
	Body       []byte
}

// Fetcher performs bounded-timeout HTTP GETs with an identifying user-agent
// and per-host politeness delays.
type Fetcher struct {
	client    *http.Client
	limiter   *HostLimiter
	userAgent string
}

// NewFetcher creates a fetcher. perHostDelay spaces requests to one host;
// zero disables the delay.
func NewFetcher(userAgent string, perHostDelay time.Duration) *Fetcher {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: FetchConcurrency,
		IdleConnTimeout:     60 * time.Second,
	}
	client := &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}
	return &Fetcher{
		client:    client,
		limiter:   NewHostLimiter(perHostDelay),
		userAgent: userAgent,
	}
}

// FetchPage GETs a URL expecting an HTML document. It returns false on
// timeout, network error, non-2xx status, or non-HTML content; the caller
// treats all of these as "page unavailable". Non-HTML bodies are drained
// before being discarded.
func (f *Fetcher) FetchPage(ctx context.Context, rawURL string, timeout time.Duration) (*FetchResult, bool) {
	resp, ok := f.get(ctx, rawURL, timeout)
	if !ok {
		return nil, false
	}
	defer drainAndClose(resp.Body)

	contentType := resp.Header.Get("Content-Type")
	if !isHTML(contentType) {
		slog.Debug("Skipping non-HTML response", "url", rawURL, "content_type", contentType)
		return nil, false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		slog.Debug("Failed to read response body", "url", rawURL, "error", err)
		return nil, false
	}

	return &FetchResult{
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Body:       body,
	}, true
}

// FetchDocument GETs a non-HTML well-known document (crawl policy, sitemap,
// AI guidance). Only the 2xx requirement applies.
func (f *Fetcher) FetchDocument(ctx context.Context, rawURL string, timeout time.Duration) ([]byte, bool) {
	resp, ok := f.get(ctx, rawURL, timeout)
	if !ok {
		return nil, false
	}
	defer drainAndClose(resp.Body)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, false
	}
	return body, true
}

// get issues the request and returns the response only for 2xx statuses.
func (f *Fetcher) get(ctx context.Context, rawURL string, timeout time.Duration) (*http.Response, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, false
	}
	if err := f.limiter.Wait(ctx, parsed.Host); err != nil {
		return nil, false
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		cancel()
		return nil, false
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		cancel()
		slog.Debug("Fetch failed", "url", rawURL, "error", err)
		return nil, false
	}
	// Tie the body's lifetime to the request context.
	resp.Body = &cancelReadCloser{ReadCloser: resp.Body, cancel: cancel}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Debug("Fetch returned non-success status", "url", rawURL, "status", resp.StatusCode)
		drainAndClose(resp.Body)
		return nil, false
	}
	return resp, true
}

// Close releases idle connections.
func (f *Fetcher) Close() {
	f.client.CloseIdleConnections()
}

func isHTML(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	return strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}

// drainAndClose consumes the remaining body so the connection can be reused.
func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxBodyBytes))
	_ = body.Close()
}

type cancelReadCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelReadCloser) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
