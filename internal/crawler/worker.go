package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pagelens/pagelens/internal/parser"
	"github.com/pagelens/pagelens/internal/policy"
	"github.com/pagelens/pagelens/internal/urlnorm"
)

// Worker is the resumable continuation step: load frontier, process one
// bounded batch, persist the updated frontier, report progress. Each
// invocation is a self-contained unit with no shared in-process state.
type Worker struct {
	storage Storage
	fetcher *Fetcher
}

// NewWorker creates a continuation worker.
func NewWorker(storage Storage, fetcher *Fetcher) *Worker {
	return &Worker{storage: storage, fetcher: fetcher}
}

// batchOutcome is the result of fetching and parsing one batch URL. A nil
// record means the URL was consumed without producing a page.
type batchOutcome struct {
	url    string
	record *PageRecord
	links  []parser.Link
}

// Continue runs one continuation invocation for the audit. It returns
// ErrNotFound if the audit or frontier is missing, without mutating state.
// Terminal frontiers short-circuit idempotently to their current snapshot.
func (w *Worker) Continue(ctx context.Context, auditID string) (*Progress, error) {
	audit, err := w.storage.GetAudit(auditID)
	if err != nil {
		return nil, err
	}
	frontier, err := w.storage.GetFrontier(auditID)
	if err != nil {
		return nil, err
	}

	if frontier.Status != FrontierRunning {
		return snapshot(frontier, 0), nil
	}

	remaining := frontier.PageBudget - frontier.CrawledCount
	if len(frontier.Queue) == 0 || remaining <= 0 {
		return w.finish(audit, frontier, 0)
	}

	batchSize := min(BatchSize, min(remaining, len(frontier.Queue)))
	batch := frontier.Queue[:batchSize]

	outcomes := w.processBatch(ctx, audit, batch)

	var records []*PageRecord
	var discovered []string
	for _, outcome := range outcomes {
		if outcome.record != nil {
			records = append(records, outcome.record)
		}
		for _, link := range outcome.links {
			if w.admissible(frontier, audit, link.URL) {
				frontier.Seen[link.URL] = struct{}{}
				discovered = append(discovered, link.URL)
			}
		}
	}

	// FIFO: consumed URLs leave the front, discoveries join the back, so the
	// crawl expands breadth-first.
	frontier.Queue = append(frontier.Queue[batchSize:], discovered...)

	if len(records) > 0 {
		if err := w.storage.SavePageRecords(records); err != nil {
			// Losing a batch of page records is preferable to stalling the
			// crawl; the frontier still advances.
			slog.Error("Failed to persist page records", "audit_id", auditID, "count", len(records), "error", err)
		}
	}
	frontier.CrawledCount += len(records)

	if len(frontier.Queue) == 0 || frontier.CrawledCount >= frontier.PageBudget {
		return w.finish(audit, frontier, batchSize)
	}

	frontier.UpdatedAt = time.Now().UTC()
	if err := w.storage.UpdateFrontier(frontier); err != nil {
		return nil, fmt.Errorf("failed to persist frontier: %w", err)
	}

	slog.Info("Continued crawl",
		"audit_id", auditID,
		"crawled", frontier.CrawledCount,
		"budget", frontier.PageBudget,
		"queue_size", len(frontier.Queue),
		"batch", batchSize)

	return snapshot(frontier, batchSize), nil
}

// finish transitions the frontier to done and persists it and the audit.
func (w *Worker) finish(audit *Audit, frontier *Frontier, pagesThisBatch int) (*Progress, error) {
	frontier.Status = FrontierDone
	frontier.UpdatedAt = time.Now().UTC()
	if err := w.storage.UpdateFrontier(frontier); err != nil {
		return nil, fmt.Errorf("failed to persist frontier: %w", err)
	}
	if err := w.storage.UpdateAuditStatus(audit.ID, AuditDone); err != nil {
		return nil, fmt.Errorf("failed to update audit status: %w", err)
	}

	slog.Info("Crawl finished",
		"audit_id", audit.ID,
		"crawled", frontier.CrawledCount,
		"budget", frontier.PageBudget)

	return snapshot(frontier, pagesThisBatch), nil
}

// processBatch fetches and parses batch URLs in chunks of FetchConcurrency,
// waiting for each full chunk before starting the next. Individual failures
// are absorbed: the URL is consumed either way.
func (w *Worker) processBatch(ctx context.Context, audit *Audit, batch []string) []batchOutcome {
	outcomes := make([]batchOutcome, len(batch))

	for start := 0; start < len(batch); start += FetchConcurrency {
		end := min(start+FetchConcurrency, len(batch))

		var g errgroup.Group
		for idx := start; idx < end; idx++ {
			idx := idx
			g.Go(func() error {
				outcomes[idx] = w.processURL(ctx, audit, batch[idx])
				return nil
			})
		}
		_ = g.Wait()
	}

	return outcomes
}

// processURL fetches one page and extracts its signals. Any failure yields an
// outcome with no record and no links.
func (w *Worker) processURL(ctx context.Context, audit *Audit, pageURL string) batchOutcome {
	outcome := batchOutcome{url: pageURL}

	resp, ok := w.fetcher.FetchPage(ctx, pageURL, ContinueFetchTimeout)
	if !ok {
		slog.Debug("Page unavailable", "audit_id", audit.ID, "url", pageURL)
		return outcome
	}

	facts, err := parser.Extract(resp.URL, resp.Body)
	if err != nil {
		slog.Debug("Page parse failed", "audit_id", audit.ID, "url", pageURL, "error", err)
		return outcome
	}

	outcome.record = &PageRecord{
		AuditID:             audit.ID,
		URL:                 pageURL,
		StatusCode:          resp.StatusCode,
		Title:               facts.Title,
		PrimaryHeading:      facts.PrimaryHeading,
		MetaDescription:     facts.MetaDescription,
		CanonicalURL:        facts.CanonicalURL,
		HasStructuredData:   facts.HasStructuredData,
		StructuredDataTypes: facts.StructuredDataTypes,
		HeadingCounts:       facts.HeadingCounts,
		WordCount:           facts.WordCount,
		ImageCount:          facts.ImageCount,
		ImageAltCount:       facts.ImageAltCount,
		CrawledAt:           time.Now().UTC(),
	}
	outcome.links = facts.Links
	return outcome
}

// admissible reports whether a discovered link may join the frontier: not
// yet seen, in scope, and allowed by policy.
func (w *Worker) admissible(frontier *Frontier, audit *Audit, normalizedURL string) bool {
	if _, seen := frontier.Seen[normalizedURL]; seen {
		return false
	}
	parsed, err := url.Parse(normalizedURL)
	if err != nil {
		return false
	}
	if !urlnorm.InScope(parsed.Host, audit.Domain, audit.AllowSubdomains) {
		return false
	}
	return policy.Allowed(parsed.Path, frontier.Rules)
}

func snapshot(frontier *Frontier, pagesThisBatch int) *Progress {
	return &Progress{
		AuditID:        frontier.AuditID,
		CrawledCount:   frontier.CrawledCount,
		PageBudget:     frontier.PageBudget,
		QueueSize:      len(frontier.Queue),
		PagesThisBatch: pagesThisBatch,
		Done:           frontier.Status != FrontierRunning,
		ErrorDetail:    frontier.ErrorDetail,
	}
}
