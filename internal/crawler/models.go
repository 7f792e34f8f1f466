// Package crawler implements the audit crawl engine: a resumable,
// scope-limited crawler that discovers and fetches pages of a target domain,
// extracts structural signals, and checkpoints its frontier so the crawl can
// continue across many short, independent invocations.
package crawler

import (
	"time"

	"github.com/pagelens/pagelens/internal/policy"
)

const (
	// BatchSize is the maximum number of frontier URLs consumed per
	// continuation invocation.
	BatchSize = 15
	// FetchConcurrency is the chunk size for concurrent fetches within a
	// batch. The worker waits for a full chunk before starting the next.
	FetchConcurrency = 5

	// DefaultPageBudget applies when no budget is requested.
	DefaultPageBudget = 100
	// MinPageBudget and MaxPageBudget clamp the requested budget.
	MinPageBudget = 1
	MaxPageBudget = 500

	// InitFetchTimeout bounds fetches during initialization.
	InitFetchTimeout = 10 * time.Second
	// ContinueFetchTimeout is tighter: many fetches must fit inside one
	// invocation's execution budget.
	ContinueFetchTimeout = 5 * time.Second
)

// AuditStatus is the lifecycle state of an audit.
type AuditStatus string

// Audit lifecycle states.
const (
	AuditCrawling AuditStatus = "crawling"
	AuditDone     AuditStatus = "done"
	AuditError    AuditStatus = "error"
)

// FrontierStatus is the lifecycle state of a crawl frontier.
type FrontierStatus string

// Frontier lifecycle states. Done and error are terminal.
const (
	FrontierRunning FrontierStatus = "running"
	FrontierDone    FrontierStatus = "done"
	FrontierError   FrontierStatus = "error"
)

// Audit is one crawl campaign for a domain. Immutable once created except
// for its status.
type Audit struct {
	ID              string
	Domain          string // audited host, e.g. "www.example.com"
	BrandName       string
	OwnerID         string
	PageBudget      int
	AllowSubdomains bool
	HasAIPolicy     bool // AI-crawler-guidance document present (informational)
	Status          AuditStatus
	CreatedAt       time.Time
}

// Frontier is the durable resumption state of one crawl, mutated exclusively
// by the continuation worker. Every URL in Queue is also in Seen.
type Frontier struct {
	AuditID         string
	Queue           []string            // normalized URLs not yet fetched, FIFO
	Seen            map[string]struct{} // every normalized URL ever enqueued
	Rules           []policy.Rule
	CrawledCount    int
	PageBudget      int
	AllowSubdomains bool
	Status          FrontierStatus
	ErrorDetail     string
	Revision        int64 // optimistic concurrency check on writes
	UpdatedAt       time.Time
}

// Enqueue appends a URL to the queue if it has never been seen, and reports
// whether it was added.
func (f *Frontier) Enqueue(normalizedURL string) bool {
	if _, ok := f.Seen[normalizedURL]; ok {
		return false
	}
	if f.Seen == nil {
		f.Seen = make(map[string]struct{})
	}
	f.Seen[normalizedURL] = struct{}{}
	f.Queue = append(f.Queue, normalizedURL)
	return true
}

// PageRecord is one fetched-and-parsed page, appended by the continuation
// worker and never mutated afterwards.
type PageRecord struct {
	AuditID             string
	URL                 string
	StatusCode          int
	Title               string
	PrimaryHeading      string
	MetaDescription     string
	CanonicalURL        string
	HasStructuredData   bool
	StructuredDataTypes []string
	HeadingCounts       [6]int // h1..h6
	WordCount           int
	ImageCount          int
	ImageAltCount       int
	CrawledAt           time.Time
}

// Progress is the snapshot returned by a continuation invocation.
type Progress struct {
	AuditID        string
	CrawledCount   int
	PageBudget     int
	QueueSize      int
	PagesThisBatch int
	Done           bool
	ErrorDetail    string
}

// InitResult reports the outcome of crawl initialization.
type InitResult struct {
	AuditID    string
	QueueSize  int
	PageBudget int
	Status     FrontierStatus
}

// ClampPageBudget applies the [MinPageBudget, MaxPageBudget] bounds, with
// zero meaning the default.
func ClampPageBudget(requested int) int {
	if requested == 0 {
		return DefaultPageBudget
	}
	if requested < MinPageBudget {
		return MinPageBudget
	}
	if requested > MaxPageBudget {
		return MaxPageBudget
	}
	return requested
}
