package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/pagelens/pagelens/internal/crawler"
	"github.com/pagelens/pagelens/internal/policy"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "pagelens.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testAudit() *crawler.Audit {
	return &crawler.Audit{
		ID:              "audit-1",
		Domain:          "example.com",
		BrandName:       "Example Inc",
		OwnerID:         "owner-9",
		PageBudget:      100,
		AllowSubdomains: true,
		HasAIPolicy:     true,
		Status:          crawler.AuditCrawling,
		CreatedAt:       time.Now().UTC().Truncate(time.Second),
	}
}

func TestAuditRoundTrip(t *testing.T) {
	store := newTestStore(t)

	audit := testAudit()
	if err := store.CreateAudit(audit); err != nil {
		t.Fatalf("CreateAudit failed: %v", err)
	}

	got, err := store.GetAudit(audit.ID)
	if err != nil {
		t.Fatalf("GetAudit failed: %v", err)
	}
	if got.Domain != audit.Domain || got.BrandName != audit.BrandName ||
		got.OwnerID != audit.OwnerID || got.PageBudget != audit.PageBudget {
		t.Errorf("audit fields mismatch: got %+v", got)
	}
	if !got.AllowSubdomains || !got.HasAIPolicy {
		t.Error("boolean fields lost in round trip")
	}
	if got.Status != crawler.AuditCrawling {
		t.Errorf("status = %q", got.Status)
	}
}

func TestGetAuditNotFound(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.GetAudit("missing"); !errors.Is(err, crawler.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateAuditStatus(t *testing.T) {
	store := newTestStore(t)
	audit := testAudit()
	if err := store.CreateAudit(audit); err != nil {
		t.Fatalf("CreateAudit failed: %v", err)
	}

	if err := store.UpdateAuditStatus(audit.ID, crawler.AuditDone); err != nil {
		t.Fatalf("UpdateAuditStatus failed: %v", err)
	}
	got, err := store.GetAudit(audit.ID)
	if err != nil {
		t.Fatalf("GetAudit failed: %v", err)
	}
	if got.Status != crawler.AuditDone {
		t.Errorf("status = %q, want done", got.Status)
	}

	if err := store.UpdateAuditStatus("missing", crawler.AuditDone); !errors.Is(err, crawler.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing audit, got %v", err)
	}
}

func TestFrontierRoundTrip(t *testing.T) {
	store := newTestStore(t)
	audit := testAudit()
	if err := store.CreateAudit(audit); err != nil {
		t.Fatalf("CreateAudit failed: %v", err)
	}

	frontier := &crawler.Frontier{
		AuditID: audit.ID,
		Queue:   []string{"https://example.com/", "https://example.com/about"},
		Seen: map[string]struct{}{
			"https://example.com/":      {},
			"https://example.com/about": {},
		},
		Rules: []policy.Rule{
			{Prefix: "/private", Allow: false},
			{Prefix: "/private/press", Allow: true},
		},
		CrawledCount:    0,
		PageBudget:      100,
		AllowSubdomains: true,
		Status:          crawler.FrontierRunning,
		UpdatedAt:       time.Now().UTC().Truncate(time.Second),
	}
	if err := store.CreateFrontier(frontier); err != nil {
		t.Fatalf("CreateFrontier failed: %v", err)
	}

	got, err := store.GetFrontier(audit.ID)
	if err != nil {
		t.Fatalf("GetFrontier failed: %v", err)
	}
	if len(got.Queue) != 2 || got.Queue[0] != "https://example.com/" {
		t.Errorf("queue mismatch: %v", got.Queue)
	}
	if len(got.Seen) != 2 {
		t.Errorf("seen-set mismatch: %v", got.Seen)
	}
	if _, ok := got.Seen["https://example.com/about"]; !ok {
		t.Error("seen-set membership lost")
	}
	if len(got.Rules) != 2 || got.Rules[0].Prefix != "/private" || got.Rules[0].Allow {
		t.Errorf("rules mismatch (order must be preserved): %v", got.Rules)
	}
	if got.Status != crawler.FrontierRunning || got.Revision != 0 {
		t.Errorf("status/revision mismatch: %q rev %d", got.Status, got.Revision)
	}
}

func TestUpdateFrontierRevisionCheck(t *testing.T) {
	store := newTestStore(t)
	audit := testAudit()
	if err := store.CreateAudit(audit); err != nil {
		t.Fatalf("CreateAudit failed: %v", err)
	}
	frontier := &crawler.Frontier{
		AuditID:    audit.ID,
		Queue:      []string{"https://example.com/"},
		Seen:       map[string]struct{}{"https://example.com/": {}},
		PageBudget: 10,
		Status:     crawler.FrontierRunning,
		UpdatedAt:  time.Now().UTC(),
	}
	if err := store.CreateFrontier(frontier); err != nil {
		t.Fatalf("CreateFrontier failed: %v", err)
	}

	// Two invocations load the same revision.
	first, err := store.GetFrontier(audit.ID)
	if err != nil {
		t.Fatalf("GetFrontier failed: %v", err)
	}
	second, err := store.GetFrontier(audit.ID)
	if err != nil {
		t.Fatalf("GetFrontier failed: %v", err)
	}

	first.CrawledCount = 1
	if err := store.UpdateFrontier(first); err != nil {
		t.Fatalf("first UpdateFrontier failed: %v", err)
	}
	if first.Revision != 1 {
		t.Errorf("revision = %d, want 1", first.Revision)
	}

	second.CrawledCount = 5
	if err := store.UpdateFrontier(second); !errors.Is(err, crawler.ErrFrontierConflict) {
		t.Errorf("expected ErrFrontierConflict for stale write, got %v", err)
	}

	got, err := store.GetFrontier(audit.ID)
	if err != nil {
		t.Fatalf("GetFrontier failed: %v", err)
	}
	if got.CrawledCount != 1 {
		t.Errorf("stale write must not land: crawled_count = %d", got.CrawledCount)
	}
}

func TestUpdateFrontierMissing(t *testing.T) {
	store := newTestStore(t)
	frontier := &crawler.Frontier{
		AuditID:   "missing",
		Status:    crawler.FrontierRunning,
		UpdatedAt: time.Now().UTC(),
	}
	if err := store.UpdateFrontier(frontier); !errors.Is(err, crawler.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSavePageRecords(t *testing.T) {
	store := newTestStore(t)
	audit := testAudit()
	if err := store.CreateAudit(audit); err != nil {
		t.Fatalf("CreateAudit failed: %v", err)
	}

	records := []*crawler.PageRecord{
		{
			AuditID:             audit.ID,
			URL:                 "https://example.com/",
			StatusCode:          200,
			Title:               "Home",
			PrimaryHeading:      "Welcome",
			MetaDescription:     "The example homepage",
			CanonicalURL:        "https://example.com/",
			HasStructuredData:   true,
			StructuredDataTypes: []string{"Organization"},
			HeadingCounts:       [6]int{1, 3, 0, 0, 0, 0},
			WordCount:           250,
			ImageCount:          4,
			ImageAltCount:       3,
			CrawledAt:           time.Now().UTC(),
		},
		{
			AuditID:    audit.ID,
			URL:        "https://example.com/about",
			StatusCode: 200,
			CrawledAt:  time.Now().UTC(),
		},
	}
	if err := store.SavePageRecords(records); err != nil {
		t.Fatalf("SavePageRecords failed: %v", err)
	}

	count, err := store.CountPageRecords(audit.ID)
	if err != nil {
		t.Fatalf("CountPageRecords failed: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}

	// Appending again grows the table; records are never replaced.
	if err := store.SavePageRecords(records[:1]); err != nil {
		t.Fatalf("second SavePageRecords failed: %v", err)
	}
	count, err = store.CountPageRecords(audit.ID)
	if err != nil {
		t.Fatalf("CountPageRecords failed: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}

func TestSavePageRecordsEmpty(t *testing.T) {
	store := newTestStore(t)
	if err := store.SavePageRecords(nil); err != nil {
		t.Errorf("empty save should be a no-op, got %v", err)
	}
}
