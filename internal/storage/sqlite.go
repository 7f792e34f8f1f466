// Package storage persists audits, crawl frontiers, and page records in
// SQLite. The frontier row is read whole and written whole once per
// continuation invocation, guarded by an optimistic revision check.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/pagelens/pagelens/internal/crawler"
	"github.com/pagelens/pagelens/internal/policy"

	// SQLite database driver (CGO-free)
	_ "modernc.org/sqlite"
)

// SQLiteStore implements crawler.Storage on a single SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection avoids writer lock conflicts.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 30000",
	}
	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute pragma %s: %w", pragma, err)
		}
	}
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateAudit inserts a new audit row.
func (s *SQLiteStore) CreateAudit(audit *crawler.Audit) error {
	_, err := s.db.Exec(`
		INSERT INTO audits (id, domain, brand_name, owner_id, page_budget,
			allow_subdomains, has_ai_policy, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, audit.ID, audit.Domain, audit.BrandName, audit.OwnerID, audit.PageBudget,
		audit.AllowSubdomains, audit.HasAIPolicy, string(audit.Status), audit.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert audit: %w", err)
	}
	return nil
}

// GetAudit loads an audit by identifier, returning crawler.ErrNotFound when
// it does not exist.
func (s *SQLiteStore) GetAudit(id string) (*crawler.Audit, error) {
	var audit crawler.Audit
	var status string
	err := s.db.QueryRow(`
		SELECT id, domain, brand_name, owner_id, page_budget,
			allow_subdomains, has_ai_policy, status, created_at
		FROM audits WHERE id = ?
	`, id).Scan(&audit.ID, &audit.Domain, &audit.BrandName, &audit.OwnerID,
		&audit.PageBudget, &audit.AllowSubdomains, &audit.HasAIPolicy,
		&status, &audit.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, crawler.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query audit: %w", err)
	}
	audit.Status = crawler.AuditStatus(status)
	return &audit, nil
}

// UpdateAuditStatus sets the audit status.
func (s *SQLiteStore) UpdateAuditStatus(id string, status crawler.AuditStatus) error {
	res, err := s.db.Exec(`UPDATE audits SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update audit status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return crawler.ErrNotFound
	}
	return nil
}

// CreateFrontier inserts the frontier row for a new audit at revision zero.
func (s *SQLiteStore) CreateFrontier(frontier *crawler.Frontier) error {
	queueJSON, seenJSON, rulesJSON, err := marshalFrontier(frontier)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO crawl_frontiers (audit_id, queue_json, seen_json, rules_json,
			crawled_count, page_budget, allow_subdomains, status, error_detail,
			revision, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
	`, frontier.AuditID, queueJSON, seenJSON, rulesJSON,
		frontier.CrawledCount, frontier.PageBudget, frontier.AllowSubdomains,
		string(frontier.Status), frontier.ErrorDetail, frontier.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert frontier: %w", err)
	}
	frontier.Revision = 0
	return nil
}

// GetFrontier loads the frontier for an audit, returning crawler.ErrNotFound
// when it does not exist.
func (s *SQLiteStore) GetFrontier(auditID string) (*crawler.Frontier, error) {
	var (
		frontier                       crawler.Frontier
		queueJSON, seenJSON, rulesJSON string
		status                         string
	)
	err := s.db.QueryRow(`
		SELECT audit_id, queue_json, seen_json, rules_json, crawled_count,
			page_budget, allow_subdomains, status, error_detail, revision, updated_at
		FROM crawl_frontiers WHERE audit_id = ?
	`, auditID).Scan(&frontier.AuditID, &queueJSON, &seenJSON, &rulesJSON,
		&frontier.CrawledCount, &frontier.PageBudget, &frontier.AllowSubdomains,
		&status, &frontier.ErrorDetail, &frontier.Revision, &frontier.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, crawler.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query frontier: %w", err)
	}
	frontier.Status = crawler.FrontierStatus(status)

	if err := json.Unmarshal([]byte(queueJSON), &frontier.Queue); err != nil {
		return nil, fmt.Errorf("failed to decode frontier queue: %w", err)
	}
	var seen []string
	if err := json.Unmarshal([]byte(seenJSON), &seen); err != nil {
		return nil, fmt.Errorf("failed to decode frontier seen-set: %w", err)
	}
	frontier.Seen = make(map[string]struct{}, len(seen))
	for _, u := range seen {
		frontier.Seen[u] = struct{}{}
	}
	if err := json.Unmarshal([]byte(rulesJSON), &frontier.Rules); err != nil {
		return nil, fmt.Errorf("failed to decode frontier rules: %w", err)
	}
	return &frontier, nil
}

// UpdateFrontier writes the frontier back, bumping its revision. The write
// only lands if no concurrent invocation has written since this frontier was
// loaded; otherwise crawler.ErrFrontierConflict is returned.
func (s *SQLiteStore) UpdateFrontier(frontier *crawler.Frontier) error {
	queueJSON, seenJSON, rulesJSON, err := marshalFrontier(frontier)
	if err != nil {
		return err
	}
	res, err := s.db.Exec(`
		UPDATE crawl_frontiers SET
			queue_json = ?, seen_json = ?, rules_json = ?, crawled_count = ?,
			status = ?, error_detail = ?, revision = revision + 1, updated_at = ?
		WHERE audit_id = ? AND revision = ?
	`, queueJSON, seenJSON, rulesJSON, frontier.CrawledCount,
		string(frontier.Status), frontier.ErrorDetail, frontier.UpdatedAt,
		frontier.AuditID, frontier.Revision)
	if err != nil {
		return fmt.Errorf("failed to update frontier: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check frontier update: %w", err)
	}
	if n == 0 {
		// Either the frontier is gone or another invocation won the write.
		if _, getErr := s.GetFrontier(frontier.AuditID); getErr != nil {
			return getErr
		}
		return crawler.ErrFrontierConflict
	}
	frontier.Revision++
	return nil
}

// SavePageRecords appends page records in one transaction.
func (s *SQLiteStore) SavePageRecords(records []*crawler.PageRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO page_records (audit_id, url, status_code, title,
			primary_heading, meta_description, canonical_url,
			has_structured_data, structured_data_types,
			h1_count, h2_count, h3_count, h4_count, h5_count, h6_count,
			word_count, image_count, image_alt_count, crawled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, record := range records {
		typesJSON, err := json.Marshal(record.StructuredDataTypes)
		if err != nil {
			return fmt.Errorf("failed to marshal structured-data types: %w", err)
		}
		if _, err := stmt.Exec(
			record.AuditID, record.URL, record.StatusCode, record.Title,
			record.PrimaryHeading, record.MetaDescription, record.CanonicalURL,
			record.HasStructuredData, string(typesJSON),
			record.HeadingCounts[0], record.HeadingCounts[1], record.HeadingCounts[2],
			record.HeadingCounts[3], record.HeadingCounts[4], record.HeadingCounts[5],
			record.WordCount, record.ImageCount, record.ImageAltCount,
			record.CrawledAt,
		); err != nil {
			return fmt.Errorf("failed to insert page record %s: %w", record.URL, err)
		}
	}

	return tx.Commit()
}

// CountPageRecords returns how many page records an audit has.
func (s *SQLiteStore) CountPageRecords(auditID string) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM page_records WHERE audit_id = ?`, auditID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count page records: %w", err)
	}
	return count, nil
}

// marshalFrontier serializes the collection columns. The seen-set is sorted
// so the stored form is deterministic.
func marshalFrontier(frontier *crawler.Frontier) (queueJSON, seenJSON, rulesJSON string, err error) {
	queue := frontier.Queue
	if queue == nil {
		queue = []string{}
	}
	qb, err := json.Marshal(queue)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to marshal queue: %w", err)
	}

	seen := make([]string, 0, len(frontier.Seen))
	for u := range frontier.Seen {
		seen = append(seen, u)
	}
	sort.Strings(seen)
	sb, err := json.Marshal(seen)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to marshal seen-set: %w", err)
	}

	rules := frontier.Rules
	if rules == nil {
		rules = []policy.Rule{}
	}
	rb, err := json.Marshal(rules)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to marshal rules: %w", err)
	}

	return string(qb), string(sb), string(rb), nil
}
