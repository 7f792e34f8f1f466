package storage

const schemaSQL = `
-- One audit per crawl campaign. Immutable once created except status.
CREATE TABLE IF NOT EXISTS audits (
    id TEXT PRIMARY KEY,
    domain TEXT NOT NULL,
    brand_name TEXT NOT NULL DEFAULT '',
    owner_id TEXT NOT NULL DEFAULT '',
    page_budget INTEGER NOT NULL,
    allow_subdomains INTEGER NOT NULL DEFAULT 0,
    has_ai_policy INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL CHECK (status IN ('crawling', 'done', 'error')),
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audits_domain ON audits(domain);
CREATE INDEX IF NOT EXISTS idx_audits_owner ON audits(owner_id);

-- Durable resumption state, one row per audit. The queue, seen-set, and
-- policy rules are serialized whole: the worker reads the row once and
-- writes it once per invocation. revision backs the optimistic write check.
CREATE TABLE IF NOT EXISTS crawl_frontiers (
    audit_id TEXT PRIMARY KEY REFERENCES audits(id),
    queue_json TEXT NOT NULL,
    seen_json TEXT NOT NULL,
    rules_json TEXT NOT NULL,
    crawled_count INTEGER NOT NULL DEFAULT 0,
    page_budget INTEGER NOT NULL,
    allow_subdomains INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL CHECK (status IN ('running', 'done', 'error')),
    error_detail TEXT NOT NULL DEFAULT '',
    revision INTEGER NOT NULL DEFAULT 0,
    updated_at DATETIME NOT NULL
);

-- Append-only page facts, many rows per audit.
CREATE TABLE IF NOT EXISTS page_records (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    audit_id TEXT NOT NULL REFERENCES audits(id),
    url TEXT NOT NULL,
    status_code INTEGER NOT NULL,
    title TEXT NOT NULL DEFAULT '',
    primary_heading TEXT NOT NULL DEFAULT '',
    meta_description TEXT NOT NULL DEFAULT '',
    canonical_url TEXT NOT NULL DEFAULT '',
    has_structured_data INTEGER NOT NULL DEFAULT 0,
    structured_data_types TEXT NOT NULL DEFAULT '[]',
    h1_count INTEGER NOT NULL DEFAULT 0,
    h2_count INTEGER NOT NULL DEFAULT 0,
    h3_count INTEGER NOT NULL DEFAULT 0,
    h4_count INTEGER NOT NULL DEFAULT 0,
    h5_count INTEGER NOT NULL DEFAULT 0,
    h6_count INTEGER NOT NULL DEFAULT 0,
    word_count INTEGER NOT NULL DEFAULT 0,
    image_count INTEGER NOT NULL DEFAULT 0,
    image_alt_count INTEGER NOT NULL DEFAULT 0,
    crawled_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_page_records_audit ON page_records(audit_id);
CREATE INDEX IF NOT EXISTS idx_page_records_audit_url ON page_records(audit_id, url);
`
