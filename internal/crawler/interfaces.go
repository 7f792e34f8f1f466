package crawler

import "errors"

// Storage failure sentinels checked at the worker boundary.
var (
	// ErrNotFound is returned when an audit or frontier does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrFrontierConflict is returned when a frontier write loses an
	// optimistic revision check to a concurrent continuation invocation.
	ErrFrontierConflict = errors.New("frontier modified by concurrent invocation")
)

// Storage is the durable store for audits, frontiers, and page records.
type Storage interface {
	CreateAudit(audit *Audit) error
	GetAudit(id string) (*Audit, error)
	UpdateAuditStatus(id string, status AuditStatus) error

	// Frontier state: read once and written once per invocation.
	CreateFrontier(frontier *Frontier) error
	GetFrontier(auditID string) (*Frontier, error)
	// UpdateFrontier persists the frontier only if its revision still matches
	// the stored row, returning ErrFrontierConflict otherwise.
	UpdateFrontier(frontier *Frontier) error

	// Page records are append-only.
	SavePageRecords(records []*PageRecord) error
	CountPageRecords(auditID string) (int, error)

	Close() error
}
