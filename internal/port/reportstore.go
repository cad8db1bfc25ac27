package port

import (
	"time"

	"docsearch/internal/domain"
)

// ReportStore keeps the last report produced for each session.
type ReportStore interface {
	Put(sessionID string, report domain.Report) error

	// Get returns false when the session has no report.
	Get(sessionID string) (domain.StoredReport, bool, error)

	Delete(sessionID string) error

	// Sweep removes reports stored before cutoff and returns how many were removed.
	Sweep(cutoff time.Time) (int, error)

	Close() error
}
