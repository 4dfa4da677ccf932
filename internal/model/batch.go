package model

import "time"

// BatchStatus tracks an import batch through its lifecycle.
type BatchStatus string

const (
	BatchStarted  BatchStatus = "started"
	BatchComplete BatchStatus = "complete"
	BatchFailed   BatchStatus = "failed"
)

// ImportBatch is the audit record for one uploaded source file. It is
// written before any raw row so a partially-failed batch can be identified
// and re-run without double counting.
type ImportBatch struct {
	ID          string      `json:"id"`
	Source      Source      `json:"source"`
	Filename    string      `json:"filename"`
	Status      BatchStatus `json:"status"`
	TotalRows   int         `json:"total_rows"`
	NewRows     int         `json:"new_rows"`
	UpdatedRows int         `json:"updated_rows"`
	FailedRows  int         `json:"failed_rows"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}
