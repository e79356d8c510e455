package model

import "time"

// EnrichmentCheckpoint is the durable resume point for a bulk enrichment
// run, keyed by (operation id, collection id) and written after each
// processed item. Re-processing an already-processed id is safe because
// merge application is idempotent.
type EnrichmentCheckpoint struct {
	OperationID  string    `json:"operation_id" db:"operation_id"`
	CollectionID string    `json:"collection_id" db:"collection_id"`
	ProcessedIDs []string  `json:"processed_ids" db:"processed_ids"`
	Succeeded    int       `json:"succeeded" db:"succeeded"`
	Failed       int       `json:"failed" db:"failed"`
	Skipped      int       `json:"skipped" db:"skipped"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Processed reports whether the given item id has already been handled.
func (c *EnrichmentCheckpoint) Processed(id string) bool {
	for _, p := range c.ProcessedIDs {
		if p == id {
			return true
		}
	}
	return false
}

// BulkTally is the final report of a bulk operation: per-item failures never
// abort the batch, so callers get counts instead of a first-error failure.
type BulkTally struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}
