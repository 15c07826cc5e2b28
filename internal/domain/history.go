package domain

import "time"

// StatusHistoryEntry is one append-only audit record per committed
// transition. Seq is assigned by the store in commit order; it, not
// RecordedAt, is authoritative for ordering.
//
// IsRollback marks entries written by a rollback. A rollback entry is itself
// manual but cannot be rolled back again, which keeps undo single-step.
type StatusHistoryEntry struct {
	ID          string
	BatchID     string
	Seq         int64
	Status      Status
	IsAutomatic bool
	IsRollback  bool
	RecordedAt  time.Time
}
