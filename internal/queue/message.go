package queue

import (
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/batch-lifecycle/internal/domain"
)

// StatusChangeMessage is the broker payload emitted once per committed
// transition, manual or automatic, including rollbacks.
type StatusChangeMessage struct {
	EventID     string        `json:"eventId"`
	BatchID     string        `json:"batchId"`
	From        domain.Status `json:"from"`
	To          domain.Status `json:"to"`
	IsAutomatic bool          `json:"isAutomatic"`
	IsRollback  bool          `json:"isRollback,omitempty"`
	OccurredAt  time.Time     `json:"occurredAt"`
}

func (m StatusChangeMessage) Validate() error {
	if strings.TrimSpace(m.EventID) == "" {
		return fmt.Errorf("eventId is required")
	}
	if strings.TrimSpace(m.BatchID) == "" {
		return fmt.Errorf("batchId is required")
	}
	if !m.From.IsValid() {
		return fmt.Errorf("invalid from status %q", m.From)
	}
	if !m.To.IsValid() {
		return fmt.Errorf("invalid to status %q", m.To)
	}
	if m.OccurredAt.IsZero() {
		return fmt.Errorf("occurredAt is required")
	}
	return nil
}
