// Package lifecycle holds the pure transition rules for batch statuses.
// Everything here is side-effect free: callers pass the batch, the current
// teacher count, and the clock reading, and get a verdict back.
package lifecycle

import (
	"fmt"
	"math"
	"time"

	"github.com/kursadbilgin/batch-lifecycle/internal/domain"
)

// Next returns the single legal successor status. ok is false for COMPLETED.
func Next(s domain.Status) (domain.Status, bool) {
	switch s {
	case domain.StatusUpcoming:
		return domain.StatusEnrolling, true
	case domain.StatusEnrolling:
		return domain.StatusOngoing, true
	case domain.StatusOngoing:
		return domain.StatusCompleted, true
	}
	return "", false
}

// AutoDue reports whether the batch's next transition is due at now under the
// automatic date guards. A false result is "not yet eligible", never an
// error; an enrolling batch without teachers stays put even past its start
// date.
func AutoDue(b *domain.Batch, teacherCount int, now time.Time) (domain.Status, bool) {
	target, ok := Next(b.Status)
	if !ok {
		return "", false
	}

	switch b.Status {
	case domain.StatusUpcoming:
		return target, !now.Before(b.EnrollmentStartDate)
	case domain.StatusEnrolling:
		return target, !now.Before(b.BatchStartDate) && teacherCount > 0
	case domain.StatusOngoing:
		return target, !now.Before(b.BatchEndDate)
	}
	return "", false
}

// ValidateManual checks the manual guard for a requested from -> to pair.
// Dates are ignored; only adjacency and the teacher precondition apply.
func ValidateManual(from, to domain.Status, teacherCount int) error {
	if from.IsTerminal() {
		return fmt.Errorf("%w: no transition from %s", domain.ErrAlreadyTerminal, from)
	}

	target, _ := Next(from)
	if to != target {
		return fmt.Errorf("%w: %s -> %s is not the next step", domain.ErrInvalidTransition, from, to)
	}
	if to == domain.StatusOngoing && teacherCount == 0 {
		return fmt.Errorf("%w: cannot start %s without assigned teachers", domain.ErrInvalidTransition, to)
	}

	return nil
}

// Progress returns the 0-100 display metric for the batch at now. It never
// drives transitions.
func Progress(b *domain.Batch, now time.Time) int {
	switch b.Status {
	case domain.StatusUpcoming:
		return 0
	case domain.StatusEnrolling:
		return windowProgress(b.EnrollmentStartDate, b.EnrollmentEndDate, now)
	case domain.StatusOngoing:
		return windowProgress(b.BatchStartDate, b.BatchEndDate, now)
	case domain.StatusCompleted:
		return 100
	}
	return 0
}

func windowProgress(start, end time.Time, now time.Time) int {
	if now.Before(start) {
		return 0
	}
	// Zero-length window: already at or past the end.
	if !end.After(start) {
		return 100
	}

	ratio := float64(now.Sub(start)) / float64(end.Sub(start))
	pct := int(math.Round(ratio * 100))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
