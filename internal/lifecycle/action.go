package lifecycle

import (
	"time"

	"github.com/kursadbilgin/batch-lifecycle/internal/domain"
)

// Eligibility classifies the next transition for a coordinator-facing view.
type Eligibility string

const (
	// EligibilityAuto means the scheduler will apply the transition on its
	// next sweep: date guards hold and auto-update is enabled.
	EligibilityAuto Eligibility = "AUTO_ELIGIBLE"
	// EligibilityManual means a coordinator may apply the transition now,
	// but the scheduler will not (guard not yet due, or auto-update off).
	EligibilityManual Eligibility = "MANUAL_ELIGIBLE"
	// EligibilityBlocked means neither path may apply the transition.
	EligibilityBlocked Eligibility = "BLOCKED"
	// EligibilityNone means the batch is terminal.
	EligibilityNone Eligibility = "NONE"
)

// NextAction describes the single legal next transition, if any.
type NextAction struct {
	Target      domain.Status
	Eligibility Eligibility
	Reason      string
}

// Classify computes the next-action view for a batch at now.
func Classify(b *domain.Batch, teacherCount int, now time.Time) NextAction {
	target, ok := Next(b.Status)
	if !ok {
		return NextAction{Eligibility: EligibilityNone}
	}

	if target == domain.StatusOngoing && teacherCount == 0 {
		return NextAction{
			Target:      target,
			Eligibility: EligibilityBlocked,
			Reason:      "no teachers assigned",
		}
	}

	if _, due := AutoDue(b, teacherCount, now); due && b.IsAutoUpdated {
		return NextAction{Target: target, Eligibility: EligibilityAuto}
	}

	return NextAction{Target: target, Eligibility: EligibilityManual}
}
