package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle state of a batch.
type Status string

const (
	StatusUpcoming  Status = "UPCOMING"
	StatusEnrolling Status = "ENROLLING"
	StatusOngoing   Status = "ONGOING"
	StatusCompleted Status = "COMPLETED"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusUpcoming, StatusEnrolling, StatusOngoing, StatusCompleted:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition exists from this status.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted
}

func ParseStatusFromString(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid status %q", ErrValidation, s)
	}
	return st, nil
}

// Batch is the core domain entity: one scheduled cohort of a course.
//
// Status moves along UPCOMING -> ENROLLING -> ONGOING -> COMPLETED, one step
// at a time, either by the scheduler (date guards) or by a coordinator
// override. EnrollmentCount is informational only; the engine never enforces
// capacity.
type Batch struct {
	ID                  string
	CourseID            string
	Name                string
	Status              Status
	EnrollmentStartDate time.Time
	EnrollmentEndDate   time.Time
	BatchStartDate      time.Time
	BatchEndDate        time.Time
	MaxStudents         int
	EnrollmentCount     int
	IsAutoUpdated       bool
	Version             int64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (b *Batch) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if strings.TrimSpace(b.CourseID) == "" {
		return fmt.Errorf("%w: courseId is required", ErrValidation)
	}
	if b.MaxStudents <= 0 {
		return fmt.Errorf("%w: maxStudents must be positive", ErrValidation)
	}
	if b.EnrollmentCount < 0 {
		return fmt.Errorf("%w: enrollmentCount must not be negative", ErrValidation)
	}

	if b.EnrollmentStartDate.IsZero() || b.EnrollmentEndDate.IsZero() {
		return fmt.Errorf("%w: enrollment window dates are required", ErrValidation)
	}
	if b.BatchStartDate.IsZero() || b.BatchEndDate.IsZero() {
		return fmt.Errorf("%w: batch window dates are required", ErrValidation)
	}
	if b.EnrollmentEndDate.Before(b.EnrollmentStartDate) {
		return fmt.Errorf("%w: enrollmentEndDate must not precede enrollmentStartDate", ErrValidation)
	}
	if b.BatchEndDate.Before(b.BatchStartDate) {
		return fmt.Errorf("%w: batchEndDate must not precede batchStartDate", ErrValidation)
	}
	if b.BatchStartDate.Before(b.EnrollmentStartDate) {
		return fmt.Errorf("%w: batchStartDate must not precede enrollmentStartDate", ErrValidation)
	}

	return nil
}
