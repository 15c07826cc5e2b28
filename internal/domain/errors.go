package domain

import "errors"

var (
	// ErrValidation marks malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks an unknown batch id.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a lost compare-and-set race on a batch record.
	ErrConflict = errors.New("conflict")
	// ErrInvalidTransition marks a requested transition that is not the
	// single legal next step, or one whose precondition is unmet.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrAlreadyTerminal marks any transition attempted from COMPLETED.
	ErrAlreadyTerminal = errors.New("batch already completed")
	// ErrNoRollbackAvailable marks a rollback request when the latest
	// history entry is automatic, is itself a rollback, or history is empty.
	ErrNoRollbackAvailable = errors.New("no rollback available")
	// ErrStoreUnavailable marks a persistence timeout or outage.
	ErrStoreUnavailable = errors.New("store unavailable")
)
