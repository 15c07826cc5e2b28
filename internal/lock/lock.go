// Package lock declares the sweep lease used to coordinate scheduler
// instances. Correctness of transitions never depends on the lease; it only
// keeps parallel deployments from burning compare-and-set conflicts on the
// same sweep.
package lock

import "context"

// Release frees a held lease. Safe to call once per successful acquire.
type Release func(ctx context.Context) error

// SweepLock serializes scheduler sweeps across instances.
type SweepLock interface {
	// TryAcquire attempts to take the lease without blocking. acquired is
	// false when another instance currently holds it.
	TryAcquire(ctx context.Context) (release Release, acquired bool, err error)
}
