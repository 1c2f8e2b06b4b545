package job

import (
	"context"
	"errors"
	"time"
)

// ListLimit caps the number of jobs returned by ListByOwner.
const ListLimit = 50

// ErrJobNotFound is returned when a job cannot be found by ID.
var ErrJobNotFound = errors.New("job not found")

// ErrJobExists is returned by Create when the ID is already taken.
var ErrJobExists = errors.New("job already exists")

// Mutator changes a job in place inside Store.Update.
// Returning an error aborts the update without writing anything.
type Mutator func(j *Job) error

// Store defines the interface for job persistence.
// It acts as a port in the hexagonal architecture pattern.
//
// Update is the only write path after creation. Implementations run the
// read-modify-write for one job ID serially, so concurrent writers to the
// same job never lose each other's segment upserts.
type Store interface {
	// Create persists a new job. Returns ErrJobExists if the ID is taken.
	Create(ctx context.Context, job *Job) error

	// Get retrieves a job by its unique identifier.
	// Returns ErrJobNotFound if the job does not exist.
	Get(ctx context.Context, id string) (*Job, error)

	// Update loads the job, applies fn, refreshes UpdatedAt and writes it back.
	// It returns the stored result. Errors from fn are returned unchanged.
	Update(ctx context.Context, id string, fn Mutator) (*Job, error)

	// ListByOwner returns the owner's jobs, newest first, at most limit entries
	// (ListLimit when limit is not positive or larger).
	ListByOwner(ctx context.Context, userID string, limit int) ([]*Job, error)

	// DeleteOlderThan removes jobs created before cutoff and returns how many were removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > ListLimit {
		return ListLimit
	}
	return limit
}

// touch refreshes UpdatedAt, keeping it monotonic even on coarse clocks.
func touch(j *Job) {
	now := time.Now().UTC()
	if !now.After(j.UpdatedAt) {
		now = j.UpdatedAt.Add(time.Microsecond)
	}
	j.UpdatedAt = now
}
