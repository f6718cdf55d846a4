// Package types defines error types
package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Predefined errors
var (
	// ErrInvalidScheduleConfiguration indicates a bad worker count, iteration space or chunk size
	ErrInvalidScheduleConfiguration = errors.New("invalid schedule configuration")

	// ErrDuplicateScopeDeclaration indicates a variable was declared twice for one region
	ErrDuplicateScopeDeclaration = errors.New("duplicate scope declaration")

	// ErrScopeSealed indicates a declaration after the region entered the policy
	ErrScopeSealed = errors.New("scope policy is sealed")

	// ErrBarrierParticipationMismatch indicates not every team member reached the barrier in time
	ErrBarrierParticipationMismatch = errors.New("barrier participation mismatch")

	// ErrBarrierBroken indicates the barrier was broken by a failed team member
	ErrBarrierBroken = errors.New("barrier is broken")

	// ErrOrderedSequenceMismatch indicates an ordered section was entered out of sequence
	ErrOrderedSequenceMismatch = errors.New("ordered sequence mismatch")

	// ErrUnknownDemo indicates a demo id with no registered demo
	ErrUnknownDemo = errors.New("unknown demo")
)

// WorkerError represents a failure of a single worker body
type WorkerError struct {
	// WorkerID is the id of the worker inside its team
	WorkerID int

	// Iteration is the loop index being executed, -1 outside loops
	Iteration int

	// Cause is the underlying error
	Cause error

	// Context contains error context information
	Context map[string]interface{}
}

// Error implements the error interface
func (e *WorkerError) Error() string {
	if e.Iteration >= 0 {
		return fmt.Sprintf("worker %d failed at iteration %d: %v", e.WorkerID, e.Iteration, e.Cause)
	}
	return fmt.Sprintf("worker %d failed: %v", e.WorkerID, e.Cause)
}

// Unwrap returns the underlying error
func (e *WorkerError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is a specific error
func (e *WorkerError) Is(target error) bool {
	return errors.Is(e.Cause, target)
}

// NewWorkerError creates a new worker error
func NewWorkerError(workerID, iteration int, cause error) *WorkerError {
	return &WorkerError{
		WorkerID:  workerID,
		Iteration: iteration,
		Cause:     cause,
		Context:   make(map[string]interface{}),
	}
}

// WithContext adds error context
func (e *WorkerError) WithContext(key string, value interface{}) *WorkerError {
	e.Context[key] = value
	return e
}

// PartialFailureError is reported at region join when one or more workers failed.
// The remaining workers always ran to the join point.
type PartialFailureError struct {
	// Workers is the team size of the failed region
	Workers int

	// Failures holds one entry per failed worker, ordered by worker id
	Failures []*WorkerError
}

// NewPartialFailureError creates a partial failure from the collected worker errors
func NewPartialFailureError(workers int, failures []*WorkerError) *PartialFailureError {
	sorted := make([]*WorkerError, len(failures))
	copy(sorted, failures)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].WorkerID < sorted[j].WorkerID
	})
	return &PartialFailureError{Workers: workers, Failures: sorted}
}

// Error implements the error interface
func (e *PartialFailureError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d workers failed", len(e.Failures), e.Workers)
	for _, f := range e.Failures {
		b.WriteString("; ")
		b.WriteString(f.Error())
	}
	return b.String()
}

// Unwrap exposes every worker failure to errors.Is and errors.As
func (e *PartialFailureError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// FailedWorkers returns the ids of the failed workers
func (e *PartialFailureError) FailedWorkers() []int {
	ids := make([]int, len(e.Failures))
	for i, f := range e.Failures {
		ids[i] = f.WorkerID
	}
	return ids
}

// IsPartialFailure checks if an error is a region partial failure
func IsPartialFailure(err error) bool {
	var pf *PartialFailureError
	return errors.As(err, &pf)
}
