package reduction

import (
	"iter"
	"sync"
)

// Reduce folds values left to right starting from the operator identity
func Reduce[T any](op Op[T], values iter.Seq[T]) T {
	acc := op.Identity
	for v := range values {
		acc = op.Combine(acc, v)
	}
	return acc
}

// Values adapts a slice to the lazy sequence accepted by Reduce
func Values[T any](s []T) iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, v := range s {
			if !yield(v) {
				return
			}
		}
	}
}

// Reducer accumulates worker partials into one shared result.
//
// Workers accumulate into their own partial without synchronization and merge
// exactly once when they finish; Merge serializes the combine step.
type Reducer[T any] struct {
	op     Op[T]
	result T
	merged int

	mu sync.Mutex
}

// NewReducer creates a reducer whose result starts at the identity
func NewReducer[T any](op Op[T]) *Reducer[T] {
	return &Reducer[T]{
		op:     op,
		result: op.Identity,
	}
}

// NewReducerFrom creates a reducer whose result starts at initial.
// This matches a reduction variable that already holds a value before the region.
func NewReducerFrom[T any](op Op[T], initial T) *Reducer[T] {
	return &Reducer[T]{
		op:     op,
		result: initial,
	}
}

// Op returns the reducer operator
func (r *Reducer[T]) Op() Op[T] {
	return r.op
}

// Partial returns a fresh worker-local accumulator set to the identity
func (r *Reducer[T]) Partial() *T {
	p := r.op.Identity
	return &p
}

// Merge combines a worker partial into the shared result
func (r *Reducer[T]) Merge(partial T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.result = r.op.Combine(r.result, partial)
	r.merged++
}

// Result returns the combined value
func (r *Reducer[T]) Result() T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

// Merged returns how many partials were merged so far
func (r *Reducer[T]) Merged() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.merged
}
