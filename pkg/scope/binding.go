package scope

import (
	"fmt"

	"github.com/jzx17/goparallel/pkg/reduction"
	"github.com/jzx17/goparallel/pkg/types"
)

// SharedVar resolves to the caller's variable in every worker.
// Concurrent unsynchronised writes through it are a data race.
type SharedVar[T any] struct {
	id  string
	ptr *T
}

// Shared declares ptr as visible to the whole team
func Shared[T any](id string, ptr *T) *SharedVar[T] {
	return &SharedVar[T]{id: id, ptr: ptr}
}

// ID implements Binding
func (v *SharedVar[T]) ID() string { return v.id }

// Kind implements Binding
func (v *SharedVar[T]) Kind() Kind { return KindShared }

// Ptr returns the shared location
func (v *SharedVar[T]) Ptr() *T { return v.ptr }

func (v *SharedVar[T]) enter(int) {}
func (v *SharedVar[T]) exit()     {}

// slots is per-worker storage indexed by worker id
type slots[T any] struct {
	id     string
	values []T
}

func (s *slots[T]) local(w types.Identified) *T {
	id := w.ID()
	if id < 0 || id >= len(s.values) {
		panic(fmt.Sprintf("scope: variable %q has no slot for worker %d (team of %d)", s.id, id, len(s.values)))
	}
	return &s.values[id]
}

// PrivateVar gives each worker its own uninitialised slot.
// The slot holds the zero value, but callers must write before they read.
type PrivateVar[T any] struct {
	slots[T]
}

// Private declares a worker-private variable
func Private[T any](id string) *PrivateVar[T] {
	return &PrivateVar[T]{slots: slots[T]{id: id}}
}

// ID implements Binding
func (v *PrivateVar[T]) ID() string { return v.id }

// Kind implements Binding
func (v *PrivateVar[T]) Kind() Kind { return KindPrivate }

// Local returns the slot of worker w
func (v *PrivateVar[T]) Local(w types.Identified) *T { return v.local(w) }

func (v *PrivateVar[T]) enter(workers int) { v.values = make([]T, workers) }
func (v *PrivateVar[T]) exit()             { v.values = nil }

// FirstPrivateVar gives each worker its own copy of the outer value taken at
// region entry. Writes to a copy never reach the outer variable.
type FirstPrivateVar[T any] struct {
	slots[T]
	src *T
}

// FirstPrivate declares a worker-private variable initialised from *src
func FirstPrivate[T any](id string, src *T) *FirstPrivateVar[T] {
	return &FirstPrivateVar[T]{slots: slots[T]{id: id}, src: src}
}

// ID implements Binding
func (v *FirstPrivateVar[T]) ID() string { return v.id }

// Kind implements Binding
func (v *FirstPrivateVar[T]) Kind() Kind { return KindFirstPrivate }

// Local returns the copy of worker w
func (v *FirstPrivateVar[T]) Local(w types.Identified) *T { return v.local(w) }

func (v *FirstPrivateVar[T]) enter(workers int) {
	snapshot := *v.src
	v.values = make([]T, workers)
	for i := range v.values {
		v.values[i] = snapshot
	}
}

func (v *FirstPrivateVar[T]) exit() { v.values = nil }

// ReductionVar gives each worker an accumulator set to the operator identity.
// At exit the accumulators are combined with the outer value and stored back.
type ReductionVar[T any] struct {
	slots[T]
	target *T
	op     reduction.Op[T]
}

// Reduction declares target as combined with op across the team
func Reduction[T any](id string, target *T, op reduction.Op[T]) *ReductionVar[T] {
	return &ReductionVar[T]{slots: slots[T]{id: id}, target: target, op: op}
}

// ID implements Binding
func (v *ReductionVar[T]) ID() string { return v.id }

// Kind implements Binding
func (v *ReductionVar[T]) Kind() Kind { return KindReduction }

// Operator returns the reduction operator
func (v *ReductionVar[T]) Operator() reduction.Operator { return v.op.Operator }

// Local returns the accumulator of worker w
func (v *ReductionVar[T]) Local(w types.Identified) *T { return v.local(w) }

func (v *ReductionVar[T]) enter(workers int) {
	v.values = make([]T, workers)
	for i := range v.values {
		v.values[i] = v.op.Identity
	}
}

func (v *ReductionVar[T]) exit() {
	r := reduction.NewReducerFrom(v.op, *v.target)
	for _, partial := range v.values {
		r.Merge(partial)
	}
	*v.target = r.Result()
	v.values = nil
}
