package primitive

import (
	"math"

	"code.hybscloud.com/atomix"
)

// AtomicInt is a shared integer scalar updated with indivisible
// read-modify-write operations. The zero value is ready to use.
type AtomicInt struct {
	v atomix.Int64
}

// NewAtomicInt creates an atomic integer holding initial
func NewAtomicInt(initial int64) *AtomicInt {
	a := &AtomicInt{}
	a.v.Store(initial)
	return a
}

// Add adds delta and returns the new value
func (a *AtomicInt) Add(delta int64) int64 {
	return a.v.Add(delta)
}

// Sub subtracts delta and returns the new value
func (a *AtomicInt) Sub(delta int64) int64 {
	return a.v.Add(-delta)
}

// Inc adds one and returns the new value
func (a *AtomicInt) Inc() int64 {
	return a.v.Add(1)
}

// Dec subtracts one and returns the new value
func (a *AtomicInt) Dec() int64 {
	return a.v.Add(-1)
}

// Load returns the current value
func (a *AtomicInt) Load() int64 {
	return a.v.Load()
}

// Store replaces the current value
func (a *AtomicInt) Store(v int64) {
	a.v.Store(v)
}

// Update applies fn as one indivisible step and returns the new value.
// fn may run more than once under contention and must not have side effects.
func (a *AtomicInt) Update(fn func(int64) int64) int64 {
	for {
		old := a.v.Load()
		next := fn(old)
		if a.v.CompareAndSwap(old, next) {
			return next
		}
	}
}

// AtomicFloat is a shared float64 scalar updated with indivisible
// read-modify-write operations. The zero value holds 0.
type AtomicFloat struct {
	bits atomix.Uint64
}

// NewAtomicFloat creates an atomic float holding initial
func NewAtomicFloat(initial float64) *AtomicFloat {
	a := &AtomicFloat{}
	a.bits.Store(math.Float64bits(initial))
	return a
}

// Add adds delta and returns the new value
func (a *AtomicFloat) Add(delta float64) float64 {
	return a.Update(func(v float64) float64 { return v + delta })
}

// Sub subtracts delta and returns the new value
func (a *AtomicFloat) Sub(delta float64) float64 {
	return a.Update(func(v float64) float64 { return v - delta })
}

// Load returns the current value
func (a *AtomicFloat) Load() float64 {
	return math.Float64frombits(a.bits.Load())
}

// Store replaces the current value
func (a *AtomicFloat) Store(v float64) {
	a.bits.Store(math.Float64bits(v))
}

// Update applies fn as one indivisible step and returns the new value
func (a *AtomicFloat) Update(fn func(float64) float64) float64 {
	for {
		old := a.bits.Load()
		next := math.Float64bits(fn(math.Float64frombits(old)))
		if a.bits.CompareAndSwap(old, next) {
			return math.Float64frombits(next)
		}
	}
}
