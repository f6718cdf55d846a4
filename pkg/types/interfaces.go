// Package types defines core interfaces and types shared by the region packages
package types

// Identified is anything that carries a worker id inside its team.
// Worker-local storage is indexed by this id.
type Identified interface {
	ID() int
}

// WorkerID is a bare worker id, useful when no worker handle is at hand
type WorkerID int

// ID implements Identified
func (id WorkerID) ID() int {
	return int(id)
}

// Integer is the set of integer types accepted by reductions and atomics
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Float is the set of floating point types accepted by reductions
type Float interface {
	~float32 | ~float64
}

// Number is any integer or floating point type
type Number interface {
	Integer | Float
}
