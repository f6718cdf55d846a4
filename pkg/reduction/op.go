// Package reduction combines per-worker partial results with an associative,
// commutative operator into a single value.
//
// Every supported operator is associative and commutative, so the combined
// value does not depend on merge order for integer and boolean operands.
// Floating point operands inherit the usual non-associativity of float
// arithmetic: the order in which worker partials are merged is not
// deterministic across runs, and neither are the low bits of a float result.
package reduction

import (
	"math"
	"unsafe"

	"github.com/jzx17/goparallel/pkg/types"
)

// Operator names a reduction operator
type Operator int

const (
	// OpSum adds operands
	OpSum Operator = iota
	// OpProduct multiplies operands
	OpProduct
	// OpMax keeps the largest operand
	OpMax
	// OpMin keeps the smallest operand
	OpMin
	// OpAnd is logical conjunction
	OpAnd
	// OpOr is logical disjunction
	OpOr
	// OpBitAnd is bitwise conjunction
	OpBitAnd
	// OpBitOr is bitwise disjunction
	OpBitOr
)

// String returns the string representation of Operator
func (o Operator) String() string {
	switch o {
	case OpSum:
		return "+"
	case OpProduct:
		return "*"
	case OpMax:
		return "max"
	case OpMin:
		return "min"
	case OpAnd:
		return "&&"
	case OpOr:
		return "||"
	case OpBitAnd:
		return "&"
	case OpBitOr:
		return "|"
	default:
		return "unknown"
	}
}

// Op is a reduction operator bound to an operand type.
// Identity is the value every worker partial starts from.
type Op[T any] struct {
	Operator Operator
	Identity T
	Combine  func(x, y T) T
}

// Sum returns the addition operator
func Sum[T types.Number]() Op[T] {
	return Op[T]{
		Operator: OpSum,
		Identity: 0,
		Combine:  func(x, y T) T { return x + y },
	}
}

// Product returns the multiplication operator
func Product[T types.Number]() Op[T] {
	return Op[T]{
		Operator: OpProduct,
		Identity: 1,
		Combine:  func(x, y T) T { return x * y },
	}
}

// Max returns the maximum operator, starting from the lowest value of T
func Max[T types.Number]() Op[T] {
	return Op[T]{
		Operator: OpMax,
		Identity: lowest[T](),
		Combine: func(x, y T) T {
			if y > x {
				return y
			}
			return x
		},
	}
}

// Min returns the minimum operator, starting from the highest value of T
func Min[T types.Number]() Op[T] {
	return Op[T]{
		Operator: OpMin,
		Identity: highest[T](),
		Combine: func(x, y T) T {
			if y < x {
				return y
			}
			return x
		},
	}
}

// And returns logical conjunction
func And() Op[bool] {
	return Op[bool]{
		Operator: OpAnd,
		Identity: true,
		Combine:  func(x, y bool) bool { return x && y },
	}
}

// Or returns logical disjunction
func Or() Op[bool] {
	return Op[bool]{
		Operator: OpOr,
		Identity: false,
		Combine:  func(x, y bool) bool { return x || y },
	}
}

// BitAnd returns bitwise conjunction
func BitAnd[T types.Integer]() Op[T] {
	var zero T
	return Op[T]{
		Operator: OpBitAnd,
		Identity: ^zero,
		Combine:  func(x, y T) T { return x & y },
	}
}

// BitOr returns bitwise disjunction
func BitOr[T types.Integer]() Op[T] {
	return Op[T]{
		Operator: OpBitOr,
		Identity: 0,
		Combine:  func(x, y T) T { return x | y },
	}
}

// isFloat reports whether T holds fractions
func isFloat[T types.Number]() bool {
	var one T = 1
	return one/2 != 0
}

// isUnsigned reports whether T wraps below zero
func isUnsigned[T types.Number]() bool {
	var zero T
	return zero-1 > 0
}

// lowest returns -Inf for floats, 0 for unsigned and the minimum signed value otherwise
func lowest[T types.Number]() T {
	switch {
	case isFloat[T]():
		inf := math.Inf(-1)
		return T(inf)
	case isUnsigned[T]():
		return 0
	default:
		var zero T
		bits := int(unsafe.Sizeof(zero)) * 8
		// -2^(bits-1) is exact in float64 for every signed width
		lo := -math.Ldexp(1, bits-1)
		return T(lo)
	}
}

// highest returns +Inf for floats and the maximum integer value otherwise
func highest[T types.Number]() T {
	switch {
	case isFloat[T]():
		inf := math.Inf(1)
		return T(inf)
	case isUnsigned[T]():
		var zero T
		return zero - 1
	default:
		return -(lowest[T]() + 1)
	}
}
