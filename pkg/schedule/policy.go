// Package schedule partitions an iteration space across the workers of a team
package schedule

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jzx17/goparallel/pkg/types"
)

// Kind defines how iterations are distributed
type Kind int

const (
	// KindStatic splits the space into one contiguous block per worker
	KindStatic Kind = iota
	// KindStaticChunked deals fixed-size chunks round-robin, decided upfront
	KindStaticChunked
	// KindDynamic hands out single iterations first-come-first-served
	KindDynamic
	// KindDynamicChunked hands out fixed-size chunks first-come-first-served
	KindDynamicChunked
	// KindGuided hands out shrinking chunks first-come-first-served
	KindGuided
	// KindRuntime defers the choice to a runtime source read at region entry
	KindRuntime
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindStatic, KindStaticChunked:
		return "static"
	case KindDynamic, KindDynamicChunked:
		return "dynamic"
	case KindGuided:
		return "guided"
	case KindRuntime:
		return "runtime"
	default:
		return "unknown"
	}
}

// Policy is a schedule kind with its chunk size.
// Chunk is the fixed chunk size for the chunked kinds and the minimum chunk
// size for Guided; it is ignored otherwise.
type Policy struct {
	Kind  Kind
	Chunk int
}

// Static returns the block schedule
func Static() Policy { return Policy{Kind: KindStatic} }

// StaticChunked returns the round-robin schedule with the given chunk size
func StaticChunked(chunk int) Policy { return Policy{Kind: KindStaticChunked, Chunk: chunk} }

// Dynamic returns the first-come-first-served schedule with chunk size 1
func Dynamic() Policy { return Policy{Kind: KindDynamic, Chunk: 1} }

// DynamicChunked returns the first-come-first-served schedule with the given chunk size
func DynamicChunked(chunk int) Policy { return Policy{Kind: KindDynamicChunked, Chunk: chunk} }

// Guided returns the shrinking-chunk schedule with a floor of 1
func Guided() Policy { return Policy{Kind: KindGuided, Chunk: 1} }

// GuidedChunked returns the shrinking-chunk schedule with the given floor
func GuidedChunked(floor int) Policy { return Policy{Kind: KindGuided, Chunk: floor} }

// Runtime returns the schedule resolved from a Source at region entry
func Runtime() Policy { return Policy{Kind: KindRuntime} }

// String renders the policy in the "kind[,chunk]" form accepted by Parse
func (p Policy) String() string {
	switch p.Kind {
	case KindStaticChunked, KindDynamicChunked:
		return fmt.Sprintf("%s,%d", p.Kind, p.Chunk)
	case KindGuided:
		if p.Chunk > 1 {
			return fmt.Sprintf("%s,%d", p.Kind, p.Chunk)
		}
	}
	return p.Kind.String()
}

// Validate checks the chunk size of the policy
func (p Policy) Validate() error {
	switch p.Kind {
	case KindStatic, KindDynamic, KindRuntime:
		return nil
	case KindStaticChunked, KindDynamicChunked, KindGuided:
		if p.Chunk <= 0 {
			return fmt.Errorf("%w: %s chunk size must be positive, got %d",
				types.ErrInvalidScheduleConfiguration, p.Kind, p.Chunk)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown schedule kind %d", types.ErrInvalidScheduleConfiguration, int(p.Kind))
	}
}

// Parse reads a schedule in "kind[,chunk]" form, e.g. "static", "dynamic,4" or "guided,2"
func Parse(s string) (Policy, error) {
	name, chunkText, hasChunk := strings.Cut(strings.TrimSpace(s), ",")
	name = strings.ToLower(strings.TrimSpace(name))

	chunk := 0
	if hasChunk {
		n, err := strconv.Atoi(strings.TrimSpace(chunkText))
		if err != nil {
			return Policy{}, fmt.Errorf("%w: bad chunk size %q", types.ErrInvalidScheduleConfiguration, chunkText)
		}
		chunk = n
	}

	var p Policy
	switch name {
	case "static":
		p = Static()
		if hasChunk {
			p = StaticChunked(chunk)
		}
	case "dynamic":
		p = Dynamic()
		if hasChunk {
			p = DynamicChunked(chunk)
		}
	case "guided":
		p = Guided()
		if hasChunk {
			p = GuidedChunked(chunk)
		}
	case "runtime":
		if hasChunk {
			return Policy{}, fmt.Errorf("%w: runtime schedule takes no chunk size", types.ErrInvalidScheduleConfiguration)
		}
		p = Runtime()
	default:
		return Policy{}, fmt.Errorf("%w: unknown schedule %q", types.ErrInvalidScheduleConfiguration, name)
	}

	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// Source supplies the schedule used by Runtime policies
type Source interface {
	RuntimeSchedule() (Policy, error)
}

// SourceFunc adapts a function to Source
type SourceFunc func() (Policy, error)

// RuntimeSchedule implements Source
func (f SourceFunc) RuntimeSchedule() (Policy, error) {
	return f()
}

// Resolve replaces a Runtime policy with the policy read from src.
// Non-runtime policies are returned unchanged.
func Resolve(p Policy, src Source) (Policy, error) {
	if p.Kind != KindRuntime {
		return p, nil
	}
	if src == nil {
		return Policy{}, fmt.Errorf("%w: runtime schedule requested without a source", types.ErrInvalidScheduleConfiguration)
	}
	resolved, err := src.RuntimeSchedule()
	if err != nil {
		return Policy{}, fmt.Errorf("%w: %v", types.ErrInvalidScheduleConfiguration, err)
	}
	if resolved.Kind == KindRuntime {
		return Policy{}, fmt.Errorf("%w: runtime source returned runtime", types.ErrInvalidScheduleConfiguration)
	}
	if err := resolved.Validate(); err != nil {
		return Policy{}, err
	}
	return resolved, nil
}
