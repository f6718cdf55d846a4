// Package scope declares how the variables a region body touches are seen by
// the workers of a team: shared by all, private per worker, private but
// initialised from the outer value, or private and combined at exit.
package scope

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jzx17/goparallel/pkg/types"
)

// Kind is the visibility class of a variable inside a region
type Kind int

const (
	// KindShared variables resolve to the caller's storage in every worker
	KindShared Kind = iota
	// KindPrivate variables get a fresh, uninitialised slot per worker
	KindPrivate
	// KindFirstPrivate variables get a per-worker copy of the outer value
	KindFirstPrivate
	// KindReduction variables get an identity-initialised slot per worker,
	// combined into the outer variable at exit
	KindReduction
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindShared:
		return "shared"
	case KindPrivate:
		return "private"
	case KindFirstPrivate:
		return "firstprivate"
	case KindReduction:
		return "reduction"
	default:
		return "unknown"
	}
}

// Binding is one declared variable. The concrete bindings are built with
// Shared, Private, FirstPrivate and Reduction.
type Binding interface {
	// ID returns the variable name the binding was declared with
	ID() string
	// Kind returns the visibility class
	Kind() Kind

	enter(workers int)
	exit()
}

// Policy is the set of bindings of one region.
// It is sealed once a region enters it; Exit unseals it again.
type Policy struct {
	mu       sync.Mutex
	bindings map[string]Binding
	order    []string
	workers  int
	entered  bool
}

// NewPolicy creates a policy declaring bindings in order
func NewPolicy(bindings ...Binding) (*Policy, error) {
	p := &Policy{bindings: make(map[string]Binding)}
	for _, b := range bindings {
		if err := p.Declare(b); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Declare adds a binding. A second binding for the same id is rejected.
func (p *Policy) Declare(b Binding) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.entered {
		return fmt.Errorf("%w: cannot declare %q inside a running region", types.ErrScopeSealed, b.ID())
	}
	if p.bindings == nil {
		p.bindings = make(map[string]Binding)
	}
	if prev, exists := p.bindings[b.ID()]; exists {
		return fmt.Errorf("%w: %q already declared %s", types.ErrDuplicateScopeDeclaration, b.ID(), prev.Kind())
	}
	p.bindings[b.ID()] = b
	p.order = append(p.order, b.ID())
	return nil
}

// Kind reports the declared kind of id
func (p *Policy) Kind(id string) (Kind, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.bindings[id]
	if !ok {
		return 0, false
	}
	return b.Kind(), true
}

// Bindings returns the bindings in declaration order
func (p *Policy) Bindings() []Binding {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Binding, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.bindings[id])
	}
	return out
}

// Describe renders the policy as "kind(id, ...)" clauses, sorted by kind
func (p *Policy) Describe() string {
	groups := make(map[Kind][]string)
	for _, b := range p.Bindings() {
		groups[b.Kind()] = append(groups[b.Kind()], b.ID())
	}
	kinds := make([]Kind, 0, len(groups))
	for k := range groups {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	clauses := make([]string, len(kinds))
	for i, k := range kinds {
		clauses[i] = fmt.Sprintf("%s(%s)", k, strings.Join(groups[k], ", "))
	}
	return strings.Join(clauses, " ")
}

// Enter prepares per-worker storage for a team of workers and seals the policy.
// FirstPrivate snapshots are taken here, before any worker runs.
func (p *Policy) Enter(workers int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if workers < 1 {
		return fmt.Errorf("%w: scope entered with %d workers", types.ErrInvalidScheduleConfiguration, workers)
	}
	if p.entered {
		return fmt.Errorf("%w: policy already entered", types.ErrScopeSealed)
	}
	for _, id := range p.order {
		p.bindings[id].enter(workers)
	}
	p.workers = workers
	p.entered = true
	return nil
}

// Exit drops private storage and merges reduction partials into their
// targets. It must run after every worker has returned.
func (p *Policy) Exit() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.entered {
		return
	}
	for _, id := range p.order {
		p.bindings[id].exit()
	}
	p.workers = 0
	p.entered = false
}

// Workers returns the team size the policy was entered with, 0 outside a region
func (p *Policy) Workers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.workers
}
