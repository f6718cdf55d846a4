package primitive

import (
	"context"
	"fmt"
	"sync"

	"github.com/jzx17/goparallel/pkg/types"
)

// OrderedGate lets the statements it wraps run in ascending iteration order
// while the surrounding loop runs out of order. The gate keeps the index that
// may enter next; Enter blocks until it matches, Leave advances it.
//
// Every index from the start must pass the gate exactly once, either through
// Enter/Leave or through Skip, otherwise later indexes wait forever unless a
// watchdog is configured.
type OrderedGate struct {
	opts options

	mu      sync.Mutex
	next    int
	inside  bool
	waiters map[int]chan struct{}
	broken  error
}

// NewOrderedGate creates a gate expecting start first
func NewOrderedGate(start int, opts ...Option) *OrderedGate {
	return &OrderedGate{
		opts:    buildOptions(opts),
		next:    start,
		waiters: make(map[int]chan struct{}),
	}
}

// Reset rewinds the gate to start and clears a broken state.
// It must not be called while workers use the gate.
func (g *OrderedGate) Reset(start int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.next = start
	g.inside = false
	g.broken = nil
	g.waiters = make(map[int]chan struct{})
}

// Next returns the index expected to enter next
func (g *OrderedGate) Next() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.next
}

// Enter blocks until index is the next expected index
func (g *OrderedGate) Enter(ctx context.Context, index int) error {
	g.mu.Lock()
	if g.broken != nil {
		err := g.broken
		g.mu.Unlock()
		return err
	}
	if index < g.next || (index == g.next && g.inside) {
		g.mu.Unlock()
		return fmt.Errorf("%w: index %d entered, %d expected", types.ErrOrderedSequenceMismatch, index, g.next)
	}
	if index == g.next {
		g.inside = true
		g.mu.Unlock()
		return nil
	}
	if _, waiting := g.waiters[index]; waiting {
		g.mu.Unlock()
		return fmt.Errorf("%w: index %d entered twice", types.ErrOrderedSequenceMismatch, index)
	}
	turn := make(chan struct{})
	g.waiters[index] = turn
	g.mu.Unlock()

	timeout, stop := g.opts.watchdog("ordered", "enter")
	defer stop()

	select {
	case <-turn:
	case <-timeout:
		g.giveUp(index, fmt.Errorf("%w: index %d still waiting for %d after %v",
			types.ErrOrderedSequenceMismatch, index, g.Next(), g.opts.timeout))
	case <-ctx.Done():
		g.giveUp(index, ctx.Err())
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.broken != nil {
		return g.broken
	}
	g.inside = true
	return nil
}

// Leave lets the next index in
func (g *OrderedGate) Leave() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.broken != nil {
		return g.broken
	}
	if !g.inside {
		return fmt.Errorf("%w: leave without enter at index %d", types.ErrOrderedSequenceMismatch, g.next)
	}
	g.inside = false
	g.next++
	if turn, waiting := g.waiters[g.next]; waiting {
		delete(g.waiters, g.next)
		close(turn)
	}
	return nil
}

// Skip passes index through the gate without running anything.
// It waits for its turn like Enter.
func (g *OrderedGate) Skip(ctx context.Context, index int) error {
	if err := g.Enter(ctx, index); err != nil {
		return err
	}
	return g.Leave()
}

// Do runs fn as the ordered statement of index
func (g *OrderedGate) Do(ctx context.Context, index int, fn func()) error {
	if err := g.Enter(ctx, index); err != nil {
		return err
	}
	fn()
	return g.Leave()
}

// Break releases every waiter with an error wrapping cause; later calls fail too
func (g *OrderedGate) Break(cause error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.breakLocked(fmt.Errorf("%w: gate broken: %v", types.ErrOrderedSequenceMismatch, cause))
}

// giveUp breaks the gate after a timed out or cancelled wait, unless the turn
// arrived in the meantime
func (g *OrderedGate) giveUp(index int, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.broken != nil || g.next == index {
		return
	}
	g.breakLocked(err)
}

func (g *OrderedGate) breakLocked(err error) {
	if g.broken != nil {
		return
	}
	g.broken = err
	for index, turn := range g.waiters {
		delete(g.waiters, index)
		close(turn)
	}
}
