package primitive

import (
	"context"
	"fmt"
	"sync"

	"github.com/jzx17/goparallel/pkg/types"
)

// episode is one use of the barrier; done closes when it ends
type episode struct {
	done chan struct{}
	err  error
}

// Barrier blocks each party until all parties have arrived, then releases
// them together. It is reusable: every release starts a new episode.
//
// If some party can never reach Wait the others block forever, unless a
// watchdog is configured or the barrier is broken with Break.
type Barrier struct {
	parties int
	opts    options

	mu       sync.Mutex
	arrived  int
	current  *episode
	episodes int
	broken   error
}

// NewBarrier creates a barrier for parties participants
func NewBarrier(parties int, opts ...Option) (*Barrier, error) {
	if parties < 1 {
		return nil, fmt.Errorf("barrier parties must be positive, got %d", parties)
	}
	return &Barrier{
		parties: parties,
		opts:    buildOptions(opts),
		current: &episode{done: make(chan struct{})},
	}, nil
}

// Parties returns the number of participants
func (b *Barrier) Parties() int {
	return b.parties
}

// Episodes returns how many episodes have completed
func (b *Barrier) Episodes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.episodes
}

// Wait blocks until every party has called Wait for the current episode
func (b *Barrier) Wait(ctx context.Context) error {
	b.mu.Lock()
	if b.broken != nil {
		err := b.broken
		b.mu.Unlock()
		return err
	}

	ep := b.current
	b.arrived++
	if b.arrived == b.parties {
		b.arrived = 0
		b.episodes++
		b.current = &episode{done: make(chan struct{})}
		close(ep.done)
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	timeout, stop := b.opts.watchdog("barrier", "wait")
	defer stop()

	select {
	case <-ep.done:
		return ep.err
	case <-timeout:
		return b.fail(ep, func(arrived int) error {
			return fmt.Errorf("%w: %d of %d parties arrived within %v",
				types.ErrBarrierParticipationMismatch, arrived, b.parties, b.opts.timeout)
		})
	case <-ctx.Done():
		return b.fail(ep, func(int) error { return ctx.Err() })
	}
}

// Break breaks the barrier: current waiters and every later Wait return an
// error wrapping types.ErrBarrierBroken and cause
func (b *Barrier) Break(cause error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.breakLocked(fmt.Errorf("%w: %v", types.ErrBarrierBroken, cause))
}

// Broken reports the error the barrier was broken with, if any
func (b *Barrier) Broken() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.broken
}

// fail breaks the barrier after a timed out or cancelled wait, unless the
// episode completed in the meantime
func (b *Barrier) fail(ep *episode, reason func(arrived int) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current != ep {
		// released or broken while we were giving up
		return ep.err
	}
	err := reason(b.arrived)
	b.breakLocked(err)
	return err
}

func (b *Barrier) breakLocked(err error) {
	if b.broken != nil {
		return
	}
	b.broken = err
	b.current.err = err
	close(b.current.done)
}
