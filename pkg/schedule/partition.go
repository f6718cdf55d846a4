package schedule

import (
	"fmt"
	"iter"

	"code.hybscloud.com/atomix"

	"github.com/jzx17/goparallel/pkg/types"
)

// Space is the half-open iteration range [Start, End)
type Space struct {
	Start int
	End   int
}

// Range returns the space [start, end)
func Range(start, end int) Space {
	return Space{Start: start, End: end}
}

// Len returns the number of iterations in the space
func (s Space) Len() int {
	return s.End - s.Start
}

// Validate rejects empty and inverted spaces
func (s Space) Validate() error {
	if s.End <= s.Start {
		return fmt.Errorf("%w: empty iteration space [%d, %d)", types.ErrInvalidScheduleConfiguration, s.Start, s.End)
	}
	return nil
}

// Chunk is a contiguous sub-range [Start, End) claimed by one worker
type Chunk struct {
	Worker int
	Start  int
	End    int
}

// Len returns the number of iterations in the chunk
func (c Chunk) Len() int {
	return c.End - c.Start
}

// Indexes iterates over the chunk indexes in ascending order
func (c Chunk) Indexes() iter.Seq[int] {
	return func(yield func(int) bool) {
		for i := c.Start; i < c.End; i++ {
			if !yield(i) {
				return
			}
		}
	}
}

// Partitioner hands out the chunks of one iteration space.
// Next is safe for concurrent use by the workers of a team; for the static
// kinds each worker must only ask for its own id.
type Partitioner struct {
	space   Space
	workers int
	policy  Policy

	// static kinds: per-worker count of chunks already handed out
	claimed []atomix.Int64

	// dynamic kinds: offset of the first unclaimed iteration
	next atomix.Int64
}

// New creates a partitioner for space over workers under policy.
// Runtime policies must be resolved first, see Resolve.
func New(space Space, workers int, policy Policy) (*Partitioner, error) {
	if workers < 1 {
		return nil, fmt.Errorf("%w: worker count must be positive, got %d", types.ErrInvalidScheduleConfiguration, workers)
	}
	if err := space.Validate(); err != nil {
		return nil, err
	}
	if policy.Kind == KindRuntime {
		return nil, fmt.Errorf("%w: runtime schedule is not resolved", types.ErrInvalidScheduleConfiguration)
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if policy.Kind == KindDynamic {
		policy.Chunk = 1
	}

	return &Partitioner{
		space:   space,
		workers: workers,
		policy:  policy,
		claimed: make([]atomix.Int64, workers),
	}, nil
}

// Space returns the partitioned space
func (p *Partitioner) Space() Space {
	return p.space
}

// Workers returns the team size the space is partitioned over
func (p *Partitioner) Workers() int {
	return p.workers
}

// Policy returns the resolved policy
func (p *Partitioner) Policy() Policy {
	return p.policy
}

// Next claims the next chunk for worker, reporting false once the worker has
// nothing left to do
func (p *Partitioner) Next(worker int) (Chunk, bool) {
	if worker < 0 || worker >= p.workers {
		return Chunk{}, false
	}

	var start, end int
	var ok bool
	switch p.policy.Kind {
	case KindStatic:
		start, end, ok = p.nextBlock(worker)
	case KindStaticChunked:
		start, end, ok = p.nextRoundRobin(worker)
	case KindDynamic, KindDynamicChunked:
		start, end, ok = p.nextDynamic()
	case KindGuided:
		start, end, ok = p.nextGuided()
	}
	if !ok {
		return Chunk{}, false
	}

	return Chunk{
		Worker: worker,
		Start:  p.space.Start + start,
		End:    p.space.Start + end,
	}, true
}

// Chunks returns the lazy sequence of chunks claimed by worker
func (p *Partitioner) Chunks(worker int) iter.Seq[Chunk] {
	return func(yield func(Chunk) bool) {
		for {
			c, ok := p.Next(worker)
			if !ok || !yield(c) {
				return
			}
		}
	}
}

// nextBlock gives worker its single contiguous block; the first span%workers
// blocks are one iteration longer
func (p *Partitioner) nextBlock(worker int) (int, int, bool) {
	if p.claimed[worker].Add(1) != 1 {
		return 0, 0, false
	}

	span := p.space.Len()
	base, rem := span/p.workers, span%p.workers
	start := worker*base + min(worker, rem)
	size := base
	if worker < rem {
		size++
	}
	if size == 0 {
		return 0, 0, false
	}
	return start, start + size, true
}

// nextRoundRobin gives worker chunks worker, worker+W, worker+2W, ...
func (p *Partitioner) nextRoundRobin(worker int) (int, int, bool) {
	k := int(p.claimed[worker].Add(1)) - 1
	chunk := p.policy.Chunk
	start := (k*p.workers + worker) * chunk
	span := p.space.Len()
	if start >= span {
		return 0, 0, false
	}
	return start, min(start+chunk, span), true
}

// nextDynamic claims the next fixed-size chunk from the shared cursor
func (p *Partitioner) nextDynamic() (int, int, bool) {
	chunk := int64(p.policy.Chunk)
	span := int64(p.space.Len())

	end := p.next.Add(chunk)
	start := end - chunk
	if start >= span {
		return 0, 0, false
	}
	return int(start), int(min(end, span)), true
}

// nextGuided claims ceil(remaining/workers) iterations, never fewer than the
// policy floor unless fewer remain
func (p *Partitioner) nextGuided() (int, int, bool) {
	span := int64(p.space.Len())
	workers := int64(p.workers)
	floor := int64(p.policy.Chunk)

	for {
		start := p.next.Load()
		remaining := span - start
		if remaining <= 0 {
			return 0, 0, false
		}
		size := max((remaining+workers-1)/workers, floor)
		size = min(size, remaining)
		if p.next.CompareAndSwap(start, start+size) {
			return int(start), int(start + size), true
		}
	}
}

// Plan drains a fresh partitioner with the workers claiming in round-robin
// turn and returns the claims in order. For the static kinds this is the
// exact assignment a region would use; for the dynamic kinds it is one
// possible claim order.
func Plan(space Space, workers int, policy Policy) ([]Chunk, error) {
	p, err := New(space, workers, policy)
	if err != nil {
		return nil, err
	}

	var chunks []Chunk
	done := make([]bool, workers)
	for remaining := workers; remaining > 0; {
		for w := 0; w < workers; w++ {
			if done[w] {
				continue
			}
			c, ok := p.Next(w)
			if !ok {
				done[w] = true
				remaining--
				continue
			}
			chunks = append(chunks, c)
		}
	}
	return chunks, nil
}
