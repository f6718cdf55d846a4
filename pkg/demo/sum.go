package demo

import (
	"context"
	"fmt"
	"io"

	"github.com/jzx17/goparallel/pkg/primitive"
	"github.com/jzx17/goparallel/pkg/reduction"
	"github.com/jzx17/goparallel/pkg/region"
	"github.com/jzx17/goparallel/pkg/schedule"
	"github.com/jzx17/goparallel/pkg/scope"
	"github.com/jzx17/goparallel/pkg/worker"
)

// SumMode selects how the workers of SumParallel combine their values
type SumMode int

const (
	// SumReduction gives each worker a private partial merged at exit
	SumReduction SumMode = iota
	// SumCritical adds every value to a shared total inside a critical section
	SumCritical
	// SumAtomic adds every value to a shared atomic total
	SumAtomic
	// SumUnsynchronized adds every value to a shared total without any
	// synchronization. It is a data race and may lose updates.
	SumUnsynchronized
)

// String returns the string representation of SumMode
func (m SumMode) String() string {
	switch m {
	case SumReduction:
		return "reduction"
	case SumCritical:
		return "critical"
	case SumAtomic:
		return "atomic"
	case SumUnsynchronized:
		return "unsynchronized"
	default:
		return "unknown"
	}
}

// SumParallel sums values over a team of workers using mode
func SumParallel(ctx context.Context, cfg region.Config, values []int, mode SumMode) (int, error) {
	if len(values) == 0 {
		return 0, nil
	}
	space := schedule.Range(0, len(values))
	cfg.Space = &space

	total := 0
	var acc primitive.AtomicInt
	var body func(w *worker.Worker, i int) error

	switch mode {
	case SumReduction:
		rv := scope.Reduction("total", &total, reduction.Sum[int]())
		policy, err := scope.NewPolicy(rv)
		if err != nil {
			return 0, err
		}
		cfg.Scope = policy
		body = func(w *worker.Worker, i int) error {
			*rv.Local(w) += values[i]
			return nil
		}
	case SumCritical:
		body = func(w *worker.Worker, i int) error {
			w.Critical("demo.sum", func() { total += values[i] })
			return nil
		}
	case SumAtomic:
		body = func(w *worker.Worker, i int) error {
			acc.Add(int64(values[i]))
			return nil
		}
	case SumUnsynchronized:
		body = func(w *worker.Worker, i int) error {
			total += values[i]
			return nil
		}
	default:
		return 0, fmt.Errorf("unknown sum mode %d", int(mode))
	}

	r, err := region.New(cfg)
	if err != nil {
		return 0, err
	}
	if err := r.RunLoop(ctx, body); err != nil {
		return 0, err
	}
	if mode == SumAtomic {
		total = int(acc.Load())
	}
	return total, nil
}

func arraySum(ctx context.Context, env *Env, out io.Writer) error {
	values := make([]int, 100)
	for i := range values {
		values[i] = env.Intn(100)
	}
	expected := reduction.Reduce(reduction.Sum[int](), reduction.Values(values))
	fmt.Fprintf(out, "-- Sequential sum = %d\n", expected)

	for _, mode := range []SumMode{SumReduction, SumCritical, SumAtomic, SumUnsynchronized} {
		cfg := env.region(env.Config.Workers)
		policy := schedule.DynamicChunked(4)
		cfg.Schedule = &policy
		got, err := SumParallel(ctx, cfg, values, mode)
		if err != nil {
			return err
		}

		verdict := "matches"
		if got != expected {
			verdict = fmt.Sprintf("lost %d", expected-got)
		}
		fmt.Fprintf(out, "-- %-14s sum = %d (%s)\n", mode, got, verdict)
	}
	return nil
}
