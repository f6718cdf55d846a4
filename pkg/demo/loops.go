package demo

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jzx17/goparallel/pkg/region"
	"github.com/jzx17/goparallel/pkg/schedule"
	"github.com/jzx17/goparallel/pkg/worker"
)

// Trace records which worker ran each index of a loop
type Trace struct {
	Schedule schedule.Policy
	Owners   []int
	Chunks   int64
}

// String renders the owners of consecutive indexes
func (t Trace) String() string {
	owners := make([]string, len(t.Owners))
	for i, o := range t.Owners {
		owners[i] = fmt.Sprint(o)
	}
	return fmt.Sprintf("%-12s %s  (%d chunks)", t.Schedule, strings.Join(owners, " "), t.Chunks)
}

// TraceSchedule runs an empty loop over [0, n) under policy and records the
// owner of every index
func TraceSchedule(ctx context.Context, cfg region.Config, n int, policy schedule.Policy) (Trace, error) {
	space := schedule.Range(0, n)
	cfg.Space = &space
	cfg.Schedule = &policy

	r, err := region.New(cfg)
	if err != nil {
		return Trace{}, err
	}

	owners := make([]int, n)
	err = r.RunLoop(ctx, func(w *worker.Worker, i int) error {
		// each index is written by exactly one worker
		owners[i] = w.ID()
		return nil
	})
	if err != nil {
		return Trace{}, err
	}
	return Trace{Schedule: r.Schedule(), Owners: owners, Chunks: r.Stats().Chunks}, nil
}

func scheduleTrace(ctx context.Context, env *Env, out io.Writer) error {
	const n = 16
	policies := []schedule.Policy{
		schedule.Static(),
		schedule.StaticChunked(2),
		schedule.Dynamic(),
		schedule.DynamicChunked(3),
		schedule.Guided(),
		schedule.Runtime(),
	}

	fmt.Fprintf(out, "-- %d iterations over %d threads\n", n, 4)
	for _, policy := range policies {
		trace, err := TraceSchedule(ctx, env.region(4), n, policy)
		if err != nil {
			return err
		}
		label := ""
		if policy.Kind == schedule.KindRuntime {
			label = " (runtime)"
		}
		fmt.Fprintf(out, "-- %s%s\n", trace, label)
	}
	return nil
}

func orderedOutput(ctx context.Context, env *Env, out io.Writer) error {
	const n = 8
	space := schedule.Range(0, n)
	policy := schedule.Dynamic()

	cfg := env.region(4)
	cfg.Space = &space
	cfg.Schedule = &policy
	cfg.Ordered = true
	r, err := region.New(cfg)
	if err != nil {
		return err
	}

	return r.RunLoop(ctx, func(w *worker.Worker, i int) error {
		// later iterations finish their unordered part first
		time.Sleep(time.Duration(n-i) * time.Millisecond)
		fmt.Fprintf(out, "   computed iteration %d (Thread #%d)\n", i, w.ID())
		return w.Ordered(ctx, i, func() {
			fmt.Fprintf(out, "-- ordered iteration %d (Thread #%d)\n", i, w.ID())
		})
	})
}

func barrierPhases(ctx context.Context, env *Env, out io.Writer) error {
	const phases = 3
	r, err := region.New(env.region(4))
	if err != nil {
		return err
	}

	return r.Run(ctx, func(w *worker.Worker) error {
		for phase := 1; phase <= phases; phase++ {
			fmt.Fprintf(out, "   phase %d: Thread #%d arrived\n", phase, w.ID())
			if err := w.Barrier(ctx); err != nil {
				return err
			}
			if w.ID() == 0 {
				fmt.Fprintf(out, "-- phase %d complete --\n", phase)
			}
			if err := w.Barrier(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}
