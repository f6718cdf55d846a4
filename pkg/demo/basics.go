package demo

import (
	"context"
	"fmt"
	"io"

	"github.com/jzx17/goparallel/pkg/primitive"
	"github.com/jzx17/goparallel/pkg/region"
	"github.com/jzx17/goparallel/pkg/scope"
	"github.com/jzx17/goparallel/pkg/worker"
)

func helloTeam(ctx context.Context, env *Env, out io.Writer) error {
	r, err := region.New(env.region(8))
	if err != nil {
		return err
	}
	return r.Run(ctx, func(w *worker.Worker) error {
		_, err := fmt.Fprintf(out, "-- Hello world. Thread #%d, threads count %d --\n", w.ID(), w.NumWorkers())
		return err
	})
}

func conditionalRegions(ctx context.Context, env *Env, out io.Writer) error {
	n1, n2 := 3, 2
	nf1, nf2 := 2, 2

	regions := []struct {
		name      string
		workers   int
		threshold int
	}{
		{"Region 1", n1, nf1},
		{"Region 2", n2, nf2},
	}

	for _, reg := range regions {
		cfg := env.region(reg.workers)
		cfg.If = func() bool { return reg.workers > reg.threshold }

		r, err := region.New(cfg)
		if err != nil {
			return err
		}
		err = r.Run(ctx, func(w *worker.Worker) error {
			_, err := fmt.Fprintf(out, "-- Hello world. Thread #%d, threads count %d. %s --\n",
				w.ID(), w.NumWorkers(), reg.name)
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func variableScopes(ctx context.Context, env *Env, out io.Writer) error {
	a, b := 10, 20
	fmt.Fprintf(out, "---- Before: a = %d, b = %d ----\n", a, b)

	// region 1: private(a) firstprivate(b)
	pa := scope.Private[int]("a")
	fb := scope.FirstPrivate("b", &b)
	policy, err := scope.NewPolicy(pa, fb)
	if err != nil {
		return err
	}
	cfg := env.region(2)
	cfg.Scope = policy
	r, err := region.New(cfg)
	if err != nil {
		return err
	}
	err = r.Run(ctx, func(w *worker.Worker) error {
		la, lb := pa.Local(w), fb.Local(w)
		*la = 0
		*la += w.ID()
		*lb += w.ID()
		_, err := fmt.Fprintf(out, "-- Thread #%d Region 1: a = %d, b = %d --\n", w.ID(), *la, *lb)
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "---- After Region 1: a = %d, b = %d ----\n", a, b)

	// region 2: shared(a) private(b), a updated atomically
	shared := primitive.NewAtomicInt(int64(a))
	sa := scope.Shared("a", shared)
	pb := scope.Private[int]("b")
	policy, err = scope.NewPolicy(sa, pb)
	if err != nil {
		return err
	}
	cfg = env.region(4)
	cfg.Scope = policy
	r, err = region.New(cfg)
	if err != nil {
		return err
	}
	err = r.Run(ctx, func(w *worker.Worker) error {
		lb := pb.Local(w)
		*lb = 0
		now := sa.Ptr().Sub(int64(w.ID()))
		*lb -= w.ID()
		_, err := fmt.Fprintf(out, "-- Thread #%d Region 2: a = %d, b = %d --\n", w.ID(), now, *lb)
		return err
	})
	if err != nil {
		return err
	}
	a = int(shared.Load())
	fmt.Fprintf(out, "---- After Region 2: a = %d, b = %d ----\n", a, b)
	return nil
}
