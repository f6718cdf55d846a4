/*
Package worker provides the fixed-size worker team that executes a parallel
region.

# Overview

A Team owns a fixed number of workers, a reusable barrier and, for ordered
loops, an ordered gate. Running a team forks one goroutine per worker, runs
the body on each and joins them all before returning:

  - Run executes a body once per worker
  - RunLoop lets the workers claim chunks of an iteration space from a
    schedule.Partitioner and runs the body once per index

A team runs exactly once.

# Worker

The body receives its *Worker, which carries:
  - ID and NumWorkers, the worker's place in the team
  - Barrier, the team-wide barrier
  - Critical, the process-wide named critical sections
  - Ordered, the ordered statement of an ordered loop

Any value with an ID() int method can index scope storage, so a *Worker is
passed directly to scope.PrivateVar.Local and friends.

# Error Handling

A body that returns an error or panics fails only its own worker. Panics are
recovered into a *types.WorkerError whose context carries "stack_trace" and
"worker_id". On the first failure the barrier and the ordered gate are broken
so that the remaining workers cannot wait forever for the failed one. After
the join all failures are returned together as a *types.PartialFailureError.

# Statistics

Team.Stats reports per-worker iterations, claimed chunks, barrier arrivals
and elapsed time, measured with the configured clock.

# Usage Examples

	team, err := worker.NewTeam(&worker.TeamConfig{Size: 4})
	if err != nil {
		log.Fatal(err)
	}

	err = team.Run(ctx, func(w *worker.Worker) error {
		fmt.Printf("hello from %d of %d\n", w.ID(), w.NumWorkers())
		return w.Barrier(ctx)
	})
*/
package worker
