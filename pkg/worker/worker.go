package worker

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"code.hybscloud.com/atomix"

	"github.com/jzx17/goparallel/pkg/primitive"
	"github.com/jzx17/goparallel/pkg/types"
)

// WorkerState defines the state of a Worker
type WorkerState int32

const (
	// WorkerStateIdle represents a worker that has not started its body
	WorkerStateIdle WorkerState = iota
	// WorkerStateWorking represents a worker running its body
	WorkerStateWorking
	// WorkerStateWaiting represents a worker blocked at a barrier or ordered gate
	WorkerStateWaiting
	// WorkerStateStopped represents a worker that returned normally
	WorkerStateStopped
	// WorkerStateFailed represents a worker whose body failed or panicked
	WorkerStateFailed
)

// String returns the string representation of WorkerState
func (ws WorkerState) String() string {
	switch ws {
	case WorkerStateIdle:
		return "idle"
	case WorkerStateWorking:
		return "working"
	case WorkerStateWaiting:
		return "waiting"
	case WorkerStateStopped:
		return "stopped"
	case WorkerStateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Worker is one member of a team. The body of a region receives its worker
// and uses it to find its id and to reach the team's synchronization.
type Worker struct {
	id   int
	team *Team
	ctx  context.Context

	state atomix.Int32

	// statistics
	iterations atomix.Int64
	chunks     atomix.Int64
	barriers   atomix.Int64
	elapsed    atomix.Int64

	// ordered bookkeeping for the current loop index
	current int
	entered bool
}

func newWorker(id int, team *Team) *Worker {
	return &Worker{
		id:      id,
		team:    team,
		ctx:     context.Background(),
		current: -1,
	}
}

// ID returns the worker id, 0 to NumWorkers()-1
func (w *Worker) ID() int {
	return w.id
}

// NumWorkers returns the size of the team
func (w *Worker) NumWorkers() int {
	return w.team.Size()
}

// Context returns the context the team was run with
func (w *Worker) Context() context.Context {
	return w.ctx
}

// State returns the current Worker state
func (w *Worker) State() WorkerState {
	return WorkerState(w.state.Load())
}

func (w *Worker) setState(s WorkerState) {
	w.state.Store(int32(s))
}

// Barrier blocks until every worker of the team has reached it.
// Every worker must call it the same number of times.
func (w *Worker) Barrier(ctx context.Context) error {
	w.setState(WorkerStateWaiting)
	defer w.setState(WorkerStateWorking)

	w.barriers.Add(1)
	return w.team.barrier.Wait(ctx)
}

// Critical runs fn while holding the named critical section.
// Sections with the same name exclude each other across all teams.
func (w *Worker) Critical(name string, fn func()) {
	primitive.Critical(name).Do(fn)
}

// Ordered runs fn for loop index i after the ordered statements of every
// lower index have finished. It is only valid inside an ordered loop, for the
// index the worker is currently running.
func (w *Worker) Ordered(ctx context.Context, i int, fn func()) error {
	gate := w.team.gate
	if gate == nil {
		return fmt.Errorf("%w: ordered statement outside an ordered loop", types.ErrOrderedSequenceMismatch)
	}
	if i != w.current || w.entered {
		return fmt.Errorf("%w: worker %d running index %d entered ordered index %d",
			types.ErrOrderedSequenceMismatch, w.id, w.current, i)
	}
	w.entered = true

	w.setState(WorkerStateWaiting)
	err := gate.Enter(ctx, i)
	w.setState(WorkerStateWorking)
	if err != nil {
		return err
	}
	fn()
	return gate.Leave()
}

// runIteration runs body for index i and passes i through the ordered gate
// if the body did not
func (w *Worker) runIteration(ctx context.Context, i int, body func(*Worker, int) error) error {
	w.current = i
	w.entered = false

	err := w.execute(func() error { return body(w, i) })
	w.iterations.Add(1)
	if err != nil {
		return err
	}
	if w.team.gate != nil && !w.entered {
		return w.team.gate.Skip(ctx, i)
	}
	return nil
}

// execute runs fn with panic recovery support
func (w *Worker) execute(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			// record panic information
			var buf [4096]byte
			n := runtime.Stack(buf[:], false)

			var cause error
			switch v := r.(type) {
			case error:
				cause = fmt.Errorf("panic: %w", v)
			default:
				cause = fmt.Errorf("panic: %v", v)
			}

			err = types.NewWorkerError(w.id, w.current, cause).
				WithContext("stack_trace", string(buf[:n])).
				WithContext("worker_id", w.id)
		}
	}()

	return fn()
}

// Stats gets Worker statistics
func (w *Worker) Stats() WorkerStats {
	return WorkerStats{
		ID:         w.id,
		State:      w.State(),
		Iterations: w.iterations.Load(),
		Chunks:     w.chunks.Load(),
		Barriers:   w.barriers.Load(),
		Elapsed:    time.Duration(w.elapsed.Load()),
	}
}

// WorkerStats defines Worker statistics
type WorkerStats struct {
	ID         int
	State      WorkerState
	Iterations int64
	Chunks     int64
	Barriers   int64
	Elapsed    time.Duration
}

// IsFailed checks if the worker failed
func (ws WorkerStats) IsFailed() bool {
	return ws.State == WorkerStateFailed
}

// IsDone checks if the worker has returned, successfully or not
func (ws WorkerStats) IsDone() bool {
	return ws.State == WorkerStateStopped || ws.State == WorkerStateFailed
}
