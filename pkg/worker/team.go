package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"code.hybscloud.com/atomix"
	"golang.org/x/sync/errgroup"

	perrors "github.com/jzx17/goparallel/internal/errors"
	"github.com/jzx17/goparallel/pkg/primitive"
	"github.com/jzx17/goparallel/pkg/schedule"
	"github.com/jzx17/goparallel/pkg/types"
)

// TeamConfig defines configuration for a team
type TeamConfig struct {
	// Size is the number of workers
	Size int

	// Ordered creates the ordered gate used by Worker.Ordered in RunLoop
	Ordered bool

	// Watchdog bounds barrier and ordered waits, zero disables it
	Watchdog time.Duration

	// Clock for time operations (optional, defaults to real clock)
	Clock types.Clock

	// Logger receives worker failures (optional)
	Logger *log.Logger

	// ErrorHandler sees every worker failure before it is recorded (optional).
	// It overrides Logger.
	ErrorHandler perrors.ErrorHandler
}

// DefaultTeamConfig returns default configuration
func DefaultTeamConfig() *TeamConfig {
	return &TeamConfig{
		Size:  4,
		Clock: types.NewRealClock(),
	}
}

const (
	teamReady int32 = iota
	teamRunning
	teamDone
)

// Team is a fixed set of workers that run one body to completion and join.
// A team runs once; each region builds its own.
type Team struct {
	config  *TeamConfig
	workers []*Worker
	barrier *primitive.Barrier
	gate    *primitive.OrderedGate

	// state management
	state   atomix.Int32
	elapsed atomix.Int64
}

// NewTeam creates a new team
func NewTeam(config *TeamConfig) (*Team, error) {
	if config == nil {
		config = DefaultTeamConfig()
	}

	// parameter validation
	if config.Size <= 0 {
		return nil, fmt.Errorf("%w: team size must be positive, got %d", types.ErrInvalidScheduleConfiguration, config.Size)
	}
	if config.Watchdog < 0 {
		return nil, fmt.Errorf("watchdog must not be negative, got %v", config.Watchdog)
	}

	// Ensure clock is set
	if config.Clock == nil {
		config.Clock = types.NewRealClock()
	}

	opts := []primitive.Option{
		primitive.WithWatchdog(config.Watchdog),
		primitive.WithClock(config.Clock),
	}
	barrier, err := primitive.NewBarrier(config.Size, opts...)
	if err != nil {
		return nil, err
	}

	team := &Team{
		config:  config,
		workers: make([]*Worker, config.Size),
		barrier: barrier,
	}
	if config.Ordered {
		team.gate = primitive.NewOrderedGate(0, opts...)
	}
	for i := range team.workers {
		team.workers[i] = newWorker(i, team)
	}
	return team, nil
}

// Size returns the number of workers
func (t *Team) Size() int {
	return t.config.Size
}

// Run runs body once on every worker and waits for all of them.
// Failed or panicking workers do not stop the others; their failures are
// returned together as a *types.PartialFailureError.
func (t *Team) Run(ctx context.Context, body func(*Worker) error) error {
	if body == nil {
		return fmt.Errorf("body cannot be nil")
	}
	return t.start(ctx, "region", func(w *Worker) error {
		return w.execute(func() error { return body(w) })
	})
}

// RunLoop lets every worker claim chunks from part and run body for each
// index of its chunks in ascending order
func (t *Team) RunLoop(ctx context.Context, part *schedule.Partitioner, body func(*Worker, int) error) error {
	if body == nil {
		return fmt.Errorf("body cannot be nil")
	}
	if part == nil {
		return fmt.Errorf("%w: loop without iteration space", types.ErrInvalidScheduleConfiguration)
	}
	if part.Workers() != t.Size() {
		return fmt.Errorf("%w: schedule built for %d workers, team has %d",
			types.ErrInvalidScheduleConfiguration, part.Workers(), t.Size())
	}
	if t.gate != nil {
		t.gate.Reset(part.Space().Start)
	}

	return t.start(ctx, "loop "+part.Policy().String(), func(w *Worker) error {
		for chunk := range part.Chunks(w.id) {
			w.chunks.Add(1)
			for i := range chunk.Indexes() {
				if err := w.runIteration(ctx, i, body); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// start spawns the team and joins it
func (t *Team) start(ctx context.Context, operation string, run func(*Worker) error) error {
	if !t.state.CompareAndSwap(teamReady, teamRunning) {
		return fmt.Errorf("team has already run")
	}
	defer t.state.Store(teamDone)

	handler := t.config.ErrorHandler
	if handler == nil && t.config.Logger != nil {
		handler = perrors.NewLogHandler(t.config.Logger)
	}
	collector := perrors.NewCollector(operation, handler, t.config.Clock)

	clock := t.config.Clock
	began := clock.Now()

	var g errgroup.Group
	for _, w := range t.workers {
		w.ctx = ctx
		g.Go(func() error {
			w.setState(WorkerStateWorking)
			workerBegan := clock.Now()
			err := run(w)
			w.elapsed.Store(int64(clock.Since(workerBegan)))

			if err != nil {
				w.setState(WorkerStateFailed)
				werr := w.wrapError(err)
				// the handler only decides what is reported; peers are
				// released even when it drops the failure
				t.breakSync(werr)
				collector.Add(ctx, werr)
				return werr
			}
			w.setState(WorkerStateStopped)
			return nil
		})
	}

	err := g.Wait()
	t.elapsed.Store(int64(clock.Since(began)))
	if err != nil {
		return collector.Err(t.Size())
	}
	return nil
}

// breakSync releases every worker waiting at the barrier or ordered gate,
// since a failed worker never reaches the next barrier or ordered index
func (t *Team) breakSync(err error) {
	t.barrier.Break(err)
	if t.gate != nil {
		t.gate.Break(err)
	}
}

// wrapError attaches the worker identity to err unless it already carries it
func (w *Worker) wrapError(err error) *types.WorkerError {
	var werr *types.WorkerError
	if errors.As(err, &werr) && werr.WorkerID == w.id {
		return werr
	}
	return types.NewWorkerError(w.id, w.current, err)
}

// Barrier returns the team barrier
func (t *Team) Barrier() *primitive.Barrier {
	return t.barrier
}

// Stats gets team statistics
func (t *Team) Stats() TeamStats {
	stats := TeamStats{
		Size:     t.Size(),
		Barriers: t.barrier.Episodes(),
		Elapsed:  time.Duration(t.elapsed.Load()),
		Workers:  t.GetWorkerStats(),
	}
	for _, ws := range stats.Workers {
		stats.Iterations += ws.Iterations
		stats.Chunks += ws.Chunks
		if ws.IsFailed() {
			stats.Failed++
		}
	}
	return stats
}

// GetWorkerStats gets statistics of all Workers
func (t *Team) GetWorkerStats() []WorkerStats {
	stats := make([]WorkerStats, len(t.workers))
	for i, w := range t.workers {
		stats[i] = w.Stats()
	}
	return stats
}

// IsRunning checks if the team is running
func (t *Team) IsRunning() bool {
	return t.state.Load() == teamRunning
}

// IsDone checks if the team has joined
func (t *Team) IsDone() bool {
	return t.state.Load() == teamDone
}

// TeamStats defines team statistics
type TeamStats struct {
	Size       int
	Iterations int64
	Chunks     int64
	Barriers   int
	Failed     int
	Elapsed    time.Duration
	Workers    []WorkerStats
}

// Imbalance returns the largest per-worker iteration count divided by the
// mean, 1 for a perfectly even loop and 0 when nothing ran
func (s TeamStats) Imbalance() float64 {
	if s.Iterations == 0 || len(s.Workers) == 0 {
		return 0
	}
	var most int64
	for _, ws := range s.Workers {
		most = max(most, ws.Iterations)
	}
	mean := float64(s.Iterations) / float64(len(s.Workers))
	return float64(most) / mean
}

// FailureRate gets the share of failed workers
func (s TeamStats) FailureRate() float64 {
	if s.Size == 0 {
		return 0
	}
	return float64(s.Failed) / float64(s.Size)
}
