// Package region runs parallel regions: a team of workers forked for one
// body and joined before the call returns, with the variable scopes,
// schedule and synchronization the region declares.
package region

import (
	"context"
	"fmt"
	"log"
	"time"

	"code.hybscloud.com/atomix"

	"github.com/jzx17/goparallel/pkg/schedule"
	"github.com/jzx17/goparallel/pkg/scope"
	"github.com/jzx17/goparallel/pkg/types"
	"github.com/jzx17/goparallel/pkg/worker"
)

// Config describes one parallel region
type Config struct {
	// Workers is the team size
	Workers int

	// Scope declares the visibility of the variables the body uses (optional)
	Scope *scope.Policy

	// Schedule distributes Space across the team in RunLoop; defaults to Static
	Schedule *schedule.Policy

	// Source resolves a Runtime schedule at region entry (optional)
	Source schedule.Source

	// Space is the iteration space of RunLoop
	Space *schedule.Space

	// Ordered enables Worker.Ordered inside RunLoop
	Ordered bool

	// If is evaluated at region entry; when it reports false the region runs
	// with a single worker. A nil If always runs in parallel.
	If func() bool

	// Watchdog bounds barrier and ordered waits, zero disables it
	Watchdog time.Duration

	// Clock for time operations (optional, defaults to real clock)
	Clock types.Clock

	// Logger receives worker failures (optional)
	Logger *log.Logger
}

// Validate checks the configuration before any worker is spawned
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("%w: worker count must be positive, got %d", types.ErrInvalidScheduleConfiguration, c.Workers)
	}
	if c.Watchdog < 0 {
		return fmt.Errorf("%w: negative watchdog %v", types.ErrInvalidScheduleConfiguration, c.Watchdog)
	}
	if c.Space == nil {
		if c.Schedule != nil {
			return fmt.Errorf("%w: schedule %s without an iteration space", types.ErrInvalidScheduleConfiguration, c.Schedule)
		}
		if c.Ordered {
			return fmt.Errorf("%w: ordered region without an iteration space", types.ErrInvalidScheduleConfiguration)
		}
		return nil
	}
	if err := c.Space.Validate(); err != nil {
		return err
	}
	if c.Schedule != nil {
		if err := c.Schedule.Validate(); err != nil {
			return err
		}
		if c.Schedule.Kind == schedule.KindRuntime && c.Source == nil {
			return fmt.Errorf("%w: runtime schedule requested without a source", types.ErrInvalidScheduleConfiguration)
		}
	}
	return nil
}

// Region is a validated region description. It runs once.
type Region struct {
	config Config
	ran    atomix.Int32
	team   *worker.Team
	policy schedule.Policy
}

// New validates cfg and creates a region
func New(cfg Config) (*Region, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Clock == nil {
		cfg.Clock = types.NewRealClock()
	}
	return &Region{config: cfg}, nil
}

// Workers returns the team size the region will run with, honouring If
func (r *Region) Workers() int {
	if r.config.If != nil && !r.config.If() {
		return 1
	}
	return r.config.Workers
}

// Run forks the team, runs body once on every worker and joins.
// Failures of individual workers are returned together as a
// *types.PartialFailureError after every worker has finished.
func (r *Region) Run(ctx context.Context, body func(*worker.Worker) error) error {
	team, err := r.enter()
	if err != nil {
		return err
	}
	defer r.exit()

	return team.Run(ctx, body)
}

// RunLoop forks the team and distributes the iteration space with the
// region schedule; body runs once per index
func (r *Region) RunLoop(ctx context.Context, body func(w *worker.Worker, i int) error) error {
	if r.config.Space == nil {
		return fmt.Errorf("%w: loop without an iteration space", types.ErrInvalidScheduleConfiguration)
	}

	policy := schedule.Static()
	if r.config.Schedule != nil {
		policy = *r.config.Schedule
	}
	policy, err := schedule.Resolve(policy, r.config.Source)
	if err != nil {
		return err
	}

	team, err := r.enter()
	if err != nil {
		return err
	}
	defer r.exit()

	part, err := schedule.New(*r.config.Space, team.Size(), policy)
	if err != nil {
		return err
	}
	r.policy = policy
	return team.RunLoop(ctx, part, body)
}

// enter builds the team and prepares the scope storage
func (r *Region) enter() (*worker.Team, error) {
	if !r.ran.CompareAndSwap(0, 1) {
		return nil, fmt.Errorf("region has already run")
	}

	size := r.Workers()
	team, err := worker.NewTeam(&worker.TeamConfig{
		Size:     size,
		Ordered:  r.config.Ordered,
		Watchdog: r.config.Watchdog,
		Clock:    r.config.Clock,
		Logger:   r.config.Logger,
	})
	if err != nil {
		return nil, err
	}
	if r.config.Scope != nil {
		if err := r.config.Scope.Enter(size); err != nil {
			return nil, err
		}
	}
	r.team = team
	return team, nil
}

func (r *Region) exit() {
	if r.config.Scope != nil {
		r.config.Scope.Exit()
	}
}

// Schedule returns the schedule a loop ran with, after Runtime resolution
func (r *Region) Schedule() schedule.Policy {
	return r.policy
}

// Stats returns the team statistics of the last run, zero before it
func (r *Region) Stats() worker.TeamStats {
	if r.team == nil {
		return worker.TeamStats{}
	}
	return r.team.Stats()
}
