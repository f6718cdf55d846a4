// Package demo holds the numbered demonstration programs and selects one by id
package demo

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"sort"
	"sync"

	"github.com/jzx17/goparallel/pkg/config"
	"github.com/jzx17/goparallel/pkg/region"
	"github.com/jzx17/goparallel/pkg/schedule"
	"github.com/jzx17/goparallel/pkg/types"
)

// Env is what every demo may read: configuration, runtime schedule and logger
type Env struct {
	Config *config.Config
	Source schedule.Source
	Logger *log.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// region returns a region config carrying the environment's ambient settings
func (e *Env) region(workers int) region.Config {
	return region.Config{
		Workers:  workers,
		Source:   e.Source,
		Watchdog: e.Config.WatchdogTimeout,
		Logger:   e.Logger,
	}
}

// Intn returns a pseudo random number in [0, n) from the seeded generator.
// It is safe for concurrent use.
func (e *Env) Intn(n int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Intn(n)
}

// Demo is one numbered demonstration
type Demo struct {
	ID    int
	Title string

	env *Env
	run func(ctx context.Context, env *Env, out io.Writer) error
}

// Execute runs the demo, writing its console output to out.
// Lines written concurrently by workers never interleave.
func (d Demo) Execute(ctx context.Context, out io.Writer) error {
	return d.run(ctx, d.env, &lineWriter{w: out})
}

// Catalog maps demo ids to demos sharing one environment
type Catalog struct {
	env   *Env
	demos map[int]Demo
}

// NewCatalog creates the catalog of every demo. A nil cfg uses
// config.DefaultConfig; a nil source resolves runtime schedules to cfg.Schedule.
func NewCatalog(cfg *config.Config, source schedule.Source, logger *log.Logger) *Catalog {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if source == nil {
		fixed := cfg.Schedule
		source = schedule.SourceFunc(func() (schedule.Policy, error) { return fixed, nil })
	}
	if logger == nil {
		logger = log.Default()
	}

	env := &Env{
		Config: cfg,
		Source: source,
		Logger: logger,
		rng:    rand.New(rand.NewSource(cfg.EffectiveSeed())),
	}
	c := &Catalog{env: env, demos: make(map[int]Demo)}
	for _, d := range []Demo{
		{ID: 1, Title: "hello from a team", run: helloTeam},
		{ID: 2, Title: "conditional regions", run: conditionalRegions},
		{ID: 3, Title: "private, firstprivate and shared variables", run: variableScopes},
		{ID: 4, Title: "sections: min and max of two arrays", run: minMaxSections},
		{ID: 5, Title: "sections: matrix statistics", run: matrixStatistics},
		{ID: 6, Title: "array sum: reduction, critical, atomic and unsynchronized", run: arraySum},
		{ID: 7, Title: "schedule comparison", run: scheduleTrace},
		{ID: 8, Title: "ordered output", run: orderedOutput},
		{ID: 9, Title: "barrier phases", run: barrierPhases},
	} {
		d.env = env
		c.demos[d.ID] = d
	}
	return c
}

// Select returns the demo registered under id
func (c *Catalog) Select(id int) (Demo, error) {
	d, ok := c.demos[id]
	if !ok {
		return Demo{}, fmt.Errorf("%w: %d", types.ErrUnknownDemo, id)
	}
	return d, nil
}

// IDs returns the registered ids in ascending order
func (c *Catalog) IDs() []int {
	ids := make([]int, 0, len(c.demos))
	for id := range c.demos {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

var (
	defaultCatalog     *Catalog
	defaultCatalogOnce sync.Once
)

// Select returns demo id from a catalog built on the default configuration
func Select(id int) (Demo, error) {
	defaultCatalogOnce.Do(func() {
		defaultCatalog = NewCatalog(nil, nil, nil)
	})
	return defaultCatalog.Select(id)
}

// lineWriter serializes writes so that each Fprintf of a worker lands whole
type lineWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lineWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}
