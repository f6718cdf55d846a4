// Package config holds the process-wide settings of the demos and examples:
// team size, default schedule, watchdog and random seed, read from defaults,
// the environment and command line flags.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jzx17/goparallel/pkg/schedule"
)

// Environment variables read by FromEnv
const (
	EnvWorkers      = "GOPARALLEL_NUM_WORKERS"
	EnvSchedule     = "GOPARALLEL_SCHEDULE"
	EnvWatchdog     = "GOPARALLEL_WATCHDOG"
	EnvSeed         = "GOPARALLEL_SEED"
	EnvScheduleFile = "GOPARALLEL_SCHEDULE_FILE"
)

// Config defines the settings shared by every region a program starts
type Config struct {
	// Workers is the default team size
	Workers int

	// Schedule is the policy Runtime schedules resolve to
	Schedule schedule.Policy

	// WatchdogTimeout bounds barrier and ordered waits, zero disables it
	WatchdogTimeout time.Duration

	// Seed seeds the demo data generators, zero picks a time based seed
	Seed int64

	// ScheduleFile, if set, is watched for runtime schedule changes
	ScheduleFile string
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Workers:  DefaultWorkers(),
		Schedule: schedule.Static(),
	}
}

// FromEnv returns the default configuration overridden by the environment
func FromEnv() (*Config, error) {
	return FromLookup(os.LookupEnv)
}

// FromLookup is FromEnv reading variables through lookup
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	c := DefaultConfig()

	if v, ok := lookup(EnvWorkers); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvWorkers, err)
		}
		c.Workers = n
	}
	if v, ok := lookup(EnvSchedule); ok {
		p, err := schedule.Parse(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvSchedule, err)
		}
		c.Schedule = p
	}
	if v, ok := lookup(EnvWatchdog); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvWatchdog, err)
		}
		c.WatchdogTimeout = d
	}
	if v, ok := lookup(EnvSeed); ok {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvSeed, err)
		}
		c.Seed = seed
	}
	if v, ok := lookup(EnvScheduleFile); ok {
		c.ScheduleFile = v
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.Schedule.Kind == schedule.KindRuntime {
		return fmt.Errorf("default schedule cannot itself be runtime")
	}
	if err := c.Schedule.Validate(); err != nil {
		return err
	}
	if c.WatchdogTimeout < 0 {
		return fmt.Errorf("watchdog timeout must not be negative, got %v", c.WatchdogTimeout)
	}
	return nil
}

// RegisterFlags binds the configuration to command line flags of fs,
// using the current values as defaults
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.Workers, "workers", c.Workers, "default team size")
	fs.Var(&scheduleFlag{p: &c.Schedule}, "schedule", "runtime schedule, kind[,chunk]")
	fs.DurationVar(&c.WatchdogTimeout, "watchdog", c.WatchdogTimeout, "barrier and ordered wait timeout, 0 disables")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "random seed for demo data, 0 for time based")
	fs.StringVar(&c.ScheduleFile, "schedule-file", c.ScheduleFile, "file holding the runtime schedule, reloaded on change")
}

// EffectiveSeed returns Seed, or a time based seed when it is zero
func (c *Config) EffectiveSeed() int64 {
	if c.Seed != 0 {
		return c.Seed
	}
	return time.Now().UnixNano()
}

// scheduleFlag adapts a schedule.Policy to flag.Value
type scheduleFlag struct {
	p *schedule.Policy
}

func (f *scheduleFlag) String() string {
	if f.p == nil {
		return ""
	}
	return f.p.String()
}

func (f *scheduleFlag) Set(s string) error {
	p, err := schedule.Parse(s)
	if err != nil {
		return err
	}
	*f.p = p
	return nil
}
