package region

import (
	"context"
	"fmt"

	"github.com/jzx17/goparallel/pkg/schedule"
	"github.com/jzx17/goparallel/pkg/worker"
)

// Section is one independent block of a sections region
type Section func(w *worker.Worker) error

// Sections runs every section exactly once, each on one worker of a team of
// the given size. A non-positive size uses one worker per section. With fewer
// workers than sections some workers run several sections one after another.
func Sections(ctx context.Context, workers int, sections ...Section) error {
	return SectionsWith(ctx, Config{Workers: workers}, sections...)
}

// SectionsWith is Sections with the remaining region settings taken from cfg.
// cfg.Space, cfg.Schedule and cfg.Ordered are set by the call.
func SectionsWith(ctx context.Context, cfg Config, sections ...Section) error {
	if len(sections) == 0 {
		return nil
	}
	for i, s := range sections {
		if s == nil {
			return fmt.Errorf("section %d is nil", i)
		}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = len(sections)
	}

	// free workers pick the next section
	space := schedule.Range(0, len(sections))
	policy := schedule.Dynamic()
	cfg.Space = &space
	cfg.Schedule = &policy
	cfg.Ordered = false

	r, err := New(cfg)
	if err != nil {
		return err
	}
	return r.RunLoop(ctx, func(w *worker.Worker, i int) error {
		return sections[i](w)
	})
}
