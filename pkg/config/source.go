package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"code.hybscloud.com/atomix"
	"github.com/fsnotify/fsnotify"

	"github.com/jzx17/goparallel/pkg/schedule"
)

// ScheduleSource supplies the policy Runtime schedules resolve to.
// The policy can be replaced at any time; regions read it once at entry.
type ScheduleSource struct {
	mu      sync.RWMutex
	policy  schedule.Policy
	reloads atomix.Int64
}

// NewScheduleSource creates a source holding initial
func NewScheduleSource(initial schedule.Policy) (*ScheduleSource, error) {
	s := &ScheduleSource{}
	if err := s.Set(initial); err != nil {
		return nil, err
	}
	return s, nil
}

// RuntimeSchedule implements schedule.Source
func (s *ScheduleSource) RuntimeSchedule() (schedule.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policy, nil
}

// Set replaces the policy
func (s *ScheduleSource) Set(p schedule.Policy) error {
	if p.Kind == schedule.KindRuntime {
		return fmt.Errorf("runtime schedule cannot resolve to runtime")
	}
	if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.policy = p
	s.mu.Unlock()
	return nil
}

// Load reads a policy in "kind[,chunk]" form from the first non-comment
// line of path
func (s *ScheduleSource) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p, err := schedule.Parse(line)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := s.Set(p); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		s.reloads.Add(1)
		return nil
	}
	return fmt.Errorf("%s: no schedule found", path)
}

// Reloads returns how many times a schedule file was loaded successfully
func (s *ScheduleSource) Reloads() int64 {
	return s.reloads.Load()
}

// ScheduleWatcher reloads a ScheduleSource whenever its file changes
type ScheduleWatcher struct {
	source *ScheduleSource
	path   string
	w      *fsnotify.Watcher
	logger *log.Logger
}

// NewWatcher loads path into s and starts watching it. The watch is
// registered when NewWatcher returns; call Run to process changes.
func (s *ScheduleSource) NewWatcher(path string, logger *log.Logger) (*ScheduleWatcher, error) {
	if logger == nil {
		logger = log.Default()
	}
	path = filepath.Clean(path)
	if err := s.Load(path); err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// watch the directory so that editors replacing the file are seen
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, err
	}
	return &ScheduleWatcher{source: s, path: path, w: w, logger: logger}, nil
}

// Run processes file events until ctx is done, then closes the watcher.
// A file that fails to parse keeps the previous policy.
func (sw *ScheduleWatcher) Run(ctx context.Context) error {
	defer sw.w.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sw.w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != sw.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := sw.source.Load(sw.path); err != nil {
				sw.logger.Printf("schedule reload: %v", err)
				continue
			}
			p, _ := sw.source.RuntimeSchedule()
			sw.logger.Printf("schedule reloaded: %s", p)
		case err, ok := <-sw.w.Errors:
			if !ok {
				return nil
			}
			sw.logger.Printf("schedule watch: %v", err)
		}
	}
}

// Watch loads path into s and reloads it on every change until ctx is done
func (s *ScheduleSource) Watch(ctx context.Context, path string, logger *log.Logger) error {
	sw, err := s.NewWatcher(path, logger)
	if err != nil {
		return err
	}
	return sw.Run(ctx)
}
