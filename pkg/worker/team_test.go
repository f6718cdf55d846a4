package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/jzx17/goparallel/internal/errors"
	"github.com/jzx17/goparallel/pkg/schedule"
	"github.com/jzx17/goparallel/pkg/types"
)

func TestNewTeam(t *testing.T) {
	tests := []struct {
		name        string
		config      *TeamConfig
		expectError bool
		expectSize  int
	}{
		{
			name:       "nil config should use default",
			config:     nil,
			expectSize: 4,
		},
		{
			name:       "valid config",
			config:     &TeamConfig{Size: 8},
			expectSize: 8,
		},
		{
			name:        "zero size should error",
			config:      &TeamConfig{Size: 0},
			expectError: true,
		},
		{
			name:        "negative size should error",
			config:      &TeamConfig{Size: -1},
			expectError: true,
		},
		{
			name:        "negative watchdog should error",
			config:      &TeamConfig{Size: 2, Watchdog: -time.Second},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			team, err := NewTeam(tt.config)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, team)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectSize, team.Size())
			assert.False(t, team.IsRunning())
			assert.False(t, team.IsDone())
		})
	}
}

func TestTeam_RunEveryWorkerOnce(t *testing.T) {
	const size = 8
	team, err := NewTeam(&TeamConfig{Size: size})
	require.NoError(t, err)

	var seen [size]int32
	err = team.Run(context.Background(), func(w *Worker) error {
		atomic.AddInt32(&seen[w.ID()], 1)
		return nil
	})
	require.NoError(t, err)

	for id, n := range seen {
		assert.Equal(t, int32(1), n, "worker %d", id)
	}
	assert.True(t, team.IsDone())

	for _, ws := range team.GetWorkerStats() {
		assert.Equal(t, WorkerStateStopped, ws.State)
	}
}

func TestTeam_RunsOnce(t *testing.T) {
	team, err := NewTeam(&TeamConfig{Size: 2})
	require.NoError(t, err)

	noop := func(*Worker) error { return nil }
	require.NoError(t, team.Run(context.Background(), noop))
	assert.Error(t, team.Run(context.Background(), noop))
	assert.Error(t, team.Run(context.Background(), nil))
}

func TestTeam_BarrierPhases(t *testing.T) {
	const size = 5
	const phases = 4
	team, err := NewTeam(&TeamConfig{Size: size})
	require.NoError(t, err)

	var arrived [phases]int32
	err = team.Run(context.Background(), func(w *Worker) error {
		for phase := 0; phase < phases; phase++ {
			atomic.AddInt32(&arrived[phase], 1)
			if err := w.Barrier(w.Context()); err != nil {
				return err
			}
			if got := atomic.LoadInt32(&arrived[phase]); got != size {
				return fmt.Errorf("phase %d: left with %d arrivals", phase, got)
			}
		}
		return nil
	})
	require.NoError(t, err)

	stats := team.Stats()
	assert.Equal(t, phases, stats.Barriers)
	for _, ws := range stats.Workers {
		assert.Equal(t, int64(phases), ws.Barriers)
	}
}

func TestTeam_PartialFailure(t *testing.T) {
	const size = 6
	var logs bytes.Buffer
	team, err := NewTeam(&TeamConfig{Size: size, Logger: log.New(&logs, "", 0)})
	require.NoError(t, err)

	sentinel := errors.New("worker 4 gave up")
	var completed int32
	err = team.Run(context.Background(), func(w *Worker) error {
		switch w.ID() {
		case 1:
			panic("worker 1 panicked")
		case 4:
			return sentinel
		}
		atomic.AddInt32(&completed, 1)
		return nil
	})

	var pf *types.PartialFailureError
	require.ErrorAs(t, err, &pf)
	assert.Equal(t, []int{1, 4}, pf.FailedWorkers())
	assert.Equal(t, size, pf.Workers)
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, int32(size-2), atomic.LoadInt32(&completed))
	assert.Contains(t, pf.Failures[0].Context, "stack_trace")

	stats := team.Stats()
	assert.Equal(t, 2, stats.Failed)
	assert.InDelta(t, 2.0/6.0, stats.FailureRate(), 1e-9)

	assert.Contains(t, logs.String(), "worker 1 failed: panic: worker 1 panicked")
	assert.Contains(t, logs.String(), "worker 4 failed: worker 4 gave up")
}

func TestTeam_FailureBreaksBarrier(t *testing.T) {
	team, err := NewTeam(&TeamConfig{Size: 4})
	require.NoError(t, err)

	err = team.Run(context.Background(), func(w *Worker) error {
		if w.ID() == 0 {
			return errors.New("never reaches the barrier")
		}
		return w.Barrier(w.Context())
	})

	var pf *types.PartialFailureError
	require.ErrorAs(t, err, &pf)
	assert.Len(t, pf.Failures, 4)
	assert.ErrorIs(t, err, types.ErrBarrierBroken)
}

type dropHandler struct{}

func (dropHandler) HandleError(context.Context, *perrors.ErrorContext) error { return nil }
func (dropHandler) Name() string                                           { return "drop" }

func TestTeam_DroppedFailureStillBreaksSync(t *testing.T) {
	tests := []struct {
		name    string
		ordered bool
	}{
		{"barrier", false},
		{"ordered gate", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			team, err := NewTeam(&TeamConfig{Size: 3, Ordered: tt.ordered, ErrorHandler: dropHandler{}})
			require.NoError(t, err)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			var released atomic.Int32
			done := make(chan error, 1)
			go func() {
				done <- team.Run(ctx, func(w *Worker) error {
					if w.ID() == 0 {
						return errors.New("boom")
					}
					var err error
					if tt.ordered {
						err = team.gate.Enter(ctx, w.ID())
					} else {
						err = w.Barrier(ctx)
					}
					if err != nil && ctx.Err() == nil {
						released.Add(1)
					}
					return nil
				})
			}()

			select {
			case err := <-done:
				// every failure was dropped by the handler
				assert.NoError(t, err)
			case <-time.After(5 * time.Second):
				t.Fatal("team hung after a dropped worker failure")
			}
			assert.Equal(t, int32(2), released.Load())
			assert.Equal(t, 1, team.Stats().Failed)
		})
	}
}

func TestTeam_BarrierWatchdog(t *testing.T) {
	team, err := NewTeam(&TeamConfig{Size: 3, Watchdog: 20 * time.Millisecond})
	require.NoError(t, err)

	// worker 2 skips the barrier without failing
	err = team.Run(context.Background(), func(w *Worker) error {
		if w.ID() == 2 {
			return nil
		}
		return w.Barrier(w.Context())
	})

	var pf *types.PartialFailureError
	require.ErrorAs(t, err, &pf)
	assert.Equal(t, []int{0, 1}, pf.FailedWorkers())
	assert.ErrorIs(t, err, types.ErrBarrierParticipationMismatch)
}

func TestTeam_RunLoopCoversSpaceOnce(t *testing.T) {
	policies := []schedule.Policy{
		schedule.Static(),
		schedule.StaticChunked(3),
		schedule.Dynamic(),
		schedule.DynamicChunked(4),
		schedule.Guided(),
		schedule.GuidedChunked(2),
	}

	for _, policy := range policies {
		t.Run(policy.String(), func(t *testing.T) {
			const size = 4
			space := schedule.Range(5, 105)
			part, err := schedule.New(space, size, policy)
			require.NoError(t, err)

			team, err := NewTeam(&TeamConfig{Size: size})
			require.NoError(t, err)

			hits := make([]int32, space.End)
			err = team.RunLoop(context.Background(), part, func(w *Worker, i int) error {
				atomic.AddInt32(&hits[i], 1)
				return nil
			})
			require.NoError(t, err)

			for i := space.Start; i < space.End; i++ {
				assert.Equal(t, int32(1), hits[i], "index %d", i)
			}
			stats := team.Stats()
			assert.Equal(t, int64(space.Len()), stats.Iterations)
			assert.Positive(t, stats.Chunks)
			assert.GreaterOrEqual(t, stats.Imbalance(), 1.0)
		})
	}
}

func TestTeam_RunLoopRejectsForeignPartitioner(t *testing.T) {
	part, err := schedule.New(schedule.Range(0, 10), 3, schedule.Static())
	require.NoError(t, err)
	team, err := NewTeam(&TeamConfig{Size: 2})
	require.NoError(t, err)

	err = team.RunLoop(context.Background(), part, func(*Worker, int) error { return nil })
	assert.ErrorIs(t, err, types.ErrInvalidScheduleConfiguration)

	err = team.RunLoop(context.Background(), nil, func(*Worker, int) error { return nil })
	assert.ErrorIs(t, err, types.ErrInvalidScheduleConfiguration)
}

func TestTeam_RunLoopFailureRecordsIteration(t *testing.T) {
	part, err := schedule.New(schedule.Range(0, 8), 2, schedule.Static())
	require.NoError(t, err)
	team, err := NewTeam(&TeamConfig{Size: 2})
	require.NoError(t, err)

	err = team.RunLoop(context.Background(), part, func(w *Worker, i int) error {
		if i == 6 {
			panic("bad index")
		}
		return nil
	})

	var pf *types.PartialFailureError
	require.ErrorAs(t, err, &pf)
	require.Len(t, pf.Failures, 1)
	assert.Equal(t, 1, pf.Failures[0].WorkerID)
	assert.Equal(t, 6, pf.Failures[0].Iteration)
}

func TestTeam_OrderedLoop(t *testing.T) {
	const n = 8
	part, err := schedule.New(schedule.Range(0, n), 4, schedule.Dynamic())
	require.NoError(t, err)
	team, err := NewTeam(&TeamConfig{Size: 4, Ordered: true})
	require.NoError(t, err)

	var mu sync.Mutex
	var order []int
	err = team.RunLoop(context.Background(), part, func(w *Worker, i int) error {
		// later indexes finish their unordered part first
		time.Sleep(time.Duration(n-i) * time.Millisecond)
		if i%3 == 0 {
			// iterations without an ordered statement must not stall the rest
			return nil
		}
		return w.Ordered(w.Context(), i, func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 4, 5, 7}, order)
}

func TestTeam_OrderedWrongIndex(t *testing.T) {
	part, err := schedule.New(schedule.Range(0, 4), 1, schedule.Static())
	require.NoError(t, err)
	team, err := NewTeam(&TeamConfig{Size: 1, Ordered: true})
	require.NoError(t, err)

	err = team.RunLoop(context.Background(), part, func(w *Worker, i int) error {
		return w.Ordered(w.Context(), i+1, func() {})
	})
	assert.ErrorIs(t, err, types.ErrOrderedSequenceMismatch)
}

func TestTeam_MockClockElapsed(t *testing.T) {
	mClock := quartz.NewMock(t)
	team, err := NewTeam(&TeamConfig{Size: 2, Clock: mClock})
	require.NoError(t, err)

	require.NoError(t, team.Run(context.Background(), func(*Worker) error { return nil }))
	// the mock clock never moves by itself
	assert.Equal(t, time.Duration(0), team.Stats().Elapsed)
}

func TestTeamStats_Imbalance(t *testing.T) {
	tests := []struct {
		name     string
		stats    TeamStats
		expected float64
	}{
		{"empty", TeamStats{}, 0},
		{
			"even",
			TeamStats{Iterations: 8, Workers: []WorkerStats{{Iterations: 4}, {Iterations: 4}}},
			1,
		},
		{
			"skewed",
			TeamStats{Iterations: 8, Workers: []WorkerStats{{Iterations: 6}, {Iterations: 2}}},
			1.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, tt.stats.Imbalance(), 1e-9)
		})
	}
}
