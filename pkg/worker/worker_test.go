package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jzx17/goparallel/pkg/types"
)

func TestWorkerState(t *testing.T) {
	assert.Equal(t, "idle", WorkerStateIdle.String())
	assert.Equal(t, "working", WorkerStateWorking.String())
	assert.Equal(t, "waiting", WorkerStateWaiting.String())
	assert.Equal(t, "stopped", WorkerStateStopped.String())
	assert.Equal(t, "failed", WorkerStateFailed.String())
	assert.Equal(t, "unknown", WorkerState(999).String())
}

func TestNewWorker(t *testing.T) {
	team, err := NewTeam(&TeamConfig{Size: 3})
	require.NoError(t, err)

	w := team.workers[2]
	assert.Equal(t, 2, w.ID())
	assert.Equal(t, 3, w.NumWorkers())
	assert.Equal(t, WorkerStateIdle, w.State())
	assert.NotNil(t, w.Context())

	var id types.Identified = w
	assert.Equal(t, 2, id.ID())
}

func TestWorker_ExecuteRecoversPanic(t *testing.T) {
	team, err := NewTeam(&TeamConfig{Size: 1})
	require.NoError(t, err)
	w := team.workers[0]

	tests := []struct {
		name     string
		panicVal interface{}
		contains string
	}{
		{"string panic", "something broke", "panic: something broke"},
		{"error panic", errors.New("bad state"), "panic: bad state"},
		{"other panic", 42, "panic: 42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := w.execute(func() error { panic(tt.panicVal) })

			var werr *types.WorkerError
			require.ErrorAs(t, err, &werr)
			assert.Equal(t, 0, werr.WorkerID)
			assert.Equal(t, -1, werr.Iteration)
			assert.Contains(t, werr.Error(), tt.contains)
			assert.Contains(t, werr.Context, "stack_trace")
			assert.Equal(t, 0, werr.Context["worker_id"])
		})
	}

	t.Run("error panic unwraps", func(t *testing.T) {
		sentinel := errors.New("sentinel")
		err := w.execute(func() error { panic(sentinel) })
		assert.ErrorIs(t, err, sentinel)
	})

	t.Run("plain error passes through", func(t *testing.T) {
		sentinel := errors.New("plain")
		assert.Same(t, sentinel, w.execute(func() error { return sentinel }))
	})
}

func TestWorker_OrderedOutsideOrderedLoop(t *testing.T) {
	team, err := NewTeam(&TeamConfig{Size: 2})
	require.NoError(t, err)

	err = team.Run(context.Background(), func(w *Worker) error {
		return w.Ordered(context.Background(), 0, func() {})
	})

	assert.ErrorIs(t, err, types.ErrOrderedSequenceMismatch)
	assert.True(t, types.IsPartialFailure(err))
}

func TestWorkerStats(t *testing.T) {
	tests := []struct {
		state  WorkerState
		failed bool
		done   bool
	}{
		{WorkerStateIdle, false, false},
		{WorkerStateWorking, false, false},
		{WorkerStateWaiting, false, false},
		{WorkerStateStopped, false, true},
		{WorkerStateFailed, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			ws := WorkerStats{State: tt.state}
			assert.Equal(t, tt.failed, ws.IsFailed())
			assert.Equal(t, tt.done, ws.IsDone())
		})
	}
}
