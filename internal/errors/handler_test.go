package errors

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"

	"github.com/jzx17/goparallel/pkg/types"
)

// TestErrorContext tests basic functionality of error context
func TestErrorContext(t *testing.T) {
	werr := types.NewWorkerError(2, 7, errors.New("test error"))
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	errCtx := NewErrorContext(werr, "loop", now)

	if errCtx.Error != werr {
		t.Errorf("Expected error %v, got %v", werr, errCtx.Error)
	}
	if errCtx.OperationName != "loop" {
		t.Errorf("Expected operation name loop, got %s", errCtx.OperationName)
	}
	if !errCtx.Timestamp.Equal(now) {
		t.Errorf("Expected timestamp %v, got %v", now, errCtx.Timestamp)
	}
	if len(errCtx.Metadata) != 0 {
		t.Errorf("Expected empty metadata, got %d items", len(errCtx.Metadata))
	}
}

// TestCollectorEmpty tests that a collector without failures reports nil
func TestCollectorEmpty(t *testing.T) {
	c := NewCollector("region", nil, nil)

	if err := c.Err(4); err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("Expected 0 failures, got %d", c.Len())
	}
	c.Add(context.Background(), nil)
	if c.Len() != 0 {
		t.Errorf("Expected nil failure to be ignored, got %d", c.Len())
	}
}

// TestCollectorPartialFailure tests concurrent recording and the joined error
func TestCollectorPartialFailure(t *testing.T) {
	c := NewCollector("region", nil, quartz.NewMock(t))
	cause := errors.New("boom")

	var wg sync.WaitGroup
	for _, id := range []int{5, 1, 3} {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			c.Add(context.Background(), types.NewWorkerError(id, -1, cause))
		}(id)
	}
	wg.Wait()

	err := c.Err(8)
	if err == nil {
		t.Fatal("Expected partial failure error")
	}
	var pf *types.PartialFailureError
	if !errors.As(err, &pf) {
		t.Fatalf("Expected *PartialFailureError, got %T", err)
	}
	if got := pf.FailedWorkers(); len(got) != 3 || got[0] != 1 || got[1] != 3 || got[2] != 5 {
		t.Errorf("Expected failed workers [1 3 5], got %v", got)
	}
	if !errors.Is(err, cause) {
		t.Error("Expected errors.Is to reach the cause")
	}
	if !strings.HasPrefix(err.Error(), "3 of 8 workers failed") {
		t.Errorf("Unexpected message %q", err.Error())
	}
}

// TestCollectorOnFirstFailure tests that callbacks fire exactly once
func TestCollectorOnFirstFailure(t *testing.T) {
	c := NewCollector("region", nil, nil)

	var mu sync.Mutex
	var seen []error
	c.OnFirstFailure(func(err error) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, err)
	})

	for id := 0; id < 3; id++ {
		c.Add(context.Background(), types.NewWorkerError(id, -1, errors.New("fail")))
	}

	if len(seen) != 1 {
		t.Fatalf("Expected 1 callback, got %d", len(seen))
	}
	if c.Len() != 3 {
		t.Errorf("Expected 3 failures, got %d", c.Len())
	}
}

type ignoreHandler struct{}

func (ignoreHandler) HandleError(ctx context.Context, errCtx *ErrorContext) error { return nil }
func (ignoreHandler) Name() string                                                { return "Ignore" }

// TestCollectorHandlerMayDrop tests that a handler returning nil drops the failure
func TestCollectorHandlerMayDrop(t *testing.T) {
	c := NewCollector("region", ignoreHandler{}, nil)
	c.Add(context.Background(), types.NewWorkerError(0, -1, errors.New("ignored")))

	if err := c.Err(1); err != nil {
		t.Errorf("Expected dropped failure, got %v", err)
	}
}

// TestLogHandler tests that failures and stack traces are logged
func TestLogHandler(t *testing.T) {
	var buf bytes.Buffer
	h := NewLogHandler(log.New(&buf, "", 0))

	werr := types.NewWorkerError(1, 4, errors.New("bad input")).
		WithContext("stack_trace", "goroutine 7 [running]")
	errCtx := NewErrorContext(werr, "loop", time.Now())

	if got := h.HandleError(context.Background(), errCtx); got != werr {
		t.Errorf("Expected the worker error back, got %v", got)
	}
	out := buf.String()
	if !strings.Contains(out, "loop: worker 1 failed at iteration 4: bad input") {
		t.Errorf("Missing failure line in %q", out)
	}
	if !strings.Contains(out, "goroutine 7 [running]") {
		t.Errorf("Missing stack trace in %q", out)
	}
	if h.Name() != "Log" || (RecordHandler{}).Name() != "Record" {
		t.Error("Unexpected handler names")
	}
}
