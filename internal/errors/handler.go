// Package errors collects worker failures of a region and routes them to
// pluggable handlers
package errors

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jzx17/goparallel/pkg/types"
)

// ErrorHandler reacts to a single worker failure
type ErrorHandler interface {
	// HandleError handles the error, returns the error to record or nil if handled
	HandleError(ctx context.Context, errCtx *ErrorContext) error

	// Name returns the name of the error handler
	Name() string
}

// ErrorContext defines context information when a worker fails
type ErrorContext struct {
	// Error that occurred
	Error *types.WorkerError

	// OperationName is the name of the construct the worker was running
	OperationName string

	// Timestamp when the error occurred
	Timestamp time.Time

	// Metadata contains additional metadata information
	Metadata map[string]interface{}
}

// NewErrorContext creates a new error context
func NewErrorContext(err *types.WorkerError, operationName string, now time.Time) *ErrorContext {
	return &ErrorContext{
		Error:         err,
		OperationName: operationName,
		Timestamp:     now,
		Metadata:      make(map[string]interface{}),
	}
}

// RecordHandler records every failure unchanged
type RecordHandler struct{}

// HandleError implements the ErrorHandler interface
func (RecordHandler) HandleError(ctx context.Context, errCtx *ErrorContext) error {
	return errCtx.Error
}

// Name returns the handler name
func (RecordHandler) Name() string {
	return "Record"
}

// LogHandler logs every failure before recording it
type LogHandler struct {
	logger *log.Logger
}

// NewLogHandler creates a log handler; a nil logger uses the standard logger
func NewLogHandler(logger *log.Logger) *LogHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &LogHandler{logger: logger}
}

// HandleError implements the ErrorHandler interface
func (h *LogHandler) HandleError(ctx context.Context, errCtx *ErrorContext) error {
	h.logger.Printf("%s: %v", errCtx.OperationName, errCtx.Error)
	if stack, ok := errCtx.Error.Context["stack_trace"]; ok {
		h.logger.Printf("%s: worker %d stack:\n%s", errCtx.OperationName, errCtx.Error.WorkerID, stack)
	}
	return errCtx.Error
}

// Name returns the handler name
func (h *LogHandler) Name() string {
	return "Log"
}

// Collector gathers the failures of one team run.
// It is safe for concurrent use by the workers of the team.
type Collector struct {
	operation string
	handler   ErrorHandler
	clock     types.Clock

	mu       sync.Mutex
	failures []*types.WorkerError
	onFirst  []func(error)
	fired    bool
}

// NewCollector creates a collector for the named construct.
// A nil handler records failures unchanged.
func NewCollector(operation string, handler ErrorHandler, clock types.Clock) *Collector {
	if handler == nil {
		handler = RecordHandler{}
	}
	if clock == nil {
		clock = types.NewRealClock()
	}
	return &Collector{
		operation: operation,
		handler:   handler,
		clock:     clock,
	}
}

// OnFirstFailure registers fn to run once, with the first recorded failure
func (c *Collector) OnFirstFailure(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onFirst = append(c.onFirst, fn)
}

// Add passes a failure through the handler and records what it returns
func (c *Collector) Add(ctx context.Context, err *types.WorkerError) {
	if err == nil {
		return
	}

	errCtx := NewErrorContext(err, c.operation, c.clock.Now())
	handled := c.handler.HandleError(ctx, errCtx)
	if handled == nil {
		return
	}

	we, ok := handled.(*types.WorkerError)
	if !ok {
		we = types.NewWorkerError(err.WorkerID, err.Iteration, handled)
	}

	c.mu.Lock()
	c.failures = append(c.failures, we)
	var callbacks []func(error)
	if !c.fired {
		c.fired = true
		callbacks = c.onFirst
	}
	c.mu.Unlock()

	for _, fn := range callbacks {
		fn(we)
	}
}

// Len returns the number of recorded failures
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.failures)
}

// Err returns nil without failures, otherwise a *types.PartialFailureError
// for a team of the given size
func (c *Collector) Err(workers int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.failures) == 0 {
		return nil
	}
	return types.NewPartialFailureError(workers, c.failures)
}

// String describes the collector state
func (c *Collector) String() string {
	return fmt.Sprintf("%s: %d failures", c.operation, c.Len())
}
