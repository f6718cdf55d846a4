// Package types provides core clock abstractions for time mocking
package types

import (
	"context"

	"github.com/coder/quartz"
)

// Clock provides an abstraction over time operations for testing.
// Production code uses quartz.NewReal(), tests use quartz.NewMock(t).
type Clock = quartz.Clock

// NewRealClock creates a new real clock
func NewRealClock() Clock {
	return quartz.NewReal()
}

// ContextWithClock adds a clock to context
type clockKey struct{}

// WithClock adds a clock to the context
func WithClock(ctx context.Context, clock Clock) context.Context {
	return context.WithValue(ctx, clockKey{}, clock)
}

// ClockFromContext retrieves clock from context, returns a real clock if not found
func ClockFromContext(ctx context.Context) Clock {
	if clock, ok := ctx.Value(clockKey{}).(Clock); ok {
		return clock
	}
	return NewRealClock()
}
