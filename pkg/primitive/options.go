// Package primitive provides the coordination primitives used inside a
// parallel region: barriers, named critical sections, atomic scalars and the
// ordered-execution gate.
package primitive

import (
	"time"

	"github.com/jzx17/goparallel/pkg/types"
)

// Option configures a blocking primitive
type Option func(*options)

type options struct {
	timeout time.Duration
	clock   types.Clock
}

// WithWatchdog bounds every wait of the primitive by timeout.
// A wait that exceeds it breaks the primitive and reports a participation or
// sequence mismatch instead of hanging. A zero timeout disables the watchdog.
func WithWatchdog(timeout time.Duration) Option {
	return func(o *options) {
		o.timeout = timeout
	}
}

// WithClock sets the clock used by the watchdog
func WithClock(clock types.Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{clock: types.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// watchdog returns the timeout channel for one wait and its stop function.
// Without a timeout the channel is nil and never fires.
func (o options) watchdog(tags ...string) (<-chan time.Time, func()) {
	if o.timeout <= 0 {
		return nil, func() {}
	}
	timer := o.clock.NewTimer(o.timeout, tags...)
	return timer.C, func() { timer.Stop() }
}
