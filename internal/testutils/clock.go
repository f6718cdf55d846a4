package testutils

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"

	"github.com/jzx17/goparallel/pkg/types"
)

// NewMockClock creates a mock clock for testing
func NewMockClock(t testing.TB) *quartz.Mock {
	return quartz.NewMock(t)
}

// WithMockClock creates a context with mock clock
func WithMockClock(ctx context.Context, mock *quartz.Mock) context.Context {
	return types.WithClock(ctx, mock)
}

// WatchdogTrap intercepts the watchdog timers of a primitive on a mock clock
type WatchdogTrap struct {
	mock *quartz.Mock
	trap *quartz.Trap
}

// TrapWatchdog traps timers created with tags. Set it up before the code
// under test starts waiting.
func TrapWatchdog(mock *quartz.Mock, tags ...string) *WatchdogTrap {
	return &WatchdogTrap{mock: mock, trap: mock.Trap().NewTimer(tags...)}
}

// Fire waits until a trapped timer is armed, releases it and advances the
// clock by d so it fires
func (w *WatchdogTrap) Fire(ctx context.Context, d time.Duration) {
	call := w.trap.MustWait(ctx)
	call.MustRelease(ctx)
	w.mock.Advance(d).MustWait(ctx)
}

// Close removes the trap
func (w *WatchdogTrap) Close() {
	w.trap.Close()
}
