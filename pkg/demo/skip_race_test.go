//go:build race

package demo

import "testing"

func skipRace(tb testing.TB) {
	tb.Helper()
	tb.Skip("skipping: unsynchronized sum is a deliberate data race")
}
