//go:build !race

package demo

import "testing"

func skipRace(testing.TB) {}
