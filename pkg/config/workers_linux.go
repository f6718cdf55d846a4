//go:build linux

package config

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// DefaultWorkers returns the number of CPUs the process may run on
func DefaultWorkers() int {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return runtime.NumCPU()
	}
	if n := set.Count(); n > 0 {
		return n
	}
	return runtime.NumCPU()
}
