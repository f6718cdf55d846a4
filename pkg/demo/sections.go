package demo

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jzx17/goparallel/pkg/region"
	"github.com/jzx17/goparallel/pkg/worker"
)

func minMaxSections(ctx context.Context, env *Env, out io.Writer) error {
	a := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	b := []int{100, 29, 3218, 327, 3216, 255, 64, 663, 862, 1}

	targetA, targetB := 10, 1
	err := region.SectionsWith(ctx, env.region(2),
		func(*worker.Worker) error {
			for _, v := range a {
				targetA = min(targetA, v)
			}
			return nil
		},
		func(*worker.Worker) error {
			for _, v := range b {
				targetB = max(targetB, v)
			}
			return nil
		},
	)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(out, "Min a[] = %d, max b[] = %d\n", targetA, targetB)
	return err
}

// Matrix is a dense row-major integer matrix
type Matrix [][]int

// RandomMatrix fills a rows x cols matrix with values in [0, maxValue)
func (e *Env) RandomMatrix(rows, cols, maxValue int) Matrix {
	m := make(Matrix, rows)
	for i := range m {
		m[i] = make([]int, cols)
		for j := range m[i] {
			m[i][j] = e.Intn(maxValue)
		}
	}
	return m
}

// String renders the matrix one "| v v ... |" line per row
func (m Matrix) String() string {
	var b strings.Builder
	for _, row := range m {
		b.WriteString("| ")
		for _, v := range row {
			fmt.Fprintf(&b, "%d ", v)
		}
		b.WriteString("|\n")
	}
	return b.String()
}

// Mean returns the arithmetic mean of every element
func (m Matrix) Mean() float64 {
	sum, count := 0, 0
	for _, row := range m {
		for _, v := range row {
			sum += v
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return float64(sum) / float64(count)
}

// Bounds returns the smallest and largest element
func (m Matrix) Bounds() (lo, hi int) {
	first := true
	for _, row := range m {
		for _, v := range row {
			if first {
				lo, hi, first = v, v, false
				continue
			}
			lo, hi = min(lo, v), max(hi, v)
		}
	}
	return lo, hi
}

// CountMultiples returns how many elements are multiples of divider
func (m Matrix) CountMultiples(divider int) int {
	count := 0
	for _, row := range m {
		for _, v := range row {
			if v%divider == 0 {
				count++
			}
		}
	}
	return count
}

func matrixStatistics(ctx context.Context, env *Env, out io.Writer) error {
	m := env.RandomMatrix(6, 8, 10)
	fmt.Fprintf(out, "%s\n", m)

	// one worker per section
	return region.SectionsWith(ctx, env.region(0),
		func(w *worker.Worker) error {
			_, err := fmt.Fprintf(out, "-- Arithmetic mean = %.4f (Thread #%d)\n", m.Mean(), w.ID())
			return err
		},
		func(w *worker.Worker) error {
			lo, hi := m.Bounds()
			_, err := fmt.Fprintf(out, "-- Maximum value = %d (Thread #%d)\n-- Minimum value = %d (Thread #%d)\n",
				hi, w.ID(), lo, w.ID())
			return err
		},
		func(w *worker.Worker) error {
			_, err := fmt.Fprintf(out, "-- Multiples of three = %d (Thread #%d)\n", m.CountMultiples(3), w.ID())
			return err
		},
	)
}
