package scope

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jzx17/goparallel/pkg/reduction"
	"github.com/jzx17/goparallel/pkg/types"
)

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected string
	}{
		{KindShared, "shared"},
		{KindPrivate, "private"},
		{KindFirstPrivate, "firstprivate"},
		{KindReduction, "reduction"},
		{Kind(42), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.kind.String())
		})
	}
}

func TestPolicy_Declare(t *testing.T) {
	a, b := 0, 0

	t.Run("kinds are reported", func(t *testing.T) {
		p, err := NewPolicy(Shared("a", &a), FirstPrivate("b", &b), Private[int]("c"))
		require.NoError(t, err)

		kind, ok := p.Kind("b")
		assert.True(t, ok)
		assert.Equal(t, KindFirstPrivate, kind)

		_, ok = p.Kind("missing")
		assert.False(t, ok)
		assert.Equal(t, "shared(a) private(c) firstprivate(b)", p.Describe())
	})

	t.Run("duplicate id is rejected", func(t *testing.T) {
		_, err := NewPolicy(Shared("a", &a), Private[int]("a"))
		assert.ErrorIs(t, err, types.ErrDuplicateScopeDeclaration)
	})

	t.Run("zero value policy accepts declarations", func(t *testing.T) {
		var p Policy
		require.NoError(t, p.Declare(Private[string]("s")))
		assert.Len(t, p.Bindings(), 1)
	})

	t.Run("declaration inside a region is rejected", func(t *testing.T) {
		p, err := NewPolicy(Shared("a", &a))
		require.NoError(t, err)
		require.NoError(t, p.Enter(2))

		assert.ErrorIs(t, p.Declare(Private[int]("late")), types.ErrScopeSealed)
		assert.ErrorIs(t, p.Enter(2), types.ErrScopeSealed)

		p.Exit()
		assert.NoError(t, p.Declare(Private[int]("late")))
	})

	t.Run("invalid team size", func(t *testing.T) {
		p, err := NewPolicy()
		require.NoError(t, err)
		assert.ErrorIs(t, p.Enter(0), types.ErrInvalidScheduleConfiguration)
	})
}

func TestFirstPrivate_CopiesNeverReachOuter(t *testing.T) {
	const workers = 4
	b := 20
	bv := FirstPrivate("b", &b)

	p, err := NewPolicy(bv)
	require.NoError(t, err)
	require.NoError(t, p.Enter(workers))

	results := make([]int, workers)
	var wg sync.WaitGroup
	for id := 0; id < workers; id++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			local := bv.Local(types.WorkerID(id))
			*local -= id
			results[id] = *local
		}(id)
	}
	wg.Wait()
	p.Exit()

	assert.Equal(t, []int{20, 19, 18, 17}, results)
	assert.Equal(t, 20, b)
}

func TestFirstPrivate_SnapshotAtEntry(t *testing.T) {
	b := 1
	bv := FirstPrivate("b", &b)
	p, err := NewPolicy(bv)
	require.NoError(t, err)

	require.NoError(t, p.Enter(2))
	b = 99
	assert.Equal(t, 1, *bv.Local(types.WorkerID(1)))
	p.Exit()
}

func TestPrivate_SlotsAreIndependent(t *testing.T) {
	av := Private[int]("a")
	p, err := NewPolicy(av)
	require.NoError(t, err)
	require.NoError(t, p.Enter(3))
	defer p.Exit()

	for id := 0; id < 3; id++ {
		*av.Local(types.WorkerID(id)) = id * 10
	}
	for id := 0; id < 3; id++ {
		assert.Equal(t, id*10, *av.Local(types.WorkerID(id)))
	}

	assert.Panics(t, func() { av.Local(types.WorkerID(3)) })
}

func TestShared_ResolvesToCaller(t *testing.T) {
	a := 10
	av := Shared("a", &a)
	p, err := NewPolicy(av)
	require.NoError(t, err)
	require.NoError(t, p.Enter(4))

	*av.Ptr() -= 3
	p.Exit()

	assert.Same(t, &a, av.Ptr())
	assert.Equal(t, 7, a)
}

func TestReduction_MergesAtExit(t *testing.T) {
	tests := []struct {
		name     string
		initial  int
		op       reduction.Op[int]
		expected int
	}{
		{"sum from zero", 0, reduction.Sum[int](), 5050},
		{"sum keeps outer value", 50, reduction.Sum[int](), 5100},
		{"max", 0, reduction.Max[int](), 100},
		{"min", 1000, reduction.Min[int](), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const workers = 7
			total := tt.initial
			rv := Reduction("total", &total, tt.op)
			p, err := NewPolicy(rv)
			require.NoError(t, err)
			require.NoError(t, p.Enter(workers))

			var wg sync.WaitGroup
			for id := 0; id < workers; id++ {
				wg.Add(1)
				go func(id int) {
					defer wg.Done()
					acc := rv.Local(types.WorkerID(id))
					for i := 1 + id; i <= 100; i += workers {
						*acc = tt.op.Combine(*acc, i)
					}
				}(id)
			}
			wg.Wait()

			assert.Equal(t, tt.initial, total, "target must not change before exit")
			p.Exit()
			assert.Equal(t, tt.expected, total)
			assert.Equal(t, tt.op.Operator, rv.Operator())
		})
	}
}

func TestReduction_SlotsStartAtIdentity(t *testing.T) {
	ok := true
	rv := Reduction("ok", &ok, reduction.And())
	p, err := NewPolicy(rv)
	require.NoError(t, err)
	require.NoError(t, p.Enter(3))

	for id := 0; id < 3; id++ {
		assert.True(t, *rv.Local(types.WorkerID(id)))
	}
	*rv.Local(types.WorkerID(2)) = false
	p.Exit()

	assert.False(t, ok)
}
