package pool

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	name string
	n    int
}

func TestAllocGrowsInBatches(t *testing.T) {
	p := New[item](WithBatch(4))
	assert.Equal(t, Stats{}, p.Stats())

	for i := 0; i < 5; i++ {
		idx, v, err := p.Alloc()
		require.NoError(t, err)
		assert.Equal(t, int32(i), idx)
		v.n = i
	}

	st := p.Stats()
	assert.Equal(t, 8, st.Capacity)
	assert.Equal(t, 2, st.Batches)
	assert.Equal(t, 5, st.Live)
	assert.Equal(t, 3, st.Free)
	assert.Equal(t, uint64(5), st.Allocs)
	assert.Equal(t, 4, p.Get(4).n)
}

func TestFreeReusesSlot(t *testing.T) {
	p := New[item](WithBatch(2))
	a, va, _ := p.Alloc()
	va.name = "a"
	b, _, _ := p.Alloc()

	require.True(t, p.Free(a))
	assert.False(t, p.Free(a), "double free must be rejected")
	assert.Nil(t, p.Get(a))
	assert.False(t, p.Live(a))

	c, vc, err := p.Alloc()
	require.NoError(t, err)
	assert.Equal(t, a, c, "freed slot should be handed out again")
	assert.Empty(t, vc.name, "reused slot must be zeroed")
	assert.True(t, p.Live(b))
	assert.Equal(t, 1, p.Stats().Batches, "reuse must not expand")
}

func TestLimitExhaustion(t *testing.T) {
	p := New[item](WithBatch(4), WithLimit(6))
	for i := 0; i < 6; i++ {
		_, _, err := p.Alloc()
		require.NoError(t, err, "alloc %d", i)
	}
	_, _, err := p.Alloc()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExhausted))

	st := p.Stats()
	assert.Equal(t, 6, st.Capacity)
	assert.Equal(t, 0, st.Free)

	// Freeing makes room again without growth.
	p.Free(2)
	idx, _, err := p.Alloc()
	require.NoError(t, err)
	assert.Equal(t, int32(2), idx)
}

func TestPointersStableAcrossGrowth(t *testing.T) {
	p := New[item](WithBatch(2))
	_, first, _ := p.Alloc()
	first.name = "first"
	for i := 0; i < 10; i++ {
		p.Alloc()
	}
	assert.Equal(t, "first", first.name)
	assert.Same(t, first, p.Get(0))
}

func TestEachSkipsDeadSlots(t *testing.T) {
	p := New[item](WithBatch(3))
	for i := 0; i < 7; i++ {
		_, v, _ := p.Alloc()
		v.n = i
	}
	p.Free(1)
	p.Free(5)

	var seen []int
	p.Each(func(idx int32, v *item) bool {
		seen = append(seen, v.n)
		return true
	})
	assert.Equal(t, []int{0, 2, 3, 4, 6}, seen)

	var count int
	p.Each(func(int32, *item) bool {
		count++
		return count < 2
	})
	assert.Equal(t, 2, count)
}

func TestTeardown(t *testing.T) {
	p := New[item](WithBatch(2))
	idx, _, _ := p.Alloc()
	p.Alloc()
	p.Alloc()
	p.Teardown()

	assert.Nil(t, p.Get(idx))
	assert.Equal(t, 0, p.Len())
	assert.Equal(t, 0, p.Stats().Capacity)

	_, _, err := p.Alloc()
	require.NoError(t, err)
	assert.Equal(t, 1, p.Stats().Batches)
}

func TestOutOfRangeIndex(t *testing.T) {
	p := New[item]()
	assert.Nil(t, p.Get(-1))
	assert.Nil(t, p.Get(1000))
	assert.False(t, p.Free(7))
}
