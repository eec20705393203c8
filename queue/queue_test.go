package queue

import (
	"testing"

	"github.com/encodeous/rpl/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireUntilFull(t *testing.T) {
	q := New(3)
	for range 3 {
		require.NotNil(t, q.Acquire(state.ComponentRpl))
	}
	assert.Nil(t, q.Acquire(state.ComponentRpl))
	assert.Equal(t, 3, q.InUse())
}

func TestAcquireIsZeroed(t *testing.T) {
	q := New(1)
	p := q.Acquire(state.ComponentRpl)
	p.SetBytes([]byte{1, 2, 3})
	p.Owner = state.ComponentMedium
	q.Release(p)

	p = q.Acquire(state.ComponentIcmpv6)
	require.NotNil(t, p)
	assert.Empty(t, p.Bytes())
	assert.Equal(t, state.ComponentIcmpv6, p.Creator)
	assert.Equal(t, state.ComponentIcmpv6, p.Owner)
}

func TestRemoveAllCreatedBy(t *testing.T) {
	q := New(4)
	a := q.Acquire(state.ComponentRpl)
	b := q.Acquire(state.ComponentMedium)
	c := q.Acquire(state.ComponentRpl)
	c.Owner = state.ComponentMedium

	q.RemoveAllCreatedBy(state.ComponentRpl)
	assert.False(t, q.IsAllocated(a))
	assert.True(t, q.IsAllocated(b))
	assert.False(t, q.IsAllocated(c))
	assert.Equal(t, 1, q.InUse())
}

func TestReleaseForeignPacket(t *testing.T) {
	q := New(1)
	p := q.Acquire(state.ComponentRpl)
	q.Release(state.NewPacket())
	assert.True(t, q.IsAllocated(p))
}

func TestGenerationChangesOnReuse(t *testing.T) {
	q := New(1)
	p := q.Acquire(state.ComponentRpl)
	gen := p.Generation
	q.RemoveAllCreatedBy(state.ComponentRpl)

	again := q.Acquire(state.ComponentRpl)
	require.Same(t, p, again)
	assert.NotEqual(t, gen, again.Generation)
}
