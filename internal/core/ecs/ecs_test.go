package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type health struct{ HP int }

func TestPoolGenerations(t *testing.T) {
	p := NewEntityPool()
	a := p.Create()
	assert.False(t, a.IsZero())
	assert.True(t, p.Alive(a))

	p.Destroy(a)
	assert.False(t, p.Alive(a))
	p.Destroy(a) // stale, ignored

	b := p.Create()
	assert.Equal(t, a.Index(), b.Index(), "index is recycled")
	assert.NotEqual(t, a, b, "generation differs")
	assert.Equal(t, 1, p.Live())
}

func TestStoreAddRejectsDuplicate(t *testing.T) {
	s := NewPtrComponentStore[health]()
	require.NoError(t, s.Add(1, &health{HP: 10}))
	assert.ErrorIs(t, s.Add(1, &health{HP: 20}), ErrComponentExists)
	c, ok := s.Get(1)
	require.True(t, ok)
	assert.Equal(t, 10, c.HP)
}

func TestSortedIDs(t *testing.T) {
	s := NewPtrComponentStore[health]()
	for _, id := range []EntityID{9, 3, 5} {
		s.Set(id, &health{})
	}
	assert.Equal(t, []EntityID{3, 5, 9}, s.SortedIDs())
}

func TestFlushDestroyQueueRemovesComponents(t *testing.T) {
	w := NewWorld()
	hs := NewPtrComponentStore[health]()
	w.Registry().Register("health", hs)

	var hooked []EntityID
	w.OnDestroy(func(id EntityID) {
		_, still := hs.Get(id)
		assert.True(t, still, "hook runs before components are removed")
		hooked = append(hooked, id)
	})

	id := w.CreateEntity()
	hs.Set(id, &health{HP: 1})
	w.MarkForDestruction(id)
	w.MarkForDestruction(id)
	assert.True(t, w.Pending(id))
	assert.Equal(t, []string{"health"}, w.Registry().Holding(id))

	assert.Equal(t, 1, w.FlushDestroyQueue())
	assert.False(t, w.Alive(id))
	assert.False(t, hs.Has(id))
	assert.Empty(t, w.Registry().Holding(id))
	assert.Equal(t, []EntityID{id}, hooked)
}
