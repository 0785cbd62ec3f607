package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validBlock(line uint32) Block {
	return Block{Line: line, Valid: true}
}

func TestRecencySet_OverCapacity_EvictsFirstInserted(t *testing.T) {
	// GIVEN a set of capacity 4 filled with tags 0..3 and no lookups
	s := NewRecencySet(4)
	for tag := uint32(0); tag < 4; tag++ {
		require.Nil(t, s.Put(tag, validBlock(tag)))
	}

	// WHEN a fifth distinct tag is inserted
	evicted := s.Put(4, validBlock(4))

	// THEN exactly the first-inserted tag is evicted
	require.NotNil(t, evicted)
	assert.Equal(t, uint32(0), evicted.Tag)
	assert.Equal(t, 4, s.Len())
	_, ok := s.Lookup(0)
	assert.False(t, ok)
}

func TestRecencySet_Lookup_ProtectsFromEviction(t *testing.T) {
	// GIVEN a full set of capacity 3
	s := NewRecencySet(3)
	for tag := uint32(0); tag < 3; tag++ {
		s.Put(tag, validBlock(tag))
	}

	// WHEN the oldest tag is looked up before the next insert
	_, ok := s.Lookup(0)
	require.True(t, ok)
	evicted := s.Put(3, validBlock(3))

	// THEN the next-oldest tag is the victim instead
	require.NotNil(t, evicted)
	assert.Equal(t, uint32(1), evicted.Tag)
	_, ok = s.Lookup(0)
	assert.True(t, ok)
}

func TestRecencySet_PutExistingTag_OverwritesWithoutEviction(t *testing.T) {
	s := NewRecencySet(2)
	s.Put(1, validBlock(1))
	s.Put(2, validBlock(2))

	evicted := s.Put(1, Block{Line: 1, Valid: true, Dirty: true})

	assert.Nil(t, evicted)
	assert.Equal(t, 2, s.Len())
	b, ok := s.Lookup(1)
	require.True(t, ok)
	assert.True(t, b.Dirty)

	// tag 1 was refreshed by the overwrite, so 2 goes next
	evicted = s.Put(3, validBlock(3))
	require.NotNil(t, evicted)
	assert.Equal(t, uint32(2), evicted.Tag)
}

func TestRecencySet_SizeNeverExceedsCapacity(t *testing.T) {
	s := NewRecencySet(2)
	for i := 0; i < 100; i++ {
		s.Put(uint32(i%7), validBlock(uint32(i)))
		if i%3 == 0 {
			s.Lookup(uint32(i % 5))
		}
		require.LessOrEqual(t, s.Len(), s.Capacity())
	}
}

func TestRecencySet_ValidEntries_FiltersAndOrders(t *testing.T) {
	s := NewRecencySet(4)
	s.Put(10, Block{Line: 10, Valid: true})
	s.Put(11, Block{Line: 11, Valid: true, Dirty: true})
	s.Put(12, Block{Line: 12})
	s.Lookup(10)

	all := s.ValidEntries(false)
	require.Len(t, all, 2)
	assert.Equal(t, uint32(11), all[0].Tag, "least recently used first")
	assert.Equal(t, uint32(10), all[1].Tag)

	dirty := s.ValidEntries(true)
	require.Len(t, dirty, 1)
	assert.Equal(t, uint32(11), dirty[0].Tag)
}

func TestRecencySet_Remove(t *testing.T) {
	s := NewRecencySet(2)
	s.Put(1, validBlock(1))
	s.Put(2, validBlock(2))

	b, ok := s.Remove(1)
	require.True(t, ok)
	assert.Equal(t, uint32(1), b.Tag)
	_, ok = s.Remove(1)
	assert.False(t, ok)

	// the freed way is usable without eviction
	assert.Nil(t, s.Put(3, validBlock(3)))
	assert.Equal(t, 2, s.Len())
}

func TestRecencySet_Reset(t *testing.T) {
	s := NewRecencySet(2)
	s.Put(1, validBlock(1))
	s.Reset()
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.ValidEntries(false))
	assert.Nil(t, s.Put(1, validBlock(1)))
}
