package sim

// RecencySet is one associative set: a bounded tag -> Block map that evicts
// its least-recently-used entry when it grows past its capacity.
//
// Entries are kept on a doubly linked list ordered from least- to
// most-recently used; both Lookup and Put count as a use.
type RecencySet struct {
	capacity int
	blocks   map[uint32]*Block
	lruHead  *Block // least recently used
	lruTail  *Block // most recently used
}

// NewRecencySet returns an empty set holding at most capacity blocks.
func NewRecencySet(capacity int) *RecencySet {
	return &RecencySet{
		capacity: capacity,
		blocks:   make(map[uint32]*Block, capacity),
	}
}

func (s *RecencySet) Capacity() int { return s.capacity }

func (s *RecencySet) Len() int { return len(s.blocks) }

// appendToRecencyList inserts a block at the most-recently-used end.
func (s *RecencySet) appendToRecencyList(b *Block) {
	b.nextUsed = nil
	if s.lruTail != nil {
		// a - b - tail => a - b - tail - block
		s.lruTail.nextUsed = b
		b.prevUsed = s.lruTail
		s.lruTail = b
	} else {
		s.lruHead = b
		s.lruTail = b
		b.prevUsed = nil
	}
}

// removeFromRecencyList detaches a block from the recency list.
func (s *RecencySet) removeFromRecencyList(b *Block) {
	if b.prevUsed != nil {
		b.prevUsed.nextUsed = b.nextUsed
	} else {
		s.lruHead = b.nextUsed
	}
	if b.nextUsed != nil {
		b.nextUsed.prevUsed = b.prevUsed
	} else {
		s.lruTail = b.prevUsed
	}
	b.nextUsed = nil
	b.prevUsed = nil
}

// Lookup returns the block stored under tag and promotes it to most recently
// used. It never allocates.
func (s *RecencySet) Lookup(tag uint32) (*Block, bool) {
	b, ok := s.blocks[tag]
	if !ok {
		return nil, false
	}
	s.removeFromRecencyList(b)
	s.appendToRecencyList(b)
	return b, true
}

// Put stores block under tag as the most recently used entry, replacing any
// block already stored there. If the set then holds more than its capacity,
// the least-recently-used block is removed and returned.
func (s *RecencySet) Put(tag uint32, block Block) (evicted *Block) {
	if old, ok := s.blocks[tag]; ok {
		s.removeFromRecencyList(old)
	}
	b := &block
	b.Tag = tag
	s.blocks[tag] = b
	s.appendToRecencyList(b)

	if len(s.blocks) > s.capacity {
		victim := s.lruHead
		s.removeFromRecencyList(victim)
		delete(s.blocks, victim.Tag)
		return victim
	}
	return nil
}

// Remove drops the block stored under tag, if any, and returns it.
func (s *RecencySet) Remove(tag uint32) (*Block, bool) {
	b, ok := s.blocks[tag]
	if !ok {
		return nil, false
	}
	s.removeFromRecencyList(b)
	delete(s.blocks, tag)
	return b, true
}

// ValidEntries returns copies of the valid blocks from least to most recently
// used. With dirtyOnly set, clean blocks are skipped.
func (s *RecencySet) ValidEntries(dirtyOnly bool) []Block {
	out := make([]Block, 0, len(s.blocks))
	for b := s.lruHead; b != nil; b = b.nextUsed {
		if !b.Valid || (dirtyOnly && !b.Dirty) {
			continue
		}
		out = append(out, b.Snapshot())
	}
	return out
}

// Reset empties the set.
func (s *RecencySet) Reset() {
	s.blocks = make(map[uint32]*Block, s.capacity)
	s.lruHead = nil
	s.lruTail = nil
}
