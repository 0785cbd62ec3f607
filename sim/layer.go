package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Layer is one level of set-associative LRU cache.
//
// A Layer can be used on its own, in which case it behaves as the last level
// in front of main memory. Once added to a Hierarchy, its neighbors are
// resolved through the hierarchy by position.
type Layer struct {
	Name          string
	BlockSize     int
	SizeBytes     int64
	Ways          int
	LatencyCycles int64
	Policy        WritePolicy
	NumSets       int

	sets []*RecencySet

	accesses          int64
	hits              int64
	evictions         int64
	writebacks        int64
	backInvalidations int64

	owner *Hierarchy // nil for a standalone layer
	level int        // position in owner
}

// NewLayer builds an empty layer. blockSize and cfg.SizeBytes must already be
// powers of two; see HierarchyConfig.Normalized.
func NewLayer(name string, cfg LayerConfig, blockSize int64, policy WritePolicy) (*Layer, error) {
	if !policy.Valid() {
		return nil, configErrorf("write-policy", policy, "must be %s or %s", WriteBackAllocate, WriteThroughNoAllocate)
	}
	if cfg.LatencyCycles < 0 {
		return nil, configErrorf("latency", cfg.LatencyCycles, "must be greater than or equal to 0")
	}
	numSets, err := numSetsFor(cfg, blockSize)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	l := &Layer{
		Name:          name,
		BlockSize:     int(blockSize),
		SizeBytes:     cfg.SizeBytes,
		Ways:          cfg.Ways,
		LatencyCycles: cfg.LatencyCycles,
		Policy:        policy,
		NumSets:       numSets,
		sets:          make([]*RecencySet, numSets),
	}
	for i := range l.sets {
		l.sets[i] = NewRecencySet(cfg.Ways)
	}
	return l, nil
}

// Lower returns the next layer away from the initiator, or nil.
func (l *Layer) Lower() *Layer {
	if l.owner == nil {
		return nil
	}
	return l.owner.Layer(l.level + 1)
}

// Upper returns the next layer toward the initiator, or nil. It is
// informational only and never consulted when serving an access.
func (l *Layer) Upper() *Layer {
	if l.owner == nil {
		return nil
	}
	return l.owner.Layer(l.level - 1)
}

// Level is the layer's position in its hierarchy; 0 when standalone.
func (l *Layer) Level() int { return l.level }

func (l *Layer) memoryLatency() int64 {
	if l.owner == nil {
		return MemoryLatency
	}
	return l.owner.memoryLatency
}

// writebackLatency is the cost of flushing a line all the way to memory,
// charged at the latency of the deepest layer.
func (l *Layer) writebackLatency() int64 {
	deepest := l
	if l.owner != nil {
		deepest = l.owner.layers[len(l.owner.layers)-1]
	}
	return deepest.LatencyCycles + l.memoryLatency()
}

func (l *Layer) decode(address uint32) AddressFields {
	f, err := Decode(address, l.NumSets, l.BlockSize)
	if err != nil {
		// geometry is validated in NewLayer
		panic(fmt.Sprintf("%s: %v", l.Name, err))
	}
	return f
}

func (l *Layer) lineAddress(address uint32) uint32 {
	return address &^ uint32(l.BlockSize-1)
}

// Access serves rec at this layer, recursing into lower layers on a miss.
// It charges the layer latency to rec and updates the layer's counters.
// An unknown access mode is rejected before anything changes.
func (l *Layer) Access(rec *AccessRecord) error {
	if !rec.Mode.Valid() {
		return configErrorf("mode", rec.Mode, `must be read ("r") or write ("w")`)
	}
	l.access(rec)
	return nil
}

func (l *Layer) access(rec *AccessRecord) {
	l.accesses++
	rec.AddTime(l.LatencyCycles)

	f := l.decode(rec.Address)
	set := l.sets[f.Index]
	step := len(rec.Path)
	rec.Path = append(rec.Path, LevelOutcome{Level: l.level})

	if blk, ok := set.Lookup(f.Tag); ok && blk.Valid {
		l.hits++
		rec.Path[step].Hit = true
		if !rec.Mode.IsWrite() {
			rec.Terminal = TerminalHit
			return
		}
		blk.Dirty = true
		if l.Policy.WriteBack() {
			rec.Terminal = TerminalHit
			return
		}
		// write-through reaches the next level on every store
		l.forward(rec)
		return
	}

	if rec.Mode.IsWrite() && !l.Policy.Allocates() {
		l.forward(rec)
		return
	}

	l.fetch(rec)
	victim := set.Put(f.Tag, Block{
		Line:  l.lineAddress(rec.Address),
		Valid: true,
		Dirty: rec.Mode.IsWrite(),
	})
	rec.Path[step].Allocated = true
	if victim != nil {
		l.evict(rec, step, victim)
	}
}

// fetch loads the missing line from below.
func (l *Layer) fetch(rec *AccessRecord) {
	if lower := l.Lower(); lower != nil {
		lower.access(rec)
		return
	}
	rec.AddTime(l.LatencyCycles + l.memoryLatency())
	rec.Terminal = TerminalMemory
}

// forward passes a store to the next level without allocating here.
func (l *Layer) forward(rec *AccessRecord) {
	if lower := l.Lower(); lower != nil {
		lower.access(rec)
		return
	}
	rec.AddTime(l.LatencyCycles + l.memoryLatency())
	rec.Terminal = TerminalWriteThrough
}

// evict finishes displacing victim: copies of the line in upper layers are
// invalidated, and a dirty line is written back under write-back, charged
// synchronously to the access that caused the eviction.
func (l *Layer) evict(rec *AccessRecord, step int, victim *Block) {
	l.evictions++
	rec.Path[step].Evicted = true

	dirty := victim.Dirty
	if l.owner != nil && l.owner.invalidateAbove(l.level, victim.Line) {
		dirty = true
	}
	logrus.Tracef("[acc %07d] %s evicted line %#x (dirty=%v)", rec.Seq, l.Name, victim.Line, dirty)

	if dirty && l.Policy.WriteBack() {
		l.writebacks++
		rec.AddTime(l.writebackLatency())
		rec.Path[step].Writeback = true
	}
}

// invalidateLine drops the line holding address, reporting whether it was
// present and whether it was dirty.
func (l *Layer) invalidateLine(address uint32) (found, dirty bool) {
	f := l.decode(address)
	blk, ok := l.sets[f.Index].Remove(f.Tag)
	if !ok || !blk.Valid {
		return false, false
	}
	l.backInvalidations++
	return true, blk.Dirty
}

// Contains reports whether the line holding address is resident, without
// touching recency order.
func (l *Layer) Contains(address uint32) bool {
	f := l.decode(address)
	for _, b := range l.sets[f.Index].ValidEntries(false) {
		if b.Tag == f.Tag {
			return true
		}
	}
	return false
}

// Invalidate empties every set and zeroes the counters.
func (l *Layer) Invalidate() {
	for _, s := range l.sets {
		s.Reset()
	}
	l.accesses = 0
	l.hits = 0
	l.evictions = 0
	l.writebacks = 0
	l.backInvalidations = 0
}

func (l *Layer) Accesses() int64 { return l.accesses }
func (l *Layer) Hits() int64     { return l.hits }
func (l *Layer) Misses() int64   { return l.accesses - l.hits }

// HitRate is hits over accesses, or 0 before the first access.
func (l *Layer) HitRate() float64 {
	if l.accesses == 0 {
		return 0.0
	}
	return float64(l.hits) / float64(l.accesses)
}

// MissRate is misses over accesses, or 0 before the first access.
func (l *Layer) MissRate() float64 {
	if l.accesses == 0 {
		return 0.0
	}
	return float64(l.Misses()) / float64(l.accesses)
}

// SetEntries returns the valid blocks of one set, least recently used first.
func (l *Layer) SetEntries(index int, dirtyOnly bool) []Block {
	return l.sets[index].ValidEntries(dirtyOnly)
}

// ValidBlocks returns the valid blocks of every set. With dirtyOnly set,
// clean blocks are skipped.
func (l *Layer) ValidBlocks(dirtyOnly bool) []Block {
	var out []Block
	for _, s := range l.sets {
		out = append(out, s.ValidEntries(dirtyOnly)...)
	}
	return out
}

// ValidLines returns the line addresses of every valid block.
func (l *Layer) ValidLines() []uint32 {
	blocks := l.ValidBlocks(false)
	lines := make([]uint32, len(blocks))
	for i, b := range blocks {
		lines[i] = b.Line
	}
	return lines
}

// Stats returns a snapshot of the layer's geometry and counters.
func (l *Layer) Stats() LayerStats {
	return LayerStats{
		Level:             l.level,
		Name:              l.Name,
		SizeBytes:         l.SizeBytes,
		BlockSizeBytes:    int64(l.BlockSize),
		Ways:              l.Ways,
		NumSets:           l.NumSets,
		LatencyCycles:     l.LatencyCycles,
		Accesses:          l.accesses,
		Hits:              l.hits,
		Misses:            l.Misses(),
		HitRate:           l.HitRate(),
		MissRate:          l.MissRate(),
		Evictions:         l.evictions,
		Writebacks:        l.writebacks,
		BackInvalidations: l.backInvalidations,
	}
}

// This method returns a human-readable string representation of a Layer.
func (l *Layer) String() string {
	return fmt.Sprintf("Layer: (Name: %s, Size: %d, Ways: %d, Sets: %d, Latency: %d, Policy: %s)",
		l.Name, l.SizeBytes, l.Ways, l.NumSets, l.LatencyCycles, l.Policy)
}
