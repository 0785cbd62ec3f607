package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Hierarchy is an ordered chain of layers, index 0 closest to the initiator,
// plus the outstanding-access window that decides when a new access has to
// wait for an earlier one.
//
// Neighbors are resolved by index, so layers hold no pointers to each other.
// The hierarchy also keeps the chain inclusive: when a layer evicts a line,
// every copy above it is invalidated.
type Hierarchy struct {
	layers           []*Layer
	outstandingLimit int
	memoryLatency    int64

	// window holds accesses still considered in flight
	window []*AccessRecord
}

// NewCacheHierarchy returns a hierarchy with no layers. outstandingLimit is K:
// the number of accesses allowed in flight before a new one stalls; 0 makes
// the hierarchy fully sequential.
func NewCacheHierarchy(outstandingLimit int) (*Hierarchy, error) {
	if outstandingLimit < 0 {
		return nil, configErrorf("max-misses", outstandingLimit, "must be greater than or equal to 0")
	}
	return &Hierarchy{
		outstandingLimit: outstandingLimit,
		memoryLatency:    MemoryLatency,
	}, nil
}

// NewHierarchy builds the layers L0..Ln-1 described by cfg. Sizes are rounded
// up to the next power of two first.
func NewHierarchy(cfg HierarchyConfig) (*Hierarchy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.Normalized()

	h, err := NewCacheHierarchy(cfg.OutstandingAccessLimit)
	if err != nil {
		return nil, err
	}
	h.memoryLatency = cfg.MemoryLatencyCycles
	for i, lc := range cfg.Layers {
		layer, err := NewLayer(fmt.Sprintf("L%d", i), lc, cfg.BlockSizeBytes, cfg.WritePolicy)
		if err != nil {
			return nil, err
		}
		if err := h.AddLayer(layer); err != nil {
			return nil, err
		}
	}
	logrus.Debugf("Built hierarchy: %d layers, block=%dB, policy=%s, K=%d",
		len(h.layers), cfg.BlockSizeBytes, cfg.WritePolicy, cfg.OutstandingAccessLimit)
	return h, nil
}

// AddLayer appends layer below the current last layer. All layers of a
// hierarchy share one block size and one write policy.
func (h *Hierarchy) AddLayer(layer *Layer) error {
	if layer.owner != nil {
		return fmt.Errorf("%w: layer %s already belongs to a hierarchy", ErrIllegalState, layer.Name)
	}
	if len(h.layers) > 0 {
		first := h.layers[0]
		if layer.BlockSize != first.BlockSize {
			return configErrorf("block-size", layer.BlockSize, "must match the hierarchy block size %d", first.BlockSize)
		}
		if layer.Policy != first.Policy {
			return configErrorf("write-policy", layer.Policy, "must match the hierarchy write policy %s", first.Policy)
		}
	}
	layer.owner = h
	layer.level = len(h.layers)
	h.layers = append(h.layers, layer)
	return nil
}

// Layer returns the layer at index i, or nil when out of range.
func (h *Hierarchy) Layer(i int) *Layer {
	if i < 0 || i >= len(h.layers) {
		return nil
	}
	return h.layers[i]
}

// Layers returns the layers in order, closest to the initiator first.
func (h *Hierarchy) Layers() []*Layer {
	return append([]*Layer(nil), h.layers...)
}

func (h *Hierarchy) NumLayers() int { return len(h.layers) }

func (h *Hierarchy) OutstandingLimit() int { return h.outstandingLimit }

func (h *Hierarchy) MemoryLatency() int64 { return h.memoryLatency }

// InFlight is the number of accesses currently tracked by the window.
func (h *Hierarchy) InFlight() int { return len(h.window) }

// Access admits rec, serves it starting at layer 0 and records it as in
// flight. On return rec.ServeTime and rec.ExecutionTime are final.
func (h *Hierarchy) Access(rec *AccessRecord) error {
	if len(h.layers) == 0 {
		return fmt.Errorf("%w: cache hierarchy is empty, cannot perform %v", ErrIllegalState, rec)
	}
	if !rec.Mode.Valid() {
		return configErrorf("mode", rec.Mode, `must be read ("r") or write ("w")`)
	}

	h.adjustServeTime(rec)
	h.layers[0].access(rec)
	h.window = append(h.window, rec)

	logrus.Debugf("[acc %07d] %s %#x arrival=%d serve=%d exec=%d terminal=%s",
		rec.Seq, rec.Mode, rec.Address, rec.ArrivalTime, rec.ServeTime, rec.ExecutionTime, rec.Terminal)
	return nil
}

// adjustServeTime applies admission. Accesses that finished before rec arrived
// leave the window. If the window is still at the limit, rec waits until the
// earliest-finishing tracked access is done, and that access leaves the window.
func (h *Hierarchy) adjustServeTime(rec *AccessRecord) {
	pending := h.window[:0]
	earliest := -1
	for _, p := range h.window {
		if p.FinishTime() < rec.ArrivalTime {
			continue
		}
		pending = append(pending, p)
		if earliest < 0 || p.FinishTime() < pending[earliest].FinishTime() {
			earliest = len(pending) - 1
		}
	}
	clear(h.window[len(pending):])
	h.window = pending

	if earliest >= 0 && len(h.window) >= h.outstandingLimit {
		first := h.window[earliest]
		rec.DelayUntil(first.FinishTime() + 1)
		h.window = append(h.window[:earliest], h.window[earliest+1:]...)
		logrus.Tracef("[acc %07d] stalled behind acc %d until %d", rec.Seq, first.Seq, rec.ServeTime)
	}
}

// invalidateAbove removes line from every layer above level and reports
// whether any removed copy was dirty.
func (h *Hierarchy) invalidateAbove(level int, line uint32) (dirty bool) {
	for i := 0; i < level; i++ {
		if _, d := h.layers[i].invalidateLine(line); d {
			dirty = true
		}
	}
	return dirty
}

// Invalidate empties every layer, zeroes all counters and clears the window,
// leaving the configuration intact for another replay.
func (h *Hierarchy) Invalidate() {
	for _, l := range h.layers {
		l.Invalidate()
	}
	h.window = nil
}

// Stats returns a snapshot of every layer, in order.
func (h *Hierarchy) Stats() []LayerStats {
	out := make([]LayerStats, len(h.layers))
	for i, l := range h.layers {
		out[i] = l.Stats()
	}
	return out
}
