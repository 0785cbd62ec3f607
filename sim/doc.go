// Package sim provides the core cache-hierarchy simulation engine.
//
// # Reading Guide
//
// Start with these files to understand the engine:
//   - access.go: AccessRecord lifecycle from arrival through admission to finish
//   - layer.go: one set-associative LRU level and its write-policy branches
//   - hierarchy.go: the layer chain, admission window and inclusion enforcement
//
// # Architecture
//
// Leaf-first, the pieces are:
//   - address.go: Decode splits a 32-bit address into tag, index and offset
//   - block.go, recency_set.go: cache lines and one LRU-ordered set
//   - layer.go: a level of cache; recurses into the next level on a miss
//   - hierarchy.go: owns the layers by index and the outstanding-access window
//   - simulator.go: replays a trace in order and snapshots Metrics
//
// Sub-packages handle everything around the engine:
//   - sim/workload/: trace ingestion, generation and conversion
//   - sim/trace/: per-access path recording
//   - sim/report/: tables and CSV for plotting
//   - sim/recording/: SQLite store of run snapshots
//
// # Timing model
//
// Latency is additive per access: every layer an access touches charges its
// fixed latency, and leaving the last layer charges that latency again plus
// main memory. Overlap between accesses is modeled only through ServeTime,
// which admission raises when K accesses are already in flight.
package sim
