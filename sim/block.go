package sim

// Block is the metadata of a single cache line.
// The zero value is an empty (invalid) line.
type Block struct {
	Tag      uint32 // tag bits of the line within its set
	Line     uint32 // line address: the byte address with the offset bits cleared
	Valid    bool   // the line holds data
	Dirty    bool   // the line was written since it was filled
	Payload  []byte // data placeholder, never interpreted by the model
	prevUsed *Block // recency list: next-older entry
	nextUsed *Block // recency list: next-newer entry
}

// Snapshot returns a copy of the block without its recency links.
func (b *Block) Snapshot() Block {
	return Block{Tag: b.Tag, Line: b.Line, Valid: b.Valid, Dirty: b.Dirty, Payload: b.Payload}
}
