package sim

import "math/bits"

// AddressBits is the fixed width of every simulated address.
const AddressBits = 32

// AddressFields is an address split into its tag, set index and byte offset.
type AddressFields struct {
	Tag    uint32
	Index  uint32
	Offset uint32
}

// bitsRequired returns ceil(log2(n)) for n >= 1.
func bitsRequired(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n - 1))
}

func isPowerOfTwo(n int64) bool {
	return n > 0 && n&(n-1) == 0
}

// NextPowerOfTwo rounds n up to the nearest power of two. Values below one
// round to one.
func NextPowerOfTwo(n int64) int64 {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len64(uint64(n-1))
}

// Decode splits address into tag, index and offset for a cache with numSets
// sets of blockSize-byte lines. Both must be powers of two, and together they
// must fit in the 32-bit address space.
func Decode(address uint32, numSets, blockSize int) (AddressFields, error) {
	if !isPowerOfTwo(int64(blockSize)) {
		return AddressFields{}, configErrorf("block-size", blockSize, "must be a power of two")
	}
	if !isPowerOfTwo(int64(numSets)) {
		return AddressFields{}, configErrorf("num-sets", numSets, "must be a power of two")
	}
	offsetBits := bitsRequired(blockSize)
	indexBits := bitsRequired(numSets)
	tagBits := AddressBits - offsetBits - indexBits
	if tagBits < 0 {
		return AddressFields{}, configErrorf("num-sets", numSets,
			"%d sets of %d bytes exceed the %d-bit address space", numSets, blockSize, AddressBits)
	}

	// shifts of AddressBits or more yield zero, which covers tagBits == 0
	return AddressFields{
		Tag:    address >> (offsetBits + indexBits),
		Index:  (address >> offsetBits) & uint32(numSets-1),
		Offset: address & uint32(blockSize-1),
	}, nil
}

// Assemble is the inverse of Decode.
func Assemble(f AddressFields, numSets, blockSize int) uint32 {
	offsetBits := bitsRequired(blockSize)
	indexBits := bitsRequired(numSets)
	return f.Tag<<(offsetBits+indexBits) | f.Index<<offsetBits | f.Offset
}
