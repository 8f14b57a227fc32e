package fslab

import (
	"fmt"
)

// Layout contains the pre-calculated on-disk geometry: how the device's
// blocks are split between the allocation bitmap, the descriptor table and
// the data area. It is computed once per device and never changes.
type Layout struct {
	Blocks    uint64 // total device blocks (N)
	BlockSize uint64 // bytes per block (B)
	Meta      uint64 // metadata blocks (k): bitmap + descriptor table
}

// CalculateLayout computes the geometry for a device of nblocks blocks of
// blockSize bytes each. Block 0 holds the bitmap, blocks 1..k-1 the
// descriptor table and blocks k..N-1 the data area, with
//
//	k = ⌊(N·D − F·D + B) / (D + B)⌋
//
// the integer form of ⌊(N − F + B/D) / (1 + B/D)⌋ for descriptor size D and
// per-file block bound F. The geometry is unusable unless k ≥ 2, at least
// two data blocks remain, and the bitmap fits in block 0.
func CalculateLayout(nblocks, blockSize uint64) (Layout, error) {
	if nblocks == 0 || blockSize == 0 {
		return Layout{}, fmt.Errorf("%d blocks of %d bytes: %w", nblocks, blockSize, ErrGeometry)
	}

	const d = uint64(descriptorSize)
	k := (nblocks*d - MaxBlocksPerFile*d + blockSize) / (d + blockSize)

	if k < 2 || nblocks-k < 2 {
		return Layout{}, fmt.Errorf("%d blocks of %d bytes leave %d metadata blocks: %w",
			nblocks, blockSize, k, ErrGeometry)
	}
	if nblocks-k > 8*blockSize {
		return Layout{}, fmt.Errorf("%d data blocks exceed the %d bitmap bits of one block: %w",
			nblocks-k, 8*blockSize, ErrGeometry)
	}

	return Layout{
		Blocks:    nblocks,
		BlockSize: blockSize,
		Meta:      k,
	}, nil
}

// DescriptorBlocks returns the block indices holding the descriptor table,
// in order. Records are packed back to back across them, so a descriptor may
// straddle a block boundary.
func (l Layout) DescriptorBlocks() []uint64 {
	blocks := make([]uint64, 0, l.Meta-1)
	for n := uint64(1); n < l.Meta; n++ {
		blocks = append(blocks, n)
	}
	return blocks
}

// DescriptorCapacity returns how many descriptor records the table holds.
func (l Layout) DescriptorCapacity() uint64 {
	return (l.Meta - 1) * l.BlockSize / descriptorSize
}

// DataBlocks returns the number of blocks in the data area.
func (l Layout) DataBlocks() uint64 {
	return l.Blocks - l.Meta
}

// DataBlock maps bitmap bit i to its device block index.
func (l Layout) DataBlock(bit uint64) uint64 {
	return l.Meta + bit
}

// Bit maps a data-area device block back to its bitmap bit.
func (l Layout) Bit(block uint64) uint64 {
	return block - l.Meta
}

// String returns a human-readable description of the computed geometry.
func (l Layout) String() string {
	return fmt.Sprintf("layout: %d blocks of %d bytes, %d metadata (1 bitmap + %d descriptor), %d data",
		l.Blocks, l.BlockSize, l.Meta, l.Meta-1, l.DataBlocks())
}
