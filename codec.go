package fslab

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// The codec views an ordered list of block indices as one contiguous byte
// sequence and provides byte-span and fixed-size-record access across it.
// Both the descriptor table (blocks 1..k-1) and ordinary files (a
// descriptor's live block pointers) are read and written through the same
// primitives, which keeps records that straddle block boundaries correct in
// exactly one place.

// position addresses a byte inside a block list: the ordinal of the block
// within the list (not the device block index) and the byte within it.
type position struct {
	Block  uint64
	Offset uint64
}

// positionAt converts a byte offset into the concatenated data of a block
// list to a position.
func positionAt(off, blockSize uint64) position {
	return position{Block: off / blockSize, Offset: off % blockSize}
}

// abs returns the byte offset this position addresses.
func (p position) abs(blockSize uint64) uint64 {
	return p.Block*blockSize + p.Offset
}

// readBytes copies bytes starting at pos from the concatenated data of
// blocks into dst, stopping at the end of the list, and returns the count.
func readBytes(dev *BlockDevice, blocks []uint64, pos position, dst []byte) int {
	bs := dev.BlockSize()
	total := uint64(len(blocks)) * bs
	off := pos.abs(bs)
	if off >= total {
		return 0
	}

	n := min64(uint64(len(dst)), total-off)
	buf := make([]byte, bs)

	var copied uint64
	for copied < n {
		cur := off + copied
		ordinal := cur / bs
		in := cur % bs
		chunk := min64(bs-in, n-copied)

		dev.ReadBlock(blocks[ordinal], buf)
		copy(dst[copied:copied+chunk], buf[in:in+chunk])
		copied += chunk
	}

	return int(n)
}

// writeBytes copies src into the concatenated data of blocks starting at
// pos, stopping at the end of the list, and returns the count. Partial
// blocks are read-modify-written. A pos past the end of the list writes
// nothing and returns 0.
func writeBytes(dev *BlockDevice, blocks []uint64, pos position, src []byte) int {
	bs := dev.BlockSize()
	total := uint64(len(blocks)) * bs
	off := pos.abs(bs)
	if off >= total {
		return 0
	}

	n := min64(uint64(len(src)), total-off)
	buf := make([]byte, bs)

	var copied uint64
	for copied < n {
		cur := off + copied
		ordinal := cur / bs
		in := cur % bs
		chunk := min64(bs-in, n-copied)

		if chunk == bs {
			dev.WriteBlock(blocks[ordinal], src[copied:copied+chunk])
		} else {
			dev.ReadBlock(blocks[ordinal], buf)
			copy(buf[in:in+chunk], src[copied:copied+chunk])
			dev.WriteBlock(blocks[ordinal], buf)
		}
		copied += chunk
	}

	return int(n)
}

// findRecord scans fixed-size records packed from byte offset 0 across
// blocks and returns the position of the first record whose raw bytes
// satisfy pred. The predicate may carry state (the directory scan bounds
// itself by the root file's logical length this way). Returns false when the
// list is exhausted without a match.
func findRecord(dev *BlockDevice, blocks []uint64, size uint64, pred func([]byte) bool) (position, bool) {
	bs := dev.BlockSize()
	total := uint64(len(blocks)) * bs
	buf := make([]byte, size)

	for off := uint64(0); off+size <= total; off += size {
		pos := positionAt(off, bs)
		readBytes(dev, blocks, pos, buf)
		if pred(buf) {
			return pos, true
		}
	}

	return position{}, false
}

// readRecord stages the record's raw bytes and decodes them into v.
func readRecord(dev *BlockDevice, blocks []uint64, pos position, size uint64, v any) error {
	buf := make([]byte, size)
	if n := readBytes(dev, blocks, pos, buf); uint64(n) < size {
		return fmt.Errorf("record at block %d offset %d: short read of %d bytes", pos.Block, pos.Offset, n)
	}
	return decodeRecord(buf, v)
}

// writeRecord encodes v and writes its raw bytes at pos.
func writeRecord(dev *BlockDevice, blocks []uint64, pos position, v any) error {
	buf, err := encodeRecord(v)
	if err != nil {
		return err
	}
	if n := writeBytes(dev, blocks, pos, buf); n < len(buf) {
		return fmt.Errorf("record at block %d offset %d: short write of %d bytes", pos.Block, pos.Offset, n)
	}
	return nil
}

// encodeRecord serialises v as little-endian with no implicit padding.
func encodeRecord(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeRecord deserialises little-endian raw bytes into v.
func decodeRecord(buf []byte, v any) error {
	if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, v); err != nil {
		return fmt.Errorf("decoding record: %w", err)
	}
	return nil
}
