package fslab

import "fmt"

// Root directory traversal. The root is an ordinary file of fixed-size
// dirEntry records; every scan is bounded by the root descriptor's logical
// length, so slots past the length (from block-granular growth) are never
// interpreted.

// rootBlocks returns the root file's live block list.
func (m *Manager) rootBlocks(root *descriptor) []uint64 {
	return root.Blocks[:root.liveBlocks(m.layout.BlockSize)]
}

// forEachEntry decodes every directory entry inside the root's logical
// length and calls fn with the record and its position. fn returns true to
// stop the scan.
func (m *Manager) forEachEntry(root *descriptor, fn func(e *dirEntry, pos position) bool) error {
	blocks := m.rootBlocks(root)
	bs := m.layout.BlockSize

	for off := uint64(0); off+dirEntrySize <= root.Length; off += dirEntrySize {
		pos := positionAt(off, bs)

		var e dirEntry
		if err := readRecord(m.dev, blocks, pos, dirEntrySize, &e); err != nil {
			return fmt.Errorf("reading directory entry at offset %d: %w", off, err)
		}
		if fn(&e, pos) {
			return nil
		}
	}

	return nil
}

// findEntryByIndex locates the occupied entry bound to a descriptor index.
func (m *Manager) findEntryByIndex(root *descriptor, index uint32) (position, bool) {
	var (
		slot  position
		found bool
	)
	// The scan is length-bounded and cannot fail on decode once the root
	// descriptor itself was read.
	_ = m.forEachEntry(root, func(e *dirEntry, pos position) bool {
		if e.Occupied == 1 && e.Index == uint64(index) {
			slot = pos
			found = true
			return true
		}
		return false
	})
	return slot, found
}
