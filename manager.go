package fslab

import (
	"fmt"
)

// Manager is the on-disk layout manager: it owns the block device and
// implements the filesystem primitives directly against the bitmap, the
// descriptor table and the root directory file. All state lives on the
// device; the Manager itself holds only the computed geometry and a reusable
// block-sized scratch buffer for bitmap staging.
type Manager struct {
	dev        *BlockDevice
	layout     Layout
	descBlocks []uint64 // immutable: blocks 1..k-1
	scratch    []byte   // one block, reused for the bitmap
}

// NewManager computes the geometry for the device and ensures the root
// directory exists. A fresh device gets a root descriptor written at index
// 0; a device loaded from an image keeps the root it carries.
func NewManager(dev *BlockDevice) (*Manager, error) {
	layout, err := CalculateLayout(dev.Blocks(), dev.BlockSize())
	if err != nil {
		return nil, err
	}

	m := &Manager{
		dev:        dev,
		layout:     layout,
		descBlocks: layout.DescriptorBlocks(),
		scratch:    make([]byte, layout.BlockSize),
	}

	if layout.DescriptorCapacity() == 0 {
		return nil, fmt.Errorf("descriptor table cannot hold the root directory: %w", ErrNoSpace)
	}

	root, err := m.readDescriptor(RootIndex)
	if err != nil {
		return nil, err
	}
	if root.Occupied == 0 {
		root = descriptor{Occupied: 1}
		if err := m.writeDescriptor(RootIndex, &root); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Layout returns the computed geometry.
func (m *Manager) Layout() Layout {
	return m.layout
}

// Device returns the underlying block device.
func (m *Manager) Device() *BlockDevice {
	return m.dev
}

// Create adds a file to the root directory: it claims a free descriptor,
// reuses a freed directory slot or grows the root file by whole blocks, and
// writes the entry. The new descriptor is written last, so an earlier
// failure leaves the directory consistent.
func (m *Manager) Create(name string) (uint32, error) {
	if len(name) > NameMax {
		return 0, fmt.Errorf("name %q exceeds %d bytes: %w", name, NameMax, ErrNameTooLong)
	}

	// Claim the first unoccupied descriptor. The root is occupied, so the
	// scan never yields index 0.
	descPos, ok := findRecord(m.dev, m.descBlocks, descriptorSize, func(raw []byte) bool {
		return raw[0] == 0
	})
	if !ok {
		return 0, fmt.Errorf("no free descriptor: %w", ErrNoSpace)
	}
	index := uint32(descPos.abs(m.layout.BlockSize) / descriptorSize)

	root, err := m.readDescriptor(RootIndex)
	if err != nil {
		return 0, err
	}

	// Prefer recycling a freed slot inside the root file; the predicate
	// bounds the scan by the root's logical length.
	var examined uint64
	slot, ok := findRecord(m.dev, m.rootBlocks(&root), dirEntrySize, func(raw []byte) bool {
		inside := examined < root.Length
		examined += dirEntrySize
		return inside && raw[0] == 0
	})

	if !ok {
		if err := m.growRoot(&root); err != nil {
			return 0, err
		}
		slot = positionAt(root.Length, m.layout.BlockSize)
		root.Length += dirEntrySize
	}

	entry := dirEntry{Occupied: 1, Index: uint64(index)}
	entry.setName(name)

	if err := writeRecord(m.dev, m.rootBlocks(&root), slot, &entry); err != nil {
		return 0, fmt.Errorf("writing directory entry for %q: %w", name, err)
	}
	if err := m.writeDescriptor(RootIndex, &root); err != nil {
		return 0, err
	}
	if err := m.writeDescriptor(index, &descriptor{Occupied: 1}); err != nil {
		return 0, err
	}

	return index, nil
}

// growRoot extends the root file to fit one more directory entry, allocating
// data blocks when the current tail has no room left.
func (m *Manager) growRoot(root *descriptor) error {
	bs := m.layout.BlockSize
	allocated := root.liveBlocks(bs)

	avail := allocated*bs - root.Length
	if avail >= dirEntrySize {
		return nil
	}

	need := divRoundUp(dirEntrySize-avail, bs)
	if allocated+need > MaxBlocksPerFile {
		return fmt.Errorf("root file would exceed %d blocks: %w", MaxBlocksPerFile, ErrDirectoryFull)
	}

	bitmap := m.readBitmap()
	got := m.allocateDataBlocks(bitmap, need)
	if uint64(len(got)) < need {
		return fmt.Errorf("%d free data blocks needed for the directory: %w", need, ErrNoSpace)
	}
	for i, b := range got {
		root.Blocks[allocated+uint64(i)] = b
	}
	m.writeBitmap()

	return nil
}

// Remove deletes the file with the given descriptor index: bitmap bits
// first, then the directory entry, then the descriptor. The root's length is
// never shrunk; freed slots are recycled by Create.
func (m *Manager) Remove(index uint32) error {
	root, err := m.readDescriptor(RootIndex)
	if err != nil {
		return err
	}

	slot, ok := m.findEntryByIndex(&root, index)
	if !ok {
		return fmt.Errorf("no directory entry for descriptor %d: %w", index, ErrNotFound)
	}

	d, err := m.readDescriptor(index)
	if err != nil {
		return err
	}

	bitmap := m.readBitmap()
	for _, b := range d.Blocks[:d.liveBlocks(m.layout.BlockSize)] {
		m.freeDataBlock(bitmap, b)
	}
	m.writeBitmap()

	if err := writeRecord(m.dev, m.rootBlocks(&root), slot, &dirEntry{}); err != nil {
		return fmt.Errorf("clearing directory entry for descriptor %d: %w", index, err)
	}
	if err := m.writeDescriptor(index, &descriptor{}); err != nil {
		return err
	}

	return nil
}

// Search resolves a name to a descriptor index by scanning the root file.
func (m *Manager) Search(name string) (uint32, bool, error) {
	root, err := m.readDescriptor(RootIndex)
	if err != nil {
		return 0, false, err
	}

	var (
		index uint32
		found bool
	)
	err = m.forEachEntry(&root, func(e *dirEntry, _ position) bool {
		if e.Occupied == 1 && e.name() == name {
			index = uint32(e.Index)
			found = true
			return true
		}
		return false
	})
	if err != nil {
		return 0, false, err
	}

	return index, found, nil
}

// List returns all occupied directory entries joined with their current
// sizes, in on-disk order.
func (m *Manager) List() ([]Entry, error) {
	root, err := m.readDescriptor(RootIndex)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	var scanErr error
	err = m.forEachEntry(&root, func(e *dirEntry, _ position) bool {
		if e.Occupied == 0 {
			return false
		}
		d, err := m.readDescriptor(uint32(e.Index))
		if err != nil {
			scanErr = err
			return true
		}
		entries = append(entries, Entry{
			Name:  e.name(),
			Size:  d.Length,
			Index: uint32(e.Index),
		})
		return false
	})
	if err != nil {
		return nil, err
	}
	if scanErr != nil {
		return nil, scanErr
	}

	return entries, nil
}

// Read copies file bytes starting at pos into dst, bounded by the file's
// logical length, and returns the count.
func (m *Manager) Read(index uint32, pos uint64, dst []byte) (int, error) {
	d, err := m.readDescriptor(index)
	if err != nil {
		return 0, err
	}
	if d.Occupied == 0 {
		return 0, fmt.Errorf("descriptor %d is not occupied: %w", index, ErrNotFound)
	}
	if pos >= d.Length {
		return 0, nil
	}

	bs := m.layout.BlockSize
	n := min64(uint64(len(dst)), d.Length-pos)
	return readBytes(m.dev, d.Blocks[:d.liveBlocks(bs)], positionAt(pos, bs), dst[:n]), nil
}

// Write copies src into the file starting at pos, allocating data blocks
// when the span extends past the allocated region. The write is short when
// the per-file block bound or a short allocation leaves less room than
// requested; the descriptor's length always reflects the bytes actually
// storable.
func (m *Manager) Write(index uint32, pos uint64, src []byte) (int, error) {
	d, err := m.readDescriptor(index)
	if err != nil {
		return 0, err
	}
	if d.Occupied == 0 {
		return 0, fmt.Errorf("descriptor %d is not occupied: %w", index, ErrNotFound)
	}

	bs := m.layout.BlockSize
	allocated := d.liveBlocks(bs)
	capBytes := uint64(MaxBlocksPerFile) * bs
	if pos >= capBytes {
		return 0, nil
	}

	end := min64(pos+uint64(len(src)), capBytes)
	if end > allocated*bs {
		need := divRoundUp(end, bs) - allocated

		bitmap := m.readBitmap()
		got := m.allocateDataBlocks(bitmap, need)
		// Commit the staged bits only if the write can reach the grown
		// region; a short allocation that still ends before pos is
		// discarded, leaving the bitmap untouched.
		if pos >= (allocated+uint64(len(got)))*bs {
			return 0, nil
		}
		for i, b := range got {
			d.Blocks[allocated+uint64(i)] = b
		}
		m.writeBitmap()
		allocated += uint64(len(got))
	}

	if pos >= allocated*bs {
		return 0, nil
	}
	if newEnd := min64(end, allocated*bs); newEnd > d.Length {
		d.Length = newEnd
	}
	if err := m.writeDescriptor(index, &d); err != nil {
		return 0, err
	}

	return writeBytes(m.dev, d.Blocks[:allocated], positionAt(pos, bs), src), nil
}

// Close is a no-op: the plain manager holds no per-file state.
func (m *Manager) Close(uint32) {}

// Save persists the device image to path.
func (m *Manager) Save(path string) error {
	return m.dev.Save(path)
}

// readDescriptor reads the descriptor record at the given index from the
// descriptor table.
func (m *Manager) readDescriptor(index uint32) (descriptor, error) {
	if uint64(index) >= m.layout.DescriptorCapacity() {
		return descriptor{}, fmt.Errorf("descriptor %d exceeds table capacity %d", index, m.layout.DescriptorCapacity())
	}

	var d descriptor
	pos := positionAt(uint64(index)*descriptorSize, m.layout.BlockSize)
	if err := readRecord(m.dev, m.descBlocks, pos, descriptorSize, &d); err != nil {
		return descriptor{}, fmt.Errorf("reading descriptor %d: %w", index, err)
	}
	return d, nil
}

// writeDescriptor writes the descriptor record at the given index.
func (m *Manager) writeDescriptor(index uint32, d *descriptor) error {
	pos := positionAt(uint64(index)*descriptorSize, m.layout.BlockSize)
	if err := writeRecord(m.dev, m.descBlocks, pos, d); err != nil {
		return fmt.Errorf("writing descriptor %d: %w", index, err)
	}
	return nil
}
