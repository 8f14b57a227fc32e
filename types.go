// Package fslab implements a single-user flat-namespace filesystem layered
// over a fixed-geometry block device simulated in memory and persistable as a
// single image file. It provides a UNIX-like surface (create, destroy, open,
// close, read, write, lseek, directory, save) on top of a bitmap-based block
// allocator, a fixed descriptor table and a root directory stored as an
// ordinary file of fixed-size entry records.
//
// The main entry point is New in options.go, which assembles a block device,
// the layout manager, the optional cache layer and the Filesystem facade.
//
// Example usage:
//
//	fs, err := fslab.New(fslab.WithGeometry(64, 512))
//	if err != nil {
//		panic(err)
//	}
//
//	fs.Create("notes")
//	idx, _ := fs.Open("notes")
//	fs.Write(idx, []byte("hello"))
//	fs.Save("disk.img")
package fslab

const (
	// NameMax is the maximum file name length in bytes.
	NameMax = 20

	// MaxBlocksPerFile is the number of direct block pointers per
	// descriptor, and therefore the hard bound on file size in blocks.
	MaxBlocksPerFile = 3

	// bitmapBlock is the device block holding the allocation bitmap,
	// one bit per data block, MSB-first within each byte.
	bitmapBlock = 0

	// RootIndex is the descriptor index of the implicit root directory.
	RootIndex = 0

	// Fixed on-disk record sizes. These must match the binary encoding of
	// the structures below exactly; encode/decode round-trips are pinned
	// by tests rather than trusted to struct layout.
	descriptorSize = 40
	dirEntrySize   = 32
)

// ============================================================================
// On-disk structures (little-endian, explicitly padded)
// ============================================================================

// descriptor is the fixed-size on-disk record describing one file: slot
// liveness, logical length in bytes, and up to MaxBlocksPerFile direct block
// pointers. Pointers beyond ceil(Length/B) carry no meaning. Descriptor 0 is
// reserved for the root directory.
type descriptor struct {
	Occupied uint8                    // 0x00: 1 = slot live
	_        [7]byte                  // 0x01: padding to 8-byte alignment
	Length   uint64                   // 0x08: logical file size in bytes
	Blocks   [MaxBlocksPerFile]uint64 // 0x10: direct block pointers
}

// liveBlocks returns the number of block pointers covered by Length.
func (d *descriptor) liveBlocks(blockSize uint64) uint64 {
	return divRoundUp(d.Length, blockSize)
}

// dirEntry is the fixed-size on-disk record stored inside the root file,
// binding a name to a descriptor index.
type dirEntry struct {
	Occupied uint8         // 0x00: 1 = entry live
	NameLen  uint8         // 0x01: meaningful prefix of Name
	Name     [NameMax]byte // 0x02: padded with zeros
	_        [2]byte       // 0x16: padding
	Index    uint64        // 0x18: descriptor index of the file
}

// name returns the entry's name as a string. A length beyond NameMax can
// only come from a corrupt image and is clamped.
func (e *dirEntry) name() string {
	n := int(e.NameLen)
	if n > len(e.Name) {
		n = len(e.Name)
	}
	return string(e.Name[:n])
}

// setName copies name into the fixed-width field. The caller has validated
// the length against NameMax.
func (e *dirEntry) setName(name string) {
	e.Name = [NameMax]byte{}
	e.NameLen = uint8(copy(e.Name[:], name))
}

// Entry is one row of a directory listing: the in-memory projection of an
// occupied dirEntry joined with its descriptor's length.
type Entry struct {
	Name  string
	Size  uint64
	Index uint32
}

// FileInfo is the facade-level view of a directory entry.
type FileInfo struct {
	Name string
	Size uint64
}
