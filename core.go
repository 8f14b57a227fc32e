package fslab

// Core is the capability set shared by the plain layout manager and its
// cached decorator. The Filesystem facade is written against it, so the two
// variants are interchangeable underneath one session.
type Core interface {
	// Create adds a file with the given name to the root directory and
	// returns its descriptor index. The caller has verified uniqueness.
	Create(name string) (uint32, error)

	// Remove deletes the file with the given descriptor index, freeing
	// its data blocks, directory entry and descriptor.
	Remove(index uint32) error

	// Search resolves a name to a descriptor index.
	Search(name string) (uint32, bool, error)

	// List returns the directory entries with their current sizes.
	List() ([]Entry, error)

	// Read copies file bytes starting at pos into dst and returns the
	// count, which is short at end of file.
	Read(index uint32, pos uint64, dst []byte) (int, error)

	// Write copies src into the file starting at pos, allocating blocks
	// as needed, and returns the count, which is short when the per-file
	// block bound leaves less room than requested.
	Write(index uint32, pos uint64, src []byte) (int, error)

	// Close releases per-file resources held for an open file.
	Close(index uint32)

	// Save persists the underlying device image to path.
	Save(path string) error
}

var (
	_ Core = (*Manager)(nil)
	_ Core = (*Cached)(nil)
)
