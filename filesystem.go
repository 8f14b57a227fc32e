package fslab

import (
	"fmt"
	"sort"
)

// Filesystem is the UNIX-like surface over a Core. It owns the open-file
// table mapping descriptor indices to current byte positions and enforces
// the open/close discipline; everything else is delegated.
type Filesystem struct {
	core Core
	oft  map[uint32]uint64
}

// NewFilesystem wraps a core with a fresh open-file table. Most callers use
// New from options.go instead.
func NewFilesystem(core Core) *Filesystem {
	return &Filesystem{
		core: core,
		oft:  make(map[uint32]uint64),
	}
}

// Update replaces the underlying core, e.g. after re-initialising the disk
// from an image. All open files are discarded.
func (f *Filesystem) Update(core Core) {
	f.core = core
	f.oft = make(map[uint32]uint64)
}

// Create adds a new empty file with the given name.
func (f *Filesystem) Create(name string) error {
	if len(name) > NameMax {
		return fmt.Errorf("name %q exceeds %d bytes: %w", name, NameMax, ErrNameTooLong)
	}

	if _, ok, err := f.core.Search(name); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("file %q already exists: %w", name, ErrExists)
	}

	_, err := f.core.Create(name)
	return err
}

// Destroy removes the named file. An open-file-table entry for it is evicted
// silently.
func (f *Filesystem) Destroy(name string) error {
	index, ok, err := f.core.Search(name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("file %q does not exist: %w", name, ErrNotFound)
	}

	if err := f.core.Remove(index); err != nil {
		return err
	}
	delete(f.oft, index)

	return nil
}

// Open resolves the name and registers the file in the open-file table at
// position 0, returning its descriptor index.
func (f *Filesystem) Open(name string) (uint32, error) {
	index, ok, err := f.core.Search(name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("file %q is not found: %w", name, ErrNotFound)
	}
	if _, open := f.oft[index]; open {
		return 0, fmt.Errorf("file %q is %w", name, ErrAlreadyOpen)
	}

	f.oft[index] = 0
	return index, nil
}

// Close removes the file from the open-file table.
func (f *Filesystem) Close(index uint32) error {
	if _, ok := f.oft[index]; !ok {
		return fmt.Errorf("file %d is %w", index, ErrNotOpen)
	}

	f.core.Close(index)
	delete(f.oft, index)

	return nil
}

// Read reads from the file's current position into dst, advancing the
// position by the returned count.
func (f *Filesystem) Read(index uint32, dst []byte) (int, error) {
	pos, ok := f.oft[index]
	if !ok {
		return 0, fmt.Errorf("file %d is %w", index, ErrNotOpen)
	}

	n, err := f.core.Read(index, pos, dst)
	if err != nil {
		return 0, err
	}
	f.oft[index] = pos + uint64(n)

	return n, nil
}

// Write writes src at the file's current position, advancing the position by
// the returned count, which is short when the per-file block bound leaves
// less room than requested.
func (f *Filesystem) Write(index uint32, src []byte) (int, error) {
	pos, ok := f.oft[index]
	if !ok {
		return 0, fmt.Errorf("file %d is %w", index, ErrNotOpen)
	}

	n, err := f.core.Write(index, pos, src)
	if err != nil {
		return 0, err
	}
	f.oft[index] = pos + uint64(n)

	return n, nil
}

// Seek sets the file's current position.
func (f *Filesystem) Seek(index uint32, pos uint64) error {
	if _, ok := f.oft[index]; !ok {
		return fmt.Errorf("file %d is %w", index, ErrNotOpen)
	}

	f.oft[index] = pos
	return nil
}

// Directory lists all files with their sizes, sorted by name.
func (f *Filesystem) Directory() ([]FileInfo, error) {
	entries, err := f.core.List()
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	infos := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		infos = append(infos, FileInfo{Name: e.Name, Size: e.Size})
	}

	return infos, nil
}

// Save closes every open file and persists the device image to path.
func (f *Filesystem) Save(path string) error {
	for index := range f.oft {
		f.core.Close(index)
	}
	f.oft = make(map[uint32]uint64)

	return f.core.Save(path)
}
