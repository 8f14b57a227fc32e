package fslab

import (
	"sort"

	"github.com/nnsgmsone/damrey/logger"
)

// Cached decorates a Manager with two caches: a sorted snapshot of the root
// directory for name lookups and listings, and a per-open-file read buffer
// that widens small reads to the next block boundary so sequential byte-wise
// reads hit memory instead of the device. Both caches are updated
// synchronously inside the call that mutates the underlying state, so no
// reader observes a half-updated cache.
type Cached struct {
	inner *Manager
	log   logger.Log

	// Directory snapshot, sorted by name, plus the reverse map needed to
	// locate an entry when only the descriptor index is known (write-time
	// size updates, removal).
	dir      []Entry
	dirValid bool
	names    map[uint32]string

	bufs map[uint32]*readBuffer
}

// readBuffer holds the most recent widened read of one file.
type readBuffer struct {
	start uint64 // file position of data[0]
	data  []byte
}

// NewCached wraps a layout manager with the cache layer.
func NewCached(inner *Manager, log logger.Log) *Cached {
	return &Cached{
		inner: inner,
		log:   log,
		names: make(map[uint32]string),
		bufs:  make(map[uint32]*readBuffer),
	}
}

// ensureDir populates the directory snapshot from the manager on first use.
func (c *Cached) ensureDir() error {
	if c.dirValid {
		return nil
	}

	entries, err := c.inner.List()
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	c.dir = entries
	c.names = make(map[uint32]string, len(entries))
	for _, e := range entries {
		c.names[e.Index] = e.Name
	}
	c.dirValid = true

	return nil
}

// locate binary-searches the sorted snapshot for a name.
func (c *Cached) locate(name string) (int, bool) {
	i := sort.Search(len(c.dir), func(i int) bool { return c.dir[i].Name >= name })
	return i, i < len(c.dir) && c.dir[i].Name == name
}

// Create writes through to the manager and splices the new entry into the
// sorted snapshot.
func (c *Cached) Create(name string) (uint32, error) {
	index, err := c.inner.Create(name)
	if err != nil {
		return 0, err
	}

	if !c.dirValid {
		if err := c.ensureDir(); err != nil {
			return 0, err
		}
		return index, nil
	}

	i, _ := c.locate(name)
	c.dir = append(c.dir, Entry{})
	copy(c.dir[i+1:], c.dir[i:])
	c.dir[i] = Entry{Name: name, Size: 0, Index: index}
	c.names[index] = name

	return index, nil
}

// Remove writes through to the manager, drops the file's read buffer and
// deletes its snapshot entry.
func (c *Cached) Remove(index uint32) error {
	if err := c.inner.Remove(index); err != nil {
		return err
	}

	delete(c.bufs, index)
	if c.dirValid {
		if name, ok := c.names[index]; ok {
			if i, ok := c.locate(name); ok {
				c.dir = append(c.dir[:i], c.dir[i+1:]...)
			}
			delete(c.names, index)
		}
	}

	return nil
}

// Search resolves a name with a binary lookup in the sorted snapshot,
// populating it first if needed.
func (c *Cached) Search(name string) (uint32, bool, error) {
	if err := c.ensureDir(); err != nil {
		return 0, false, err
	}

	i, ok := c.locate(name)
	if !ok {
		return 0, false, nil
	}
	return c.dir[i].Index, true, nil
}

// List returns a copy of the sorted snapshot.
func (c *Cached) List() ([]Entry, error) {
	if err := c.ensureDir(); err != nil {
		return nil, err
	}

	out := make([]Entry, len(c.dir))
	copy(out, c.dir)
	return out, nil
}

// Read satisfies the request from the file's read buffer when it covers the
// span. Otherwise it widens the read to the next block boundary, serves the
// caller from the front of the result and keeps the whole of it buffered.
func (c *Cached) Read(index uint32, pos uint64, dst []byte) (int, error) {
	want := uint64(len(dst))

	if buf, ok := c.bufs[index]; ok {
		if pos >= buf.start && pos+want <= buf.start+uint64(len(buf.data)) {
			copy(dst, buf.data[pos-buf.start:])
			return len(dst), nil
		}
	}

	bs := c.inner.Layout().BlockSize
	widened := want + (bs - (pos+want)%bs)

	tmp := make([]byte, widened)
	n, err := c.inner.Read(index, pos, tmp)
	if err != nil {
		return 0, err
	}

	copied := copy(dst, tmp[:n])
	c.bufs[index] = &readBuffer{start: pos, data: tmp[:n]}

	return copied, nil
}

// Write is write-through: it invalidates the file's read buffer (a buffered
// span could otherwise return the overwritten bytes) and patches the
// snapshot entry's size.
func (c *Cached) Write(index uint32, pos uint64, src []byte) (int, error) {
	n, err := c.inner.Write(index, pos, src)
	if err != nil {
		return 0, err
	}

	delete(c.bufs, index)

	if n > 0 && c.dirValid {
		if name, ok := c.names[index]; ok {
			if i, ok := c.locate(name); ok {
				if end := pos + uint64(n); end > c.dir[i].Size {
					c.dir[i].Size = end
				}
			}
		}
	}

	return n, nil
}

// Close drops the file's read buffer.
func (c *Cached) Close(index uint32) {
	delete(c.bufs, index)
	c.inner.Close(index)
}

// Save persists the device image through the manager.
func (c *Cached) Save(path string) error {
	if err := c.inner.Save(path); err != nil {
		c.log.Errorf("saving image %q: %v\n", path, err)
		return err
	}
	return nil
}
