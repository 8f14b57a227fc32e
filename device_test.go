package fslab

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockDeviceGeometry(t *testing.T) {
	dev := NewBlockDevice(4, 8)

	assert.Equal(t, uint64(4), dev.Blocks())
	assert.Equal(t, uint64(8), dev.BlockSize())
}

func TestBlockDevicePartialCopies(t *testing.T) {
	dev := NewBlockDevice(4, 8)

	// A short source writes a prefix and leaves the tail untouched.
	n := dev.WriteBlock(1, []byte{1, 2, 3})
	assert.Equal(t, 3, n)

	got := make([]byte, 8)
	n = dev.ReadBlock(1, got)
	assert.Equal(t, 8, n)
	assert.Equal(t, []byte{1, 2, 3, 0, 0, 0, 0, 0}, got)

	// A short destination reads a prefix.
	short := make([]byte, 2)
	n = dev.ReadBlock(1, short)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte{1, 2}, short)

	// An oversized source is truncated to the block.
	long := make([]byte, 12)
	for i := range long {
		long[i] = byte(i + 1)
	}
	n = dev.WriteBlock(2, long)
	assert.Equal(t, 8, n)
}

func TestBlockDeviceImageRoundTrip(t *testing.T) {
	dev := NewBlockDevice(6, 16)
	for n := uint64(0); n < dev.Blocks(); n++ {
		buf := make([]byte, 16)
		for i := range buf {
			buf[i] = byte(n*16 + uint64(i))
		}
		dev.WriteBlock(n, buf)
	}

	path := filepath.Join(t.TempDir(), "disk.img")
	require.NoError(t, dev.Save(path))

	loaded, err := LoadDevice(path)
	require.NoError(t, err)

	assert.Equal(t, dev.Blocks(), loaded.Blocks())
	assert.Equal(t, dev.BlockSize(), loaded.BlockSize())
	assert.Equal(t, dev.Snapshot(), loaded.Snapshot())
}

func TestLoadDeviceFailures(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadDevice(filepath.Join(t.TempDir(), "absent.img"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("truncated header", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "short.img")
		require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o644))

		_, err := LoadDevice(path)
		require.Error(t, err)
	})

	t.Run("truncated blocks", func(t *testing.T) {
		dev := NewBlockDevice(6, 16)
		path := filepath.Join(t.TempDir(), "trunc.img")
		require.NoError(t, dev.Save(path))

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, raw[:len(raw)-10], 0o644))

		_, err = LoadDevice(path)
		require.Error(t, err)
	})

	t.Run("zero geometry", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "zero.img")
		require.NoError(t, os.WriteFile(path, make([]byte, 16), 0o644))

		_, err := LoadDevice(path)
		require.ErrorIs(t, err, ErrGeometry)
	})
}
