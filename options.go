package fslab

import (
	"fmt"
	"os"

	"github.com/nnsgmsone/damrey/logger"
)

// Option is a functional option for assembling a Filesystem with New.
type Option func(*settings)

type settings struct {
	dev       *BlockDevice
	nblocks   uint64
	blockSize uint64
	imagePath string
	cache     bool
	log       logger.Log
}

// WithDevice uses an existing block device.
func WithDevice(dev *BlockDevice) Option {
	return func(s *settings) {
		s.dev = dev
	}
}

// WithGeometry creates a fresh device of nblocks blocks of blockSize bytes.
func WithGeometry(nblocks, blockSize uint64) Option {
	return func(s *settings) {
		s.nblocks = nblocks
		s.blockSize = blockSize
	}
}

// WithDiskGeometry creates a fresh device from physical disk dimensions:
// cylinders × surfaces × sectors blocks of blockSize bytes.
func WithDiskGeometry(cylinders, surfaces, sectors, blockSize uint64) Option {
	return WithGeometry(cylinders*surfaces*sectors, blockSize)
}

// WithImage loads the device from an image file previously produced by Save.
func WithImage(path string) Option {
	return func(s *settings) {
		s.imagePath = path
	}
}

// WithCache toggles the cache layer. It is on by default.
func WithCache(enabled bool) Option {
	return func(s *settings) {
		s.cache = enabled
	}
}

// WithLogger sets the logger threaded into the cache layer.
func WithLogger(log logger.Log) Option {
	return func(s *settings) {
		s.log = log
	}
}

// New assembles a Filesystem: block device, layout manager, optional cache
// layer, facade. The device comes from WithDevice, WithImage or
// WithGeometry, in that order of precedence.
func New(opts ...Option) (*Filesystem, error) {
	s := settings{cache: true, log: logger.New(os.Stderr, "fslab")}
	for _, opt := range opts {
		opt(&s)
	}

	dev := s.dev
	switch {
	case dev != nil:
	case s.imagePath != "":
		loaded, err := LoadDevice(s.imagePath)
		if err != nil {
			return nil, err
		}
		dev = loaded
	case s.nblocks != 0:
		dev = NewBlockDevice(s.nblocks, s.blockSize)
	default:
		return nil, fmt.Errorf("a device, an image or a geometry is required: %w", ErrGeometry)
	}

	manager, err := NewManager(dev)
	if err != nil {
		return nil, err
	}

	core := Core(manager)
	if s.cache {
		core = NewCached(manager, s.log)
	}

	return NewFilesystem(core), nil
}
