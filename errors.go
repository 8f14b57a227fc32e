package fslab

import "errors"

// Sentinel errors returned by the layout manager and the facade. Call sites
// wrap them with context, so callers match with errors.Is.
var (
	ErrGeometry      = errors.New("unusable disk geometry")
	ErrNoSpace       = errors.New("out of space")
	ErrNameTooLong   = errors.New("name too long")
	ErrExists        = errors.New("already exists")
	ErrNotFound      = errors.New("not found")
	ErrAlreadyOpen   = errors.New("already open")
	ErrNotOpen       = errors.New("not opened")
	ErrDirectoryFull = errors.New("directory full")
)
