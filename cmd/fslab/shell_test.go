package main

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nnsgmsone/damrey/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fslab "github.com/starquell/fs-lab"
)

// runScript feeds a command script to a fresh shell and returns everything
// it printed.
func runScript(t *testing.T, script ...string) string {
	t.Helper()

	fs, err := fslab.New(fslab.WithGeometry(20, 64))
	require.NoError(t, err)

	sh := &shell{fs: fs, log: logger.New(io.Discard, "test"), cached: true}

	var out bytes.Buffer
	require.NoError(t, sh.run(strings.NewReader(strings.Join(script, "\n")), &out))
	return out.String()
}

func TestShellFileLifecycle(t *testing.T) {
	out := runScript(t,
		"cr a",
		"op a",
		"wr 1 x 3",
		"sk 1 0",
		"rd 1 3",
		"dr",
		"cl 1",
		"de a",
		"dr",
	)

	assert.Contains(t, out, `file "a" created`)
	assert.Contains(t, out, `file "a" opened, index=1`)
	assert.Contains(t, out, "3 bytes written")
	assert.Contains(t, out, "current position is 0")
	assert.Contains(t, out, `3 bytes read: "xxx"`)
	assert.Contains(t, out, "a 3")
	assert.Contains(t, out, "file 1 closed")
	assert.Contains(t, out, `file "a" destroyed`)
}

func TestShellDirectoryListing(t *testing.T) {
	out := runScript(t,
		"cr pear",
		"cr apple",
		"op apple",
		"wr 2 y 5",
		"dr",
	)

	assert.Contains(t, out, "apple 5, pear 0")
}

func TestShellErrors(t *testing.T) {
	out := runScript(t,
		"boom",
		"cr",
		"op ghost",
		"cl 7",
		"cr a",
		"cr a",
		"sk 0 nope",
	)

	assert.Contains(t, out, `error: unknown command "boom"`)
	assert.Contains(t, out, "error: invalid input, usage: cr <name>")
	assert.Contains(t, out, `error: file "ghost" is not found`)
	assert.Contains(t, out, "error: file 7 is not opened")
	assert.Contains(t, out, `error: file "a" already exists`)
	assert.Contains(t, out, `error: "nope" is not a number`)

	// The shell keeps going after errors.
	assert.Contains(t, out, `file "a" created`)
}

func TestShellSaveAndInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")

	out := runScript(t,
		"cr keep",
		"op keep",
		"wr 1 z 4",
		"sv "+path,
		"cr gone",
		"in 1 4 5 64 "+path,
		"dr",
	)

	assert.Contains(t, out, "disk saved")
	assert.Contains(t, out, "disk restored")

	// The restored disk predates "gone" and still holds "keep".
	last := out[strings.LastIndex(out, "disk restored"):]
	assert.Contains(t, last, "keep 4")
	assert.NotContains(t, last, "gone")
}

func TestShellInitFreshDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.img")

	out := runScript(t,
		"in 1 4 5 64 "+path,
		"dr",
		"cr fresh",
	)

	assert.Contains(t, out, "disk initialized")
	assert.Contains(t, out, `file "fresh" created`)
}
