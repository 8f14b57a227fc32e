package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/nnsgmsone/damrey/logger"
	fslab "github.com/starquell/fs-lab"
)

// shell is the interactive command loop over a Filesystem. Command errors
// are printed as `error: <message>` and never terminate the loop.
type shell struct {
	fs     *fslab.Filesystem
	log    logger.Log
	cached bool
}

// command binds a shell verb to its usage line and handler. The handler
// returns the success line to print.
type command struct {
	name        string
	usage       string
	description string
	nargs       int
	run         func(sh *shell, args []string) (string, error)
}

var commands = []command{
	{
		name:        "cr",
		usage:       "cr <name>",
		description: "create a new file with the name <name>",
		nargs:       1,
		run: func(sh *shell, args []string) (string, error) {
			if err := sh.fs.Create(args[0]); err != nil {
				return "", err
			}
			return fmt.Sprintf("file %q created", args[0]), nil
		},
	},
	{
		name:        "de",
		usage:       "de <name>",
		description: "destroy the named file <name>",
		nargs:       1,
		run: func(sh *shell, args []string) (string, error) {
			if err := sh.fs.Destroy(args[0]); err != nil {
				return "", err
			}
			return fmt.Sprintf("file %q destroyed", args[0]), nil
		},
	},
	{
		name:        "op",
		usage:       "op <name>",
		description: "open the named file <name> for reading and writing; display an index value",
		nargs:       1,
		run: func(sh *shell, args []string) (string, error) {
			index, err := sh.fs.Open(args[0])
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("file %q opened, index=%d", args[0], index), nil
		},
	},
	{
		name:        "cl",
		usage:       "cl <index>",
		description: "close the specified file <index>",
		nargs:       1,
		run: func(sh *shell, args []string) (string, error) {
			index, err := parseIndex(args[0])
			if err != nil {
				return "", err
			}
			if err := sh.fs.Close(index); err != nil {
				return "", err
			}
			return fmt.Sprintf("file %d closed", index), nil
		},
	},
	{
		name:        "rd",
		usage:       "rd <index> <count>",
		description: "sequentially read a number of bytes <count> from the specified file <index> and display them on the terminal",
		nargs:       2,
		run: func(sh *shell, args []string) (string, error) {
			index, err := parseIndex(args[0])
			if err != nil {
				return "", err
			}
			count, err := parseCount(args[1])
			if err != nil {
				return "", err
			}

			buf := make([]byte, count)
			n, err := sh.fs.Read(index, buf)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%d bytes read: %q", n, buf[:n]), nil
		},
	},
	{
		name:        "wr",
		usage:       "wr <index> <char> <count>",
		description: "sequentially write <count> number of <char>s into the specified file <index> at its current position",
		nargs:       3,
		run: func(sh *shell, args []string) (string, error) {
			index, err := parseIndex(args[0])
			if err != nil {
				return "", err
			}
			if len(args[1]) != 1 {
				return "", fmt.Errorf("%q is not a single character", args[1])
			}
			count, err := parseCount(args[2])
			if err != nil {
				return "", err
			}

			n, err := sh.fs.Write(index, bytes.Repeat([]byte(args[1]), int(count)))
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%d bytes written", n), nil
		},
	},
	{
		name:        "sk",
		usage:       "sk <index> <pos>",
		description: "set the current position of the specified file <index> to <pos>",
		nargs:       2,
		run: func(sh *shell, args []string) (string, error) {
			index, err := parseIndex(args[0])
			if err != nil {
				return "", err
			}
			pos, err := parseCount(args[1])
			if err != nil {
				return "", err
			}
			if err := sh.fs.Seek(index, pos); err != nil {
				return "", err
			}
			return fmt.Sprintf("current position is %d", pos), nil
		},
	},
	{
		name:        "dr",
		usage:       "dr",
		description: "directory: list the names of all files and their lengths",
		nargs:       0,
		run: func(sh *shell, args []string) (string, error) {
			infos, err := sh.fs.Directory()
			if err != nil {
				return "", err
			}

			parts := make([]string, 0, len(infos))
			for _, info := range infos {
				parts = append(parts, fmt.Sprintf("%s %d", info.Name, info.Size))
			}
			return strings.Join(parts, ", "), nil
		},
	},
	{
		name:        "in",
		usage:       "in <cylinders> <surfaces> <sectors> <block_size> <path>",
		description: "restore the disk from the image file <path>, or create a fresh disk using the given dimension parameters when the image cannot be loaded",
		nargs:       5,
		run: func(sh *shell, args []string) (string, error) {
			dims := make([]uint64, 4)
			for i := range dims {
				v, err := parseCount(args[i])
				if err != nil {
					return "", err
				}
				dims[i] = v
			}
			status, err := sh.initialize(dims[0], dims[1], dims[2], dims[3], args[4])
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("disk %s", status), nil
		},
	},
	{
		name:        "sv",
		usage:       "sv <path>",
		description: "close all files and save the contents of the disk in the file <path>",
		nargs:       1,
		run: func(sh *shell, args []string) (string, error) {
			if err := sh.fs.Save(args[0]); err != nil {
				sh.log.Errorf("saving disk to %q: %v\n", args[0], err)
				return "", err
			}
			return "disk saved", nil
		},
	},
}

// initialize replaces the filesystem's core with one over a device restored
// from the image at path, or over a fresh device with the given dimensions
// when the image cannot be loaded.
func (sh *shell) initialize(cylinders, surfaces, sectors, blockSize uint64, path string) (string, error) {
	status := "restored"

	dev, err := fslab.LoadDevice(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			sh.log.Errorf("loading image %q: %v\n", path, err)
		}
		dev = fslab.NewBlockDevice(cylinders*surfaces*sectors, blockSize)
		status = "initialized"
	}

	manager, err := fslab.NewManager(dev)
	if err != nil {
		return "", err
	}

	core := fslab.Core(manager)
	if sh.cached {
		core = fslab.NewCached(manager, sh.log)
	}
	sh.fs.Update(core)

	return status, nil
}

// run drives the read-eval-print loop until EOF.
func (sh *shell) run(r io.Reader, w io.Writer) error {
	fmt.Fprintf(w, "SHELL USAGE\n\n")
	for _, cmd := range commands {
		fmt.Fprintf(w, "* %s - %s\n     usage: %s\n\n", cmd.name, cmd.description, cmd.usage)
	}

	scanner := bufio.NewScanner(r)
	for {
		fmt.Fprint(w, "cmd> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		out, err := sh.dispatch(line)
		if err != nil {
			fmt.Fprintf(w, "error: %v\n", err)
			continue
		}
		fmt.Fprintln(w, out)
	}

	return scanner.Err()
}

// dispatch parses one input line and runs the matching command.
func (sh *shell) dispatch(line string) (string, error) {
	fields := strings.Fields(line)

	for i := range commands {
		cmd := &commands[i]
		if fields[0] != cmd.name {
			continue
		}
		if len(fields)-1 != cmd.nargs {
			return "", fmt.Errorf("invalid input, usage: %s", cmd.usage)
		}
		return cmd.run(sh, fields[1:])
	}

	return "", fmt.Errorf("unknown command %q", fields[0])
}

func parseIndex(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%q is not a file index", s)
	}
	return uint32(v), nil
}

func parseCount(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	return v, nil
}
