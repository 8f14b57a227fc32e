package main

import (
	"errors"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/nnsgmsone/damrey/logger"
	fslab "github.com/starquell/fs-lab"
	"github.com/urfave/cli/v2"
)

const envVarPrefix = "FSLAB"

// Config carries the shell's startup defaults. Environment variables seed
// the flag defaults; flags win.
type Config struct {
	Cylinders uint64 `envconfig:"FSLAB_CYLINDERS"  default:"1"`
	Surfaces  uint64 `envconfig:"FSLAB_SURFACES"   default:"4"`
	Sectors   uint64 `envconfig:"FSLAB_SECTORS"    default:"8"`
	BlockSize uint64 `envconfig:"FSLAB_BLOCK_SIZE" default:"64"`
	Image     string `envconfig:"FSLAB_IMAGE"`
	NoCache   bool   `envconfig:"FSLAB_NO_CACHE"`
}

func main() {
	log := logger.New(os.Stderr, "fslab")

	var cfg Config
	if err := envconfig.Process(envVarPrefix, &cfg); err != nil {
		log.Fatalf("processing environment: %v\n", err)
	}

	app := &cli.App{
		Name:  "fslab",
		Usage: "interactive shell over a flat-namespace filesystem on a simulated disk",
		Flags: []cli.Flag{
			&cli.Uint64Flag{Name: "cylinders", Usage: "disk cylinders", Value: cfg.Cylinders},
			&cli.Uint64Flag{Name: "surfaces", Usage: "surfaces per cylinder", Value: cfg.Surfaces},
			&cli.Uint64Flag{Name: "sectors", Usage: "sectors (blocks) per surface", Value: cfg.Sectors},
			&cli.Uint64Flag{Name: "block-size", Usage: "bytes per block", Value: cfg.BlockSize},
			&cli.StringFlag{Name: "image", Usage: "disk image to restore on startup", Value: cfg.Image},
			&cli.BoolFlag{Name: "no-cache", Usage: "disable the block and directory caches", Value: cfg.NoCache},
		},
		Action: func(c *cli.Context) error {
			fs, err := build(c, log)
			if err != nil {
				return err
			}

			sh := &shell{fs: fs, log: log, cached: !c.Bool("no-cache")}
			return sh.run(os.Stdin, os.Stdout)
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("%v\n", err)
	}
}

// build assembles the filesystem from the resolved flags, preferring a
// restorable image over a fresh disk.
func build(c *cli.Context, log logger.Log) (*fslab.Filesystem, error) {
	opts := []fslab.Option{
		fslab.WithLogger(log),
		fslab.WithCache(!c.Bool("no-cache")),
	}

	if path := c.String("image"); path != "" {
		fs, err := fslab.New(append(opts, fslab.WithImage(path))...)
		if err == nil {
			return fs, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	opts = append(opts, fslab.WithDiskGeometry(
		c.Uint64("cylinders"),
		c.Uint64("surfaces"),
		c.Uint64("sectors"),
		c.Uint64("block-size"),
	))
	return fslab.New(opts...)
}
