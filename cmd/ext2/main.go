// Command ext2 bundles the offline ext2 image utilities of §6: dump,
// mkdir, cp, ln, rm, restore, check. Subcommand dispatch follows
// cmd/main.go's cli.App/cli.Command pattern in the teacher's own
// repository, generalized from its single "format" command to this
// project's seven.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dargueta/ext2tools"
	"github.com/dargueta/ext2tools/dump"
	"github.com/dargueta/ext2tools/fsck"
	"github.com/dargueta/ext2tools/fsops"
	"github.com/dargueta/ext2tools/imagemap"
)

func main() {
	app := cli.App{
		Name:  "ext2",
		Usage: "Inspect and mutate a single-group ext2 image file in place",
		Commands: []*cli.Command{
			{
				Name:      "dump",
				Usage:     "Print the superblock, bitmaps, inodes, and directory blocks",
				ArgsUsage: "IMAGE",
				Action:    runDump,
			},
			{
				Name:      "mkdir",
				Usage:     "Create an empty directory",
				ArgsUsage: "IMAGE ABSPATH",
				Action:    runMkdir,
			},
			{
				Name:      "cp",
				Usage:     "Copy a host file into the image as a regular file",
				ArgsUsage: "IMAGE HOSTPATH ABSPATH",
				Action:    runCp,
			},
			{
				Name:      "ln",
				Usage:     "Create a hard or symbolic link",
				ArgsUsage: "IMAGE [-s] SRC DST",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "s", Usage: "create a symbolic link instead of a hard link"},
				},
				Action: runLn,
			},
			{
				Name:      "rm",
				Usage:     "Remove a regular file or symbolic link",
				ArgsUsage: "IMAGE ABSPATH",
				Action:    runRm,
			},
			{
				Name:      "restore",
				Usage:     "Recover a recently removed entry",
				ArgsUsage: "IMAGE ABSPATH",
				Action:    runRestore,
			},
			{
				Name:      "check",
				Usage:     "Scan for and repair metadata inconsistencies",
				ArgsUsage: "IMAGE",
				Action:    runCheck,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "ext2:", err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps a DriverError to the negated errno form §6 specifies.
// Anything else (bad arguments, host I/O the stdlib surfaced directly)
// exits 1.
func exitCodeFor(err error) int {
	var driverErr *ext2.DriverError
	if errors.As(err, &driverErr) {
		return -int(driverErr.Errno())
	}
	return 1
}

func openImage(c *cli.Context, minArgs int) (*imagemap.Image, error) {
	if c.NArg() < minArgs {
		return nil, ext2.NewDriverErrorWithMessage(ext2.ErrInvalidArgument, "not enough arguments")
	}
	img, err := imagemap.Open(c.Args().Get(0))
	if err != nil {
		return nil, ext2.NewDriverErrorWithMessage(ext2.ErrIO, err.Error())
	}
	return img, nil
}

func runDump(c *cli.Context) error {
	img, err := openImage(c, 1)
	if err != nil {
		return err
	}
	defer img.Close()

	return dump.Run(os.Stdout, img)
}

func runMkdir(c *cli.Context) error {
	img, err := openImage(c, 2)
	if err != nil {
		return err
	}
	defer img.Close()

	return fsops.MakeDirectory(img, c.Args().Get(1))
}

func runCp(c *cli.Context) error {
	img, err := openImage(c, 3)
	if err != nil {
		return err
	}
	defer img.Close()

	return fsops.CopyIn(img, c.Args().Get(1), c.Args().Get(2))
}

func runLn(c *cli.Context) error {
	args := c.Args().Slice()
	symbolic := c.Bool("s")
	// "-s" after IMAGE, as ArgsUsage shows it, arrives as a positional arg.
	if len(args) > 1 && args[1] == "-s" {
		symbolic = true
		args = append(args[:1:1], args[2:]...)
	}
	if len(args) < 3 {
		return ext2.NewDriverErrorWithMessage(ext2.ErrInvalidArgument, "not enough arguments")
	}

	img, err := openImage(c, 3)
	if err != nil {
		return err
	}
	defer img.Close()

	return fsops.Link(img, args[1], args[2], symbolic)
}

func runRm(c *cli.Context) error {
	img, err := openImage(c, 2)
	if err != nil {
		return err
	}
	defer img.Close()

	return fsops.Remove(img, c.Args().Get(1))
}

func runRestore(c *cli.Context) error {
	img, err := openImage(c, 2)
	if err != nil {
		return err
	}
	defer img.Close()

	return fsops.Restore(img, c.Args().Get(1))
}

// runCheck never fails once the image is open (§4.7, §7): it reports what
// it fixed and exits 0. Only a failure to open the image is an error.
func runCheck(c *cli.Context) error {
	img, err := openImage(c, 1)
	if err != nil {
		return err
	}
	defer img.Close()

	rep := fsck.Run(img)
	for _, notice := range rep.Notices {
		fmt.Println(notice)
	}
	if rep.FixCount == 0 {
		fmt.Println("No file system inconsistencies detected!")
	} else {
		fmt.Printf("%d file system inconsistencies repaired!\n", rep.FixCount)
	}
	return nil
}
