package main

import (
	"bufio"
	"bytes"
	"fmt"
	"os"

	"github.com/chanellr/yorha/internal/blockdev"
	"github.com/chanellr/yorha/internal/heap"
	"github.com/chanellr/yorha/internal/kernel"
	"github.com/chanellr/yorha/internal/yorha"
)

const usage = `yorha - block-addressed disk filesystem CLI

Usage:
  yorha mkfs <image>                 Format a fresh disk image
  yorha shell <image>                Open an interactive shell over an image
  yorha ls <image> <path>            List a directory's entries
  yorha cat <image> <path>           Print a file's contents
  yorha help                         Show this help message

Shell commands (yorha shell <image>):
  create <path>                      Create and open a file
  mkdir <path>                       Create a directory
  unlink <path>                      Remove a file or empty directory
  ls <path>                          List a directory's entries
  sget <path>                        Drain /dev/ttyS to a host file until
                                      EOT or 5s of inactivity
  lasterr                            Print the last error message
  exit, quit                         Leave the shell

Examples:
  yorha mkfs disk.img
  yorha shell disk.img
  yorha ls disk.img /dir/
  yorha cat disk.img /hello
`

// diskSizeBytes is the fixed image size mkfs formats. The superblock's own
// block_count field still records the usual 64-block freshly-formatted
// layout (spec.md §6), but the data bitmap addresses a full bitmap-block's
// worth of bits regardless of physical disk size, so the backing image is
// sized well past 64 blocks — large enough that a single directory can
// actually be filled to its MaxDirEntries cap (spec.md §8 scenario 4)
// without running out of physical data blocks first.
const diskSizeBytes = 128 * yorha.BlockSize

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "mkfs":
		if len(os.Args) < 3 {
			err = fmt.Errorf("missing image path")
		} else {
			err = mkfs(os.Args[2])
		}
	case "shell":
		if len(os.Args) < 3 {
			err = fmt.Errorf("missing image path")
		} else {
			err = shell(os.Args[2])
		}
	case "ls":
		if len(os.Args) < 4 {
			err = fmt.Errorf("missing image path or directory")
		} else {
			err = ls(os.Args[2], os.Args[3])
		}
	case "cat":
		if len(os.Args) < 4 {
			err = fmt.Errorf("missing image path or file")
		} else {
			err = cat(os.Args[2], os.Args[3])
		}
	case "help":
		fmt.Println(usage)
	default:
		fmt.Printf("Error: Unknown command '%s'\n", cmd)
		fmt.Println(usage)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func mkfs(path string) error {
	dev, err := blockdev.OpenFile(path, diskSizeBytes)
	if err != nil {
		return fmt.Errorf("opening image: %w", err)
	}
	defer dev.Close()

	fs, err := yorha.Mount(dev, yorha.ForceFormat())
	if err != nil {
		return fmt.Errorf("formatting: %w", err)
	}
	return fs.Shutdown()
}

func ls(path, dir string) error {
	dev, err := blockdev.OpenFile(path, diskSizeBytes)
	if err != nil {
		return fmt.Errorf("opening image: %w", err)
	}
	defer dev.Close()

	fs, err := yorha.Mount(dev)
	if err != nil {
		return fmt.Errorf("mounting: %w", err)
	}
	defer fs.Shutdown()

	buf := make([]byte, yorha.BlockSize)
	n, err := fs.ListDir(dir, buf)
	if err != nil {
		return fmt.Errorf("listing %s: %w", dir, err)
	}
	os.Stdout.Write(buf[:n])
	return nil
}

func cat(path, file string) error {
	dev, err := blockdev.OpenFile(path, diskSizeBytes)
	if err != nil {
		return fmt.Errorf("opening image: %w", err)
	}
	defer dev.Close()

	fs, err := yorha.Mount(dev)
	if err != nil {
		return fmt.Errorf("mounting: %w", err)
	}
	defer fs.Shutdown()

	fd, err := fs.Open(file)
	if err != nil {
		return fmt.Errorf("opening %s: %w", file, err)
	}
	defer fs.Close(fd)

	buf := make([]byte, yorha.BlockSize)
	n, err := fs.Read(fd, buf)
	if err != nil {
		return fmt.Errorf("reading %s: %w", file, err)
	}
	os.Stdout.Write(buf[:n])
	return nil
}

// shell is a REPL exercising the syscall surface directly, tokenizing
// each line with the heap package's String/Split the way the original
// shell parses commands out of a line buffer (spec.md §6).
func shell(path string) error {
	dev, err := blockdev.OpenFile(path, diskSizeBytes)
	if err != nil {
		return fmt.Errorf("opening image: %w", err)
	}
	defer dev.Close()

	kc, err := kernel.Boot(dev)
	if err != nil {
		return fmt.Errorf("booting: %w", err)
	}
	defer kc.Shutdown()

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("yorha> ")
	for scanner.Scan() {
		runCommand(kc, scanner.Text())
		fmt.Print("yorha> ")
	}
	return scanner.Err()
}

func runCommand(kc *kernel.Context, line string) {
	args := heap.Split(line, ' ', true)
	if len(args.Items) == 0 {
		return
	}
	words := make([]string, len(args.Items))
	for i := range args.Items {
		words[i] = args.Items[i].String()
	}

	switch words[0] {
	case "create":
		if len(words) < 2 {
			fmt.Println("usage: create <path>")
			return
		}
		fmt.Println(kc.Create(words[1]))
	case "mkdir":
		if len(words) < 2 {
			fmt.Println("usage: mkdir <path>")
			return
		}
		fmt.Println(kc.Mkdir(words[1]))
	case "unlink":
		if len(words) < 2 {
			fmt.Println("usage: unlink <path>")
			return
		}
		fmt.Println(kc.Unlink(words[1]))
	case "ls":
		if len(words) < 2 {
			fmt.Println("usage: ls <path>")
			return
		}
		buf := make([]byte, yorha.BlockSize)
		kc.ListDir(words[1], buf)
		os.Stdout.Write(bytes.TrimRight(buf, "\x00"))
	case "sget":
		if len(words) < 2 {
			fmt.Println("usage: sget <path>")
			return
		}
		f, err := os.Create(words[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			return
		}
		defer f.Close()
		if err := kc.Sget(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
	case "lasterr":
		fmt.Println(kc.LastError())
	case "exit", "quit":
		os.Exit(0)
	default:
		fmt.Printf("unknown command %q\n", words[0])
	}
}
