package yorha

import "fmt"

// Handler dispatches a read or write on a special file to an in-kernel
// implementation. isRead discriminates the two directions, matching the
// original file_handler signature (spec.md §4.5/§6).
type Handler func(isRead bool, fd int, buf []byte, count int) (int, error)

// SpecialFile is one entry of the special-file registry (C6): a well-known
// name under /dev, the handler it dispatches reads/writes to, and an Init
// hook invoked once the file has been created and opened.
type SpecialFile struct {
	Name    string
	Handler Handler
	Init    func(fd int) error

	fd int
}

// specialFileRegistry groups the active set of special files for a mounted
// filesystem.
type specialFileRegistry struct {
	files []*SpecialFile
}

func newSpecialFileRegistry(files []*SpecialFile) *specialFileRegistry {
	return &specialFileRegistry{files: files}
}

func (r *specialFileRegistry) lookup(name string) (*SpecialFile, bool) {
	for _, f := range r.files {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// openAll creates /dev and one SPECIAL inode per registered file (if not
// already present), opens each, and invokes its own Init with its own FD —
// fixing the original's open_system_files bug, which invoked only the
// first entry's init function (spec.md §9).
func (fs *FS) openAll(r *specialFileRegistry) error {
	if err := fs.mkdirIfMissing("/dev"); err != nil {
		return err
	}

	for _, f := range r.files {
		path := "/dev/" + f.Name
		fd, err := fs.Open(path)
		if err != nil {
			fd, err = fs.createFiletype(path, TypeSpecial, true)
			if err != nil {
				return fmt.Errorf("yorha: creating special file %s: %w", path, err)
			}
		}
		f.fd = fd
		if f.Init != nil {
			if err := f.Init(fd); err != nil {
				return fmt.Errorf("yorha: initializing special file %s: %w", path, err)
			}
		}
	}
	return nil
}

func (fs *FS) mkdirIfMissing(path string) error {
	if _, err := fs.seekDirectory(path); err == nil {
		return nil
	}
	return fs.Mkdir(path)
}

// closeAll closes every registered special file's FD, as Shutdown requires.
func (r *specialFileRegistry) closeAll(fs *FS) {
	for _, f := range r.files {
		fs.Close(f.fd)
	}
}
