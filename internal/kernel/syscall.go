package kernel

import "github.com/chanellr/yorha/internal/yorha"

// This file is C11: a thin dispatcher over the filesystem that converts
// Go's (result, error) convention into the original's uniform -1-on-
// failure convention, pushing every failure into the error channel first
// (spec.md §4.10).

// Create creates and opens a NORMAL file, returning its FD or -1.
func (kc *Context) Create(path string) int {
	fd, err := kc.fs.Create(path)
	if err != nil {
		kc.pushErr(err)
		return -1
	}
	return fd
}

// Open resolves path and returns its FD, or -1.
func (kc *Context) Open(path string) int {
	fd, err := kc.fs.Open(path)
	if err != nil {
		kc.pushErr(err)
		return -1
	}
	return fd
}

// Close releases fd, returning 0 or -1.
func (kc *Context) Close(fd int) int {
	if err := kc.fs.Close(fd); err != nil {
		kc.pushErr(err)
		return -1
	}
	return 0
}

// Read reads up to len(buf) bytes through fd. 0 means EOF on an ordinary
// file or "no byte ready" on a special file; -1 signals failure.
func (kc *Context) Read(fd int, buf []byte) int {
	n, err := kc.fs.Read(fd, buf)
	if err != nil {
		kc.pushErr(err)
		return -1
	}
	return n
}

// Write writes buf through fd, returning the byte count or -1.
func (kc *Context) Write(fd int, buf []byte) int {
	n, err := kc.fs.Write(fd, buf)
	if err != nil {
		kc.pushErr(err)
		return -1
	}
	return n
}

// Seek repositions fd, returning the new offset or -1.
func (kc *Context) Seek(fd int, offset int64, whence yorha.Whence) int64 {
	pos, err := kc.fs.Seek(fd, offset, whence)
	if err != nil {
		kc.pushErr(err)
		return -1
	}
	return pos
}

// Unlink removes path, returning 0 or -1.
func (kc *Context) Unlink(path string) int {
	if err := kc.fs.Unlink(path); err != nil {
		kc.pushErr(err)
		return -1
	}
	return 0
}

// Mkdir creates a directory, returning 0 or -1.
func (kc *Context) Mkdir(path string) int {
	if err := kc.fs.Mkdir(path); err != nil {
		kc.pushErr(err)
		return -1
	}
	return 0
}

// ListDir writes "path+name\n" lines for path's entries into buf, as the
// original's void-returning list_dir does; failures are only observable
// through the error channel.
func (kc *Context) ListDir(path string, buf []byte) {
	if _, err := kc.fs.ListDir(path, buf); err != nil {
		kc.pushErr(err)
	}
}

// Shutdown flushes the mounted filesystem to its block device.
func (kc *Context) Shutdown() {
	if err := kc.fs.Shutdown(); err != nil {
		kc.pushErr(err)
	}
}
