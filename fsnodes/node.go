// Package fsnodes adapts a mounted yorha filesystem to go-fuse's
// InodeEmbedder so it can be exposed read-only at a host mountpoint,
// grounded on the teacher's inode_fuse.go Lookup/Open/OpenDir/ReadDir
// adapter, rewritten against go-fuse's higher-level fs package rather
// than raw fuse.RawFileSystem, and against yorha's semantics instead of
// squashfs's.
package fsnodes

import (
	"context"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/chanellr/yorha/internal/yorha"
)

// Node is one FUSE inode: a path into the mounted filesystem plus the
// filesystem it belongs to. Directories and files share this type, same
// as the teacher's single Inode handles both via i.Type.
type Node struct {
	fs.Inode

	fsys *yorha.FS
	path string
}

var (
	_ fs.NodeGetattrer = (*Node)(nil)
	_ fs.NodeLookuper  = (*Node)(nil)
	_ fs.NodeReaddirer = (*Node)(nil)
	_ fs.NodeOpener    = (*Node)(nil)
	_ fs.NodeReader    = (*Node)(nil)
)

// Root returns the InodeEmbedder for fsys's root directory, suitable for
// fs.Mount's root argument.
func Root(fsys *yorha.FS) fs.InodeEmbedder {
	return &Node{fsys: fsys, path: "/"}
}

func childPath(dirPath, name string) string {
	if dirPath == "/" {
		return "/" + name
	}
	return dirPath + "/" + name
}

// Getattr reports the inode's type and size, same information Stat
// surfaces at the yorha layer.
func (n *Node) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	ftype, size, err := n.fsys.Stat(n.path)
	if err != nil {
		return syscall.ENOENT
	}
	out.Mode = modeForType(ftype)
	out.Size = uint64(size)
	return 0
}

// Lookup resolves name under this directory into a child Node.
func (n *Node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	path := childPath(n.path, name)
	ftype, size, err := n.fsys.Stat(path)
	if err != nil {
		return nil, syscall.ENOENT
	}
	out.Mode = modeForType(ftype)
	out.Size = uint64(size)

	child := &Node{fsys: n.fsys, path: path}
	mode := fuse.S_IFREG
	if ftype == yorha.TypeDir {
		mode = fuse.S_IFDIR
	}
	return n.NewInode(ctx, child, fs.StableAttr{Mode: uint32(mode)}), 0
}

// Readdir lists the directory's entries, skipping special files (the
// special-file registry has no meaning over FUSE). The /dev directory
// itself is still listed, and shows as empty.
func (n *Node) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	entries, err := n.fsys.ListEntries(n.path)
	if err != nil {
		return nil, syscall.EIO
	}

	var list []fuse.DirEntry
	for _, e := range entries {
		if e.Type == yorha.TypeSpecial {
			continue
		}
		mode := uint32(fuse.S_IFREG)
		if e.Type == yorha.TypeDir {
			mode = fuse.S_IFDIR
		}
		list = append(list, fuse.DirEntry{Name: e.Name, Mode: mode})
	}
	return fs.NewListDirStream(list), 0
}

// Open only permits read-only access; the mount never writes back to the
// underlying disk image.
func (n *Node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	if flags&(syscall.O_WRONLY|syscall.O_RDWR) != 0 {
		return nil, 0, syscall.EROFS
	}
	return nil, fuse.FOPEN_KEEP_CACHE, 0
}

// Read opens its own FD per call, seeks to off and reads through the
// filesystem's ordinary (non-special) read path.
func (n *Node) Read(ctx context.Context, f fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	fd, err := n.fsys.Open(n.path)
	if err != nil {
		return nil, syscall.EIO
	}
	defer n.fsys.Close(fd)

	if _, err := n.fsys.Seek(fd, off, yorha.SeekSet); err != nil {
		return nil, syscall.EIO
	}
	total := 0
	for total < len(dest) {
		got, err := n.fsys.Read(fd, dest[total:])
		if err != nil {
			return nil, syscall.EIO
		}
		if got == 0 {
			break
		}
		total += got
	}
	return fuse.ReadResultData(dest[:total]), 0
}

// modeForType maps a yorha.FileType onto the closest POSIX mode bits.
func modeForType(t yorha.FileType) uint32 {
	switch t {
	case yorha.TypeDir:
		return fuse.S_IFDIR | 0o555
	case yorha.TypeSpecial:
		return fuse.S_IFCHR | 0o444
	default:
		return fuse.S_IFREG | 0o444
	}
}
