package yorha

import (
	"fmt"
	"log/slog"

	"github.com/chanellr/yorha/internal/bitmap"
	"github.com/chanellr/yorha/internal/blockdev"
	"github.com/chanellr/yorha/internal/kerrors"
)

// FS is the mounted filesystem: superblock, both bitmaps and the inode
// table held in RAM, flushed to the block device at Shutdown (spec.md
// §3 Lifecycle). It is the kernel's one live filesystem instance — group
// it, along with the FD table and special-file registry it owns, into a
// single value passed by reference rather than scattering package globals
// (spec.md §9's "process-wide state" design note).
type FS struct {
	dev   blockdev.Device
	super Superblock
	iBmap *bitmap.Bitmap
	dBmap *bitmap.Bitmap
	table []InodeRecord

	fds      *fdTable
	registry *specialFileRegistry

	log *slog.Logger
}

// MountOption configures Mount, following the functional-option shape the
// teacher's writer package uses for WithBlockSize/WithCompression.
type MountOption func(*mountConfig)

type mountConfig struct {
	forceFormat  bool
	specialFiles []*SpecialFile
	logger       *slog.Logger
}

// ForceFormat formats the disk even if it already carries a recognized
// superblock.
func ForceFormat() MountOption {
	return func(c *mountConfig) { c.forceFormat = true }
}

// WithSpecialFiles registers the special-file set to create (or recognize)
// under /dev at mount time.
func WithSpecialFiles(files ...*SpecialFile) MountOption {
	return func(c *mountConfig) { c.specialFiles = files }
}

// WithLogger overrides the default logger, slog.Default().
func WithLogger(l *slog.Logger) MountOption {
	return func(c *mountConfig) { c.logger = l }
}

// Mount reads the superblock off dev. If it is unrecognized (or
// ForceFormat is given), the disk is formatted; otherwise the bitmaps and
// inode table are loaded from their recorded block addresses. Either way
// the special-file set is (re)opened, per spec.md §4.6.
func Mount(dev blockdev.Device, opts ...MountOption) (*FS, error) {
	cfg := mountConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	raw := make([]byte, BlockSize)
	if err := dev.ReadBlocks(SuperblockBlock, raw, 1); err != nil {
		return nil, fmt.Errorf("yorha: reading superblock: %w", err)
	}

	fs := &FS{dev: dev, fds: newFDTable(), log: cfg.logger}
	if err := fs.super.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("yorha: parsing superblock: %w", err)
	}

	if !cfg.forceFormat && fs.super.Recognized() {
		fs.log.Info("yorha: disk recognized, loading metadata")
		if err := fs.load(); err != nil {
			return nil, err
		}
	} else {
		fs.log.Info("yorha: formatting disk")
		if err := fs.format(); err != nil {
			return nil, err
		}
	}

	fs.registry = newSpecialFileRegistry(cfg.specialFiles)
	if err := fs.openAll(fs.registry); err != nil {
		return nil, err
	}
	return fs, nil
}

func (fs *FS) load() error {
	ibRaw := make([]byte, BlockSize)
	if err := fs.dev.ReadBlocks(fs.super.IBmapStart, ibRaw, 1); err != nil {
		return err
	}
	dbRaw := make([]byte, BlockSize)
	if err := fs.dev.ReadBlocks(fs.super.DBmapStart, dbRaw, 1); err != nil {
		return err
	}
	tableRaw := make([]byte, InodeTableBlocks*BlockSize)
	if err := fs.dev.ReadBlocks(fs.super.InodeTableStart, tableRaw, InodeTableBlocks); err != nil {
		return err
	}

	fs.iBmap = bitmap.Wrap(bytesToWords(ibRaw), InodesPerTable)
	fs.dBmap = bitmap.Wrap(bytesToWords(dbRaw), DataBitmapBits)
	fs.table = make([]InodeRecord, InodesPerTable)
	for i := range fs.table {
		off := i * InodeSize
		if err := fs.table[i].UnmarshalBinary(tableRaw[off : off+InodeSize]); err != nil {
			return err
		}
	}
	return nil
}

func (fs *FS) format() error {
	fs.super = Superblock{
		Magic:           Magic,
		DiskSize:        fs.dev.DiskSizeBytes(),
		SectorCount:     uint32(fs.dev.DiskSizeBytes() / blockdev.SectorSize),
		BlockCount:      InitialBlockCount,
		IBmapStart:      InodeBitmapBlock,
		DBmapStart:      DataBitmapBlock,
		InodeTableStart: InodeTableStart,
		DataStart:       DataStart,
		UsedInodes:      1,
	}

	fs.iBmap = bitmap.New(InodesPerTable)
	fs.dBmap = bitmap.New(DataBitmapBits)
	fs.table = make([]InodeRecord, InodesPerTable)

	// Root inode occupies bit 0.
	fs.iBmap.ApplyRange(0, 1, true)
	// Metadata blocks [0, data_start) are permanently allocated (I3),
	// plus the root directory's own data block.
	fs.dBmap.ApplyRange(0, DataStart+1, true)

	root := InodeRecord{
		FileType:       TypeDir,
		DataBlockStart: fs.super.DataStart,
		Size:           0,
		ParentInodeNum: rootParentInode,
	}
	fs.table[rootInodeNum] = root

	if err := fs.flush(); err != nil {
		return err
	}
	return fs.writeBlock(fs.super.DataStart, make([]byte, BlockSize))
}

func bytesToWords(b []byte) []uint32 {
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = order.Uint32(b[i*4 : i*4+4])
	}
	return words
}

func wordsToBytes(w []uint32) []byte {
	b := make([]byte, len(w)*4)
	for i, word := range w {
		order.PutUint32(b[i*4:i*4+4], word)
	}
	return b
}

func (fs *FS) readBlock(n uint32) ([]byte, error) {
	buf := make([]byte, BlockSize)
	if err := fs.dev.ReadBlocks(n, buf, 1); err != nil {
		return nil, err
	}
	return buf, nil
}

func (fs *FS) writeBlock(n uint32, data []byte) error {
	return fs.dev.WriteBlocks(n, data, 1)
}

// Shutdown closes every registered special file, then flushes superblock,
// inode bitmap, data bitmap and inode table to the block device, in that
// order (spec.md §4.6).
func (fs *FS) Shutdown() error {
	fs.log.Info("yorha: shutting down")
	fs.registry.closeAll(fs)
	return fs.flush()
}

func (fs *FS) flush() error {
	sbBytes, err := fs.super.MarshalBinary()
	if err != nil {
		return err
	}
	if err := fs.writeBlock(SuperblockBlock, sbBytes); err != nil {
		return err
	}
	if err := fs.writeBlock(fs.super.IBmapStart, padToBlock(wordsToBytes(fs.iBmap.Words()))); err != nil {
		return err
	}
	if err := fs.writeBlock(fs.super.DBmapStart, padToBlock(wordsToBytes(fs.dBmap.Words()))); err != nil {
		return err
	}

	tableRaw := make([]byte, InodeTableBlocks*BlockSize)
	for i := range fs.table {
		enc, err := fs.table[i].MarshalBinary()
		if err != nil {
			return err
		}
		copy(tableRaw[i*InodeSize:], enc)
	}
	return fs.dev.WriteBlocks(fs.super.InodeTableStart, tableRaw, InodeTableBlocks)
}

func padToBlock(b []byte) []byte {
	if len(b) >= BlockSize {
		return b[:BlockSize]
	}
	out := make([]byte, BlockSize)
	copy(out, b)
	return out
}

// seekDirectory resolves an absolute path to the inode number of the
// directory it names. The final component — whether or not the path ends
// in a slash — is returned; it is an error if that inode is not a
// directory (spec.md §4.6).
func (fs *FS) seekDirectory(path string) (uint32, error) {
	if len(path) == 0 || path[0] != '/' {
		return 0, kerrors.New(kerrors.BadPath, "relative indexing not implemented")
	}

	current := uint32(rootInodeNum)
	for _, comp := range splitComponents(path) {
		entries, err := fs.readDirEntries(&fs.table[current])
		if err != nil {
			return 0, err
		}
		next, found := findEntry(entries, comp)
		if !found {
			return 0, kerrors.New(kerrors.BadPath, "couldn't trace path")
		}
		current = next
	}

	if fs.table[current].FileType != TypeDir {
		return 0, kerrors.New(kerrors.BadPath, "file is not a directory")
	}
	return current, nil
}

func findEntry(entries []DirEntry, name string) (uint32, bool) {
	for _, e := range entries {
		if e.NameString() == name {
			return e.InodeNum, true
		}
	}
	return 0, false
}

// searchDir looks up filename directly within dirInodeNum's entries,
// without resolving a path.
func (fs *FS) searchDir(dirInodeNum uint32, filename string) (uint32, bool, error) {
	entries, err := fs.readDirEntries(&fs.table[dirInodeNum])
	if err != nil {
		return 0, false, err
	}
	ino, ok := findEntry(entries, filename)
	return ino, ok, nil
}

func (fs *FS) readDirEntries(inode *InodeRecord) ([]DirEntry, error) {
	count := int(inode.Size) / DirEntrySize
	if count == 0 {
		return nil, nil
	}
	buf, err := fs.readBlock(inode.DataBlockStart)
	if err != nil {
		return nil, err
	}
	entries := make([]DirEntry, count)
	for i := 0; i < count; i++ {
		off := i * DirEntrySize
		if err := entries[i].UnmarshalBinary(buf[off : off+DirEntrySize]); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func (fs *FS) writeDirEntries(inode *InodeRecord, entries []DirEntry) error {
	buf := make([]byte, BlockSize)
	for i, e := range entries {
		enc, err := e.MarshalBinary()
		if err != nil {
			return err
		}
		copy(buf[i*DirEntrySize:], enc)
	}
	return fs.writeBlock(inode.DataBlockStart, buf)
}

func (fs *FS) allocInode() (uint32, error) {
	r := fs.iBmap.AllocRange(1, false)
	if r.Empty() {
		return 0, kerrors.New(kerrors.NoSpace, "no free inodes")
	}
	fs.super.UsedInodes++
	return r.Start, nil
}

func (fs *FS) freeInode(n uint32) {
	fs.iBmap.DeallocRange(bitmap.Range{Start: n, Length: 1})
	fs.super.UsedInodes--
}

func (fs *FS) allocDataBlock() (uint32, error) {
	r := fs.dBmap.AllocRange(1, false)
	if r.Empty() {
		return 0, kerrors.New(kerrors.NoSpace, "no free data blocks")
	}
	return r.Start, nil
}

func (fs *FS) freeDataBlock(n uint32) {
	fs.dBmap.DeallocRange(bitmap.Range{Start: n, Length: 1})
}

// createFiletype is the shared implementation behind Create, Mkdir and the
// special-file registry's own file creation (spec.md §4.6).
func (fs *FS) createFiletype(path string, ftype FileType, allocFD bool) (int, error) {
	if len(path) == 0 || path[0] != '/' {
		return -1, kerrors.New(kerrors.BadPath, "relative addressing unimplemented")
	}

	dirPath, filename := splitPath(path)
	parentInodeNum, err := fs.seekDirectory(dirPath)
	if err != nil {
		return -1, err
	}

	parent := &fs.table[parentInodeNum]
	entries, err := fs.readDirEntries(parent)
	if err != nil {
		return -1, err
	}
	if _, exists := findEntry(entries, filename); exists {
		return -1, kerrors.Newf(kerrors.AlreadyExists, "can't create file under same name: %s", filename)
	}
	if len(entries) >= MaxDirEntries {
		return -1, kerrors.New(kerrors.NoSpace, "directory is full")
	}

	fileInodeNum, err := fs.allocInode()
	if err != nil {
		return -1, err
	}

	var dataBlockStart uint32
	if ftype != TypeSpecial {
		dataBlockStart, err = fs.allocDataBlock()
		if err != nil {
			fs.freeInode(fileInodeNum)
			return -1, err
		}
	}

	rec := InodeRecord{FileType: ftype, DataBlockStart: dataBlockStart, ParentInodeNum: parentInodeNum}
	setName(&rec.Name, filename)
	fs.table[fileInodeNum] = rec

	if dataBlockStart != 0 {
		if err := fs.writeBlock(dataBlockStart, make([]byte, BlockSize)); err != nil {
			fs.unwindCreate(parentInodeNum, fileInodeNum, dataBlockStart, false)
			return -1, err
		}
	}

	entries = append(entries, newDirEntry(filename, fileInodeNum))
	if err := fs.writeDirEntries(parent, entries); err != nil {
		fs.unwindCreate(parentInodeNum, fileInodeNum, dataBlockStart, false)
		return -1, err
	}
	parent.Size += DirEntrySize

	if !allocFD {
		return 0, nil
	}

	fd, ok := fs.fds.alloc(fileInodeNum, filename)
	if !ok {
		fs.unwindCreate(parentInodeNum, fileInodeNum, dataBlockStart, true)
		return -1, kerrors.New(kerrors.NoSpace, "no free file descriptors")
	}
	return fd, nil
}

func newDirEntry(name string, inodeNum uint32) DirEntry {
	var e DirEntry
	setName(&e.Name, name)
	e.InodeNum = inodeNum
	return e
}

// unwindCreate rolls back a partially completed createFiletype call: remove
// the directory entry (if linked), free the data bit (if allocated) and
// free the inode bit.
func (fs *FS) unwindCreate(parentInodeNum, fileInodeNum, dataBlockStart uint32, linked bool) {
	if linked {
		parent := &fs.table[parentInodeNum]
		entries, err := fs.readDirEntries(parent)
		if err == nil {
			entries = removeEntry(entries, fileInodeNum)
			if err := fs.writeDirEntries(parent, entries); err == nil {
				parent.Size -= DirEntrySize
			}
		}
	}
	if dataBlockStart != 0 {
		fs.freeDataBlock(dataBlockStart)
	}
	fs.freeInode(fileInodeNum)
}

func removeEntry(entries []DirEntry, inodeNum uint32) []DirEntry {
	out := entries[:0]
	for _, e := range entries {
		if e.InodeNum != inodeNum {
			out = append(out, e)
		}
	}
	return out
}

// Create creates a NORMAL file and opens it, returning its FD.
func (fs *FS) Create(path string) (int, error) {
	return fs.createFiletype(path, TypeNormal, true)
}

// Mkdir creates a DIR inode. It is not opened; mkdir returns no FD.
func (fs *FS) Mkdir(path string) error {
	_, err := fs.createFiletype(path, TypeDir, false)
	return err
}

// Open resolves path and allocates an FD for the file it names. Directories
// may be opened (e.g. for ListDir) but not read or written as bytes.
func (fs *FS) Open(path string) (int, error) {
	dirPath, filename := splitPath(path)
	dirInodeNum, err := fs.seekDirectory(dirPath)
	if err != nil {
		return -1, err
	}
	fileInodeNum, ok, err := fs.searchDir(dirInodeNum, filename)
	if err != nil {
		return -1, err
	}
	if !ok {
		return -1, kerrors.New(kerrors.NoSuchFile, "file doesn't exist")
	}
	fd, ok := fs.fds.alloc(fileInodeNum, filename)
	if !ok {
		return -1, kerrors.New(kerrors.NoSpace, "no free file descriptors")
	}
	return fd, nil
}

// Close clears fd's bit. It does not flush; writes are already
// write-through.
func (fs *FS) Close(fd int) error {
	if !fs.fds.valid(fd) {
		return kerrors.New(kerrors.BadFd, "file descriptor is not allocated")
	}
	fs.fds.free(fd)
	return nil
}

// Read reads up to len(buf) bytes through fd. Reaching end-of-file on an
// ordinary file returns (0, nil); a special file's handler decides what 0
// means for it.
func (fs *FS) Read(fd int, buf []byte) (int, error) {
	if !fs.fds.valid(fd) {
		return -1, kerrors.New(kerrors.BadFd, "file descriptor is not allocated")
	}
	entry := fs.fds.get(fd)
	inode := &fs.table[entry.inodeNum]

	if inode.FileType == TypeSpecial {
		return fs.dispatchSpecial(true, fd, inode, buf)
	}
	if inode.FileType == TypeDir {
		return -1, kerrors.New(kerrors.BadPath, "file is a directory")
	}

	block, err := fs.readBlock(inode.DataBlockStart)
	if err != nil {
		return -1, err
	}

	n := 0
	for entry.readPos < uint64(inode.Size) && n < len(buf) {
		buf[n] = block[entry.readPos]
		entry.readPos++
		n++
	}
	return n, nil
}

// Write writes len(buf) bytes (capped at BlockSize - write_pos) through fd.
func (fs *FS) Write(fd int, buf []byte) (int, error) {
	if !fs.fds.valid(fd) {
		return -1, kerrors.New(kerrors.BadFd, "file descriptor is not allocated")
	}
	entry := fs.fds.get(fd)
	inode := &fs.table[entry.inodeNum]

	if inode.FileType == TypeSpecial {
		return fs.dispatchSpecial(false, fd, inode, buf)
	}
	if inode.FileType == TypeDir {
		return -1, kerrors.New(kerrors.BadPath, "file is a directory")
	}

	block, err := fs.readBlock(inode.DataBlockStart)
	if err != nil {
		return -1, err
	}

	n := 0
	for entry.writePos < BlockSize && n < len(buf) {
		block[entry.writePos] = buf[n]
		entry.writePos++
		n++
		inode.Size++
	}
	if err := fs.writeBlock(inode.DataBlockStart, block); err != nil {
		return -1, err
	}
	return n, nil
}

func (fs *FS) dispatchSpecial(isRead bool, fd int, inode *InodeRecord, buf []byte) (int, error) {
	sf, ok := fs.registry.lookup(inode.NameString())
	if !ok {
		return 0, kerrors.Newf(kerrors.BadPath, "no handler registered for special file %s", inode.NameString())
	}
	return sf.Handler(isRead, fd, buf, len(buf))
}

// Seek repositions both the read and write cursors of fd.
func (fs *FS) Seek(fd int, offset int64, whence Whence) (int64, error) {
	if !fs.fds.valid(fd) {
		return -1, kerrors.New(kerrors.BadFd, "file descriptor is not allocated")
	}
	entry := fs.fds.get(fd)
	inode := &fs.table[entry.inodeNum]

	var pos int64
	switch whence {
	case SeekSet:
		pos = offset
	case SeekCur:
		pos = int64(entry.readPos) + offset
	case SeekEnd:
		pos = int64(inode.Size) - offset
	default:
		return -1, kerrors.Newf(kerrors.BadPath, "invalid whence %d", whence)
	}
	if pos < 0 {
		pos = 0
	}
	entry.readPos = uint64(pos)
	entry.writePos = uint64(pos)
	return pos, nil
}

// Unlink removes path from its parent directory and frees its inode and
// data block.
func (fs *FS) Unlink(path string) error {
	dirPath, filename := splitPath(path)
	dirInodeNum, err := fs.seekDirectory(dirPath)
	if err != nil {
		return err
	}
	fileInodeNum, ok, err := fs.searchDir(dirInodeNum, filename)
	if err != nil {
		return err
	}
	if !ok {
		return kerrors.New(kerrors.NoSuchFile, "file doesn't exist")
	}

	parent := &fs.table[dirInodeNum]
	entries, err := fs.readDirEntries(parent)
	if err != nil {
		return err
	}
	entries = removeEntry(entries, fileInodeNum)
	if err := fs.writeDirEntries(parent, entries); err != nil {
		return err
	}
	parent.Size -= DirEntrySize

	file := fs.table[fileInodeNum]
	if file.DataBlockStart != 0 {
		fs.freeDataBlock(file.DataBlockStart)
	}
	fs.freeInode(fileInodeNum)
	return nil
}

// EntryInfo describes one directory entry's name and inode metadata,
// exported for host-side consumers (e.g. a FUSE adapter) that need more
// than the "path+name\n" text ListDir produces.
type EntryInfo struct {
	Name string
	Type FileType
	Size uint32
}

// ListEntries resolves path to a directory and returns its entries with
// their inode type and size.
func (fs *FS) ListEntries(path string) ([]EntryInfo, error) {
	dirInodeNum, err := fs.seekDirectory(path)
	if err != nil {
		return nil, err
	}
	entries, err := fs.readDirEntries(&fs.table[dirInodeNum])
	if err != nil {
		return nil, err
	}
	out := make([]EntryInfo, len(entries))
	for i, e := range entries {
		inode := fs.table[e.InodeNum]
		out[i] = EntryInfo{Name: inode.NameString(), Type: inode.FileType, Size: inode.Size}
	}
	return out, nil
}

// Stat resolves path to either a directory or a file and reports its type
// and size without allocating an FD.
func (fs *FS) Stat(path string) (FileType, uint32, error) {
	if path == "/" {
		root := fs.table[rootInodeNum]
		return root.FileType, root.Size, nil
	}
	dirPath, filename := splitPath(path)
	dirInodeNum, err := fs.seekDirectory(dirPath)
	if err != nil {
		return 0, 0, err
	}
	inodeNum, ok, err := fs.searchDir(dirInodeNum, filename)
	if err != nil {
		return 0, 0, err
	}
	if !ok {
		return 0, 0, kerrors.New(kerrors.NoSuchFile, "file doesn't exist")
	}
	inode := fs.table[inodeNum]
	return inode.FileType, inode.Size, nil
}

// ListDir writes "path+name\n" lines for every entry of the directory path
// resolves to into buf, returning the number of bytes written.
func (fs *FS) ListDir(path string, buf []byte) (int, error) {
	dirInodeNum, err := fs.seekDirectory(path)
	if err != nil {
		return 0, err
	}
	entries, err := fs.readDirEntries(&fs.table[dirInodeNum])
	if err != nil {
		return 0, err
	}

	n := 0
	for _, e := range entries {
		line := path + e.NameString() + "\n"
		n += copy(buf[n:], line)
	}
	return n, nil
}

// StrListDir returns the same lines ListDir would write, joined by "\n"
// with no trailing newline.
func (fs *FS) StrListDir(path string) (string, error) {
	dirInodeNum, err := fs.seekDirectory(path)
	if err != nil {
		return "", err
	}
	entries, err := fs.readDirEntries(&fs.table[dirInodeNum])
	if err != nil {
		return "", err
	}

	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = path + e.NameString()
	}
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out, nil
}
