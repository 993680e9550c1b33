package arena

import (
	"context"
	"strings"
	"time"

	"github.com/example/arenafs/pkg/fs"
)

// ArenaFS implements fs.FileSystem over a caller-supplied byte region.
//
// The engine assumes single-threaded, single-client mutation: the host
// serializes calls, and ArenaFS performs no internal locking. It never
// allocates persistent state outside the region and never retains a
// reference into the region across calls, so the host may unmap the
// region between engines and remap it at a different address.
type ArenaFS struct {
	region
}

var _ fs.FileSystem = (*ArenaFS)(nil)

// NewArenaFS creates an engine over buf. A fresh, all-zero region is
// formatted on first use; a previously formatted region is validated
// and reopened with its contents intact.
func NewArenaFS(buf []byte) (*ArenaFS, error) {
	if uint64(len(buf)) < MinArenaSize {
		return nil, fs.NewError("init", "", fs.ErrInvalid)
	}
	m := &ArenaFS{region{buf}}
	if _, err := m.mount(); err != nil {
		return nil, fs.NewError("init", "", err)
	}
	return m, nil
}

// GetAttr retrieves attributes for the file or directory at path.
func (m *ArenaFS) GetAttr(ctx context.Context, path string) (fs.FileInfo, error) {
	sb, err := m.mount()
	if err != nil {
		return fs.FileInfo{}, fs.NewError("GetAttr", path, err)
	}
	n, err := m.resolve(sb, path)
	if err != nil {
		return fs.FileInfo{}, fs.NewError("GetAttr", path, err)
	}
	return fileInfo(n), nil
}

// ReadDir lists the user-visible entries of the directory at path. The
// synthetic "." and ".." entries are excluded. The returned slice is
// freshly allocated and shares no storage with the arena.
func (m *ArenaFS) ReadDir(ctx context.Context, path string) ([]fs.DirEntry, error) {
	sb, err := m.mount()
	if err != nil {
		return nil, fs.NewError("ReadDir", path, err)
	}
	dir, err := m.resolve(sb, path)
	if err != nil {
		return nil, fs.NewError("ReadDir", path, err)
	}
	if !dir.isDir() {
		return nil, fs.NewError("ReadDir", path, fs.ErrNotDir)
	}
	blk, err := m.dirBlock(dir)
	if err != nil {
		return nil, fs.NewError("ReadDir", path, err)
	}
	var entries []fs.DirEntry
	for i := 0; i < entryCount(dir); i++ {
		e := blk[i*DirEntrySize : (i+1)*DirEntrySize]
		name := entryName(e)
		if name == "." || name == ".." {
			continue
		}
		target, err := m.node(sb, entryInodeOff(e))
		if err != nil {
			return nil, fs.NewError("ReadDir", path, err)
		}
		typ := fs.FileTypeRegular
		if target.isDir() {
			typ = fs.FileTypeDirectory
		}
		entries = append(entries, fs.DirEntry{Name: name, Type: typ})
	}
	return entries, nil
}

// Mknod creates an empty regular file at path. The file's data block
// is allocated lazily on first write.
func (m *ArenaFS) Mknod(ctx context.Context, path string) error {
	sb, err := m.mount()
	if err != nil {
		return fs.NewError("Mknod", path, err)
	}
	parent, name, err := m.resolveParent(sb, path)
	if err != nil {
		return fs.NewError("Mknod", path, err)
	}
	if name == "/" {
		return fs.NewError("Mknod", path, fs.ErrExist)
	}
	if err := checkEntryName(name); err != nil {
		return fs.NewError("Mknod", path, err)
	}
	if idx, _, err := m.findEntry(parent, name); err != nil {
		return fs.NewError("Mknod", path, err)
	} else if idx >= 0 {
		return fs.NewError("Mknod", path, fs.ErrExist)
	}
	if entryCount(parent) >= EntriesPerBlock {
		return fs.NewError("Mknod", path, fs.ErrNoSpace)
	}
	inodeOff, err := m.findFreeInode(sb)
	if err != nil {
		return fs.NewError("Mknod", path, err)
	}
	n, err := m.node(sb, inodeOff)
	if err != nil {
		return fs.NewError("Mknod", path, err)
	}
	now := time.Now()
	n.setMode(modeReg)
	n.setNlink(1)
	n.setAtime(now)
	n.setMtime(now)
	n.setCtime(now)
	if err := m.addEntry(parent, name, inodeOff); err != nil {
		m.freeInode(sb, inodeOff)
		return fs.NewError("Mknod", path, err)
	}
	return nil
}

// Mkdir creates a directory at path, allocating its entry block and
// seeding the synthetic "." and ".." entries.
func (m *ArenaFS) Mkdir(ctx context.Context, path string) error {
	sb, err := m.mount()
	if err != nil {
		return fs.NewError("Mkdir", path, err)
	}
	parent, name, err := m.resolveParent(sb, path)
	if err != nil {
		return fs.NewError("Mkdir", path, err)
	}
	if name == "/" {
		return fs.NewError("Mkdir", path, fs.ErrExist)
	}
	if err := checkEntryName(name); err != nil {
		return fs.NewError("Mkdir", path, err)
	}
	if idx, _, err := m.findEntry(parent, name); err != nil {
		return fs.NewError("Mkdir", path, err)
	} else if idx >= 0 {
		return fs.NewError("Mkdir", path, fs.ErrExist)
	}
	if entryCount(parent) >= EntriesPerBlock {
		return fs.NewError("Mkdir", path, fs.ErrNoSpace)
	}
	inodeOff, err := m.findFreeInode(sb)
	if err != nil {
		return fs.NewError("Mkdir", path, err)
	}
	blockOff, err := m.findFreeDataBlock(sb)
	if err != nil {
		m.freeInode(sb, inodeOff)
		return fs.NewError("Mkdir", path, err)
	}
	n, err := m.node(sb, inodeOff)
	if err != nil {
		return fs.NewError("Mkdir", path, err)
	}
	now := time.Now()
	n.setMode(modeDir)
	n.setNlink(2)
	n.setBlockOff(blockOff)
	n.setAtime(now)
	n.setMtime(now)
	n.setCtime(now)
	blk, err := m.window(blockOff, BlockSize)
	if err != nil {
		return fs.NewError("Mkdir", path, err)
	}
	setEntry(blk[0*DirEntrySize:1*DirEntrySize], ".", inodeOff)
	setEntry(blk[1*DirEntrySize:2*DirEntrySize], "..", parent.off)
	n.setSize(2 * DirEntrySize)
	if err := m.addEntry(parent, name, inodeOff); err != nil {
		m.freeDataBlock(sb, blockOff)
		m.freeInode(sb, inodeOff)
		return fs.NewError("Mkdir", path, err)
	}
	parent.setNlink(parent.nlink() + 1)
	return nil
}

// Unlink removes the regular file at path. The directory entry goes
// first, then the data block and inode slot are released, so no entry
// ever points at a freed inode.
func (m *ArenaFS) Unlink(ctx context.Context, path string) error {
	sb, err := m.mount()
	if err != nil {
		return fs.NewError("Unlink", path, err)
	}
	parent, name, err := m.resolveParent(sb, path)
	if err != nil {
		return fs.NewError("Unlink", path, err)
	}
	if err := checkEntryName(name); err != nil {
		return fs.NewError("Unlink", path, err)
	}
	idx, inodeOff, err := m.findEntry(parent, name)
	if err != nil {
		return fs.NewError("Unlink", path, err)
	}
	if idx < 0 {
		return fs.NewError("Unlink", path, fs.ErrNotExist)
	}
	n, err := m.node(sb, inodeOff)
	if err != nil {
		return fs.NewError("Unlink", path, err)
	}
	if n.isDir() {
		return fs.NewError("Unlink", path, fs.ErrIsDir)
	}
	if err := m.removeEntry(parent, name); err != nil {
		return fs.NewError("Unlink", path, err)
	}
	if off := n.blockOff(); off != 0 {
		if err := m.freeDataBlock(sb, off); err != nil {
			return fs.NewError("Unlink", path, err)
		}
	}
	if err := m.freeInode(sb, inodeOff); err != nil {
		return fs.NewError("Unlink", path, err)
	}
	return nil
}

// Rmdir removes the empty directory at path. The root directory is
// never removable.
func (m *ArenaFS) Rmdir(ctx context.Context, path string) error {
	sb, err := m.mount()
	if err != nil {
		return fs.NewError("Rmdir", path, err)
	}
	if len(splitPath(path)) == 0 {
		return fs.NewError("Rmdir", path, fs.ErrBusy)
	}
	parent, name, err := m.resolveParent(sb, path)
	if err != nil {
		return fs.NewError("Rmdir", path, err)
	}
	if err := checkEntryName(name); err != nil {
		return fs.NewError("Rmdir", path, err)
	}
	idx, inodeOff, err := m.findEntry(parent, name)
	if err != nil {
		return fs.NewError("Rmdir", path, err)
	}
	if idx < 0 {
		return fs.NewError("Rmdir", path, fs.ErrNotExist)
	}
	n, err := m.node(sb, inodeOff)
	if err != nil {
		return fs.NewError("Rmdir", path, err)
	}
	if !n.isDir() {
		return fs.NewError("Rmdir", path, fs.ErrNotDir)
	}
	if userEntryCount(n) > 0 {
		return fs.NewError("Rmdir", path, fs.ErrNotEmpty)
	}
	if err := m.removeEntry(parent, name); err != nil {
		return fs.NewError("Rmdir", path, err)
	}
	if err := m.freeDataBlock(sb, n.blockOff()); err != nil {
		return fs.NewError("Rmdir", path, err)
	}
	if err := m.freeInode(sb, inodeOff); err != nil {
		return fs.NewError("Rmdir", path, err)
	}
	parent.setNlink(parent.nlink() - 1)
	return nil
}

// Truncate sets the size of the regular file at path. Growth zero-fills
// the new tail; shrinking zero-fills the vacated tail and releases the
// data block when the new size is zero.
func (m *ArenaFS) Truncate(ctx context.Context, path string, size int64) error {
	sb, err := m.mount()
	if err != nil {
		return fs.NewError("Truncate", path, err)
	}
	if size < 0 {
		return fs.NewError("Truncate", path, fs.ErrInvalid)
	}
	if size > BlockSize {
		return fs.NewError("Truncate", path, fs.ErrTooLarge)
	}
	n, err := m.resolve(sb, path)
	if err != nil {
		return fs.NewError("Truncate", path, err)
	}
	if n.isDir() {
		return fs.NewError("Truncate", path, fs.ErrIsDir)
	}
	cur := int64(n.size())
	switch {
	case size > cur:
		if n.blockOff() == 0 {
			blockOff, err := m.findFreeDataBlock(sb)
			if err != nil {
				return fs.NewError("Truncate", path, err)
			}
			n.setBlockOff(blockOff)
		}
		blk, err := m.window(n.blockOff(), BlockSize)
		if err != nil {
			return fs.NewError("Truncate", path, err)
		}
		zero(blk[cur:size])
		n.setSize(uint64(size))
	case size < cur:
		if n.blockOff() == 0 {
			// Nonzero size with no data block is a broken arena.
			return fs.NewError("Truncate", path, fs.ErrIO)
		}
		blk, err := m.window(n.blockOff(), BlockSize)
		if err != nil {
			return fs.NewError("Truncate", path, err)
		}
		zero(blk[size:cur])
		n.setSize(uint64(size))
		if size == 0 {
			if err := m.freeDataBlock(sb, n.blockOff()); err != nil {
				return fs.NewError("Truncate", path, err)
			}
			n.setBlockOff(0)
		}
	}
	now := time.Now()
	n.setMtime(now)
	n.setCtime(now)
	return nil
}

// Open checks that path resolves to an existing object. No handle is
// created and no state changes.
func (m *ArenaFS) Open(ctx context.Context, path string) error {
	sb, err := m.mount()
	if err != nil {
		return fs.NewError("Open", path, err)
	}
	if _, err := m.resolve(sb, path); err != nil {
		return fs.NewError("Open", path, err)
	}
	return nil
}

// Read copies up to len(p) bytes from the file at path starting at
// offset and stamps the access time. At or past end of file it returns
// 0 bytes read.
func (m *ArenaFS) Read(ctx context.Context, path string, p []byte, offset int64) (int, error) {
	sb, err := m.mount()
	if err != nil {
		return 0, fs.NewError("Read", path, err)
	}
	if offset < 0 {
		return 0, fs.NewError("Read", path, fs.ErrInvalid)
	}
	n, err := m.resolve(sb, path)
	if err != nil {
		return 0, fs.NewError("Read", path, err)
	}
	if n.isDir() {
		return 0, fs.NewError("Read", path, fs.ErrIsDir)
	}
	size := int64(n.size())
	if offset >= size {
		return 0, nil
	}
	count := int64(len(p))
	if offset+count > size {
		count = size - offset
	}
	if count == 0 {
		return 0, nil
	}
	if n.blockOff() == 0 {
		// Nonzero size with no data block is a broken arena.
		return 0, fs.NewError("Read", path, fs.ErrIO)
	}
	blk, err := m.window(n.blockOff(), BlockSize)
	if err != nil {
		return 0, fs.NewError("Read", path, err)
	}
	copy(p, blk[offset:offset+count])
	n.setAtime(time.Now())
	return int(count), nil
}

// Write copies p into the file at path starting at offset, allocating
// the file's data block on first write and growing the file size when
// the write extends past the current end.
func (m *ArenaFS) Write(ctx context.Context, path string, p []byte, offset int64) (int, error) {
	sb, err := m.mount()
	if err != nil {
		return 0, fs.NewError("Write", path, err)
	}
	if offset < 0 {
		return 0, fs.NewError("Write", path, fs.ErrInvalid)
	}
	n, err := m.resolve(sb, path)
	if err != nil {
		return 0, fs.NewError("Write", path, err)
	}
	if n.isDir() {
		return 0, fs.NewError("Write", path, fs.ErrIsDir)
	}
	// Bounding offset first keeps offset+len(p) from overflowing.
	if offset > BlockSize {
		return 0, fs.NewError("Write", path, fs.ErrTooLarge)
	}
	end := offset + int64(len(p))
	if end > BlockSize {
		return 0, fs.NewError("Write", path, fs.ErrTooLarge)
	}
	if len(p) == 0 {
		return 0, nil
	}
	if n.blockOff() == 0 {
		blockOff, err := m.findFreeDataBlock(sb)
		if err != nil {
			return 0, fs.NewError("Write", path, err)
		}
		n.setBlockOff(blockOff)
	}
	blk, err := m.window(n.blockOff(), BlockSize)
	if err != nil {
		return 0, fs.NewError("Write", path, err)
	}
	// Bytes between the current size and offset are already zero:
	// blocks are zero-filled on release and shrinking zero-fills the
	// vacated tail, so seek-past-end holes read as explicit zeros.
	copy(blk[offset:end], p)
	if uint64(end) > n.size() {
		n.setSize(uint64(end))
	}
	now := time.Now()
	n.setMtime(now)
	n.setCtime(now)
	return len(p), nil
}

// Utimens sets the access and modification times of the object at
// path; a nil time means the current time. The change time is always
// stamped to now.
func (m *ArenaFS) Utimens(ctx context.Context, path string, atime, mtime *time.Time) error {
	sb, err := m.mount()
	if err != nil {
		return fs.NewError("Utimens", path, err)
	}
	if (atime != nil && atime.IsZero()) || (mtime != nil && mtime.IsZero()) {
		return fs.NewError("Utimens", path, fs.ErrInvalid)
	}
	n, err := m.resolve(sb, path)
	if err != nil {
		return fs.NewError("Utimens", path, err)
	}
	now := time.Now()
	if atime != nil {
		n.setAtime(*atime)
	} else {
		n.setAtime(now)
	}
	if mtime != nil {
		n.setMtime(*mtime)
	} else {
		n.setMtime(now)
	}
	n.setCtime(now)
	return nil
}

// StatFS reports block usage derived from the data-block bitmap.
func (m *ArenaFS) StatFS(ctx context.Context) (fs.FSStat, error) {
	sb, err := m.mount()
	if err != nil {
		return fs.FSStat{}, fs.NewError("StatFS", "", err)
	}
	blockBM, err := m.blockBitmap(sb)
	if err != nil {
		return fs.FSStat{}, fs.NewError("StatFS", "", err)
	}
	inodeBM, err := m.inodeBitmap(sb)
	if err != nil {
		return fs.FSStat{}, fs.NewError("StatFS", "", err)
	}
	return fs.FSStat{
		BlockSize:     BlockSize,
		TotalBlocks:   sb.arenaSize() / BlockSize,
		FreeBlocks:    countZeroBits(blockBM, sb.maxBlocks()),
		TotalFiles:    uint64(sb.maxInodes()),
		FreeFiles:     countZeroBits(inodeBM, sb.maxInodes()),
		NameMaxLength: NameMax,
	}, nil
}

// cleanPath lexically normalizes a path: "." components drop out and
// ".." pops the preceding component, staying at the root when there is
// nothing left to pop, the way the root's own ".." entry behaves. The
// descendant guard in Rename compares these normalized forms, so a
// ".." detour cannot smuggle a directory into its own subtree.
func cleanPath(path string) string {
	var norm []string
	for _, c := range splitPath(path) {
		switch c {
		case ".":
		case "..":
			if len(norm) > 0 {
				norm = norm[:len(norm)-1]
			}
		default:
			norm = append(norm, c)
		}
	}
	return "/" + strings.Join(norm, "/")
}

// Rename moves the object at from to to. The operation runs as a
// sequence of states: validate, resolve source, resolve destination,
// reconcile an existing destination, then move the entry. If the final
// insertion fails for lack of space the removed source entry is
// re-inserted; that rollback is best-effort, not transactional, so a
// fault between the two steps can leave the object unreachable until
// the next mount.
func (m *ArenaFS) Rename(ctx context.Context, from, to string) error {
	sb, err := m.mount()
	if err != nil {
		return fs.NewError("Rename", from, err)
	}

	// Validate.
	fromClean, toClean := cleanPath(from), cleanPath(to)
	if fromClean == "/" || toClean == "/" {
		return fs.NewError("Rename", from, fs.ErrBusy)
	}
	if fromClean == toClean {
		if _, err := m.resolve(sb, from); err != nil {
			return fs.NewError("Rename", from, err)
		}
		return nil
	}

	// Resolve source.
	srcParent, srcName, err := m.resolveParent(sb, from)
	if err != nil {
		return fs.NewError("Rename", from, err)
	}
	if err := checkEntryName(srcName); err != nil {
		return fs.NewError("Rename", from, err)
	}
	srcIdx, srcOff, err := m.findEntry(srcParent, srcName)
	if err != nil {
		return fs.NewError("Rename", from, err)
	}
	if srcIdx < 0 {
		return fs.NewError("Rename", from, fs.ErrNotExist)
	}
	src, err := m.node(sb, srcOff)
	if err != nil {
		return fs.NewError("Rename", from, err)
	}

	// Moving a directory into its own descendant would disconnect the
	// subtree.
	if src.isDir() && strings.HasPrefix(toClean, fromClean+"/") {
		return fs.NewError("Rename", to, fs.ErrInvalid)
	}

	// Resolve destination.
	dstParent, dstName, err := m.resolveParent(sb, to)
	if err != nil {
		return fs.NewError("Rename", to, err)
	}
	if err := checkEntryName(dstName); err != nil {
		return fs.NewError("Rename", to, err)
	}

	// Reconcile an existing destination. This must fully succeed
	// before any entry moves: it establishes the "destination slot is
	// clear" precondition for the move below.
	dstIdx, dstOff, err := m.findEntry(dstParent, dstName)
	if err != nil {
		return fs.NewError("Rename", to, err)
	}
	if dstIdx >= 0 {
		if dstOff == srcOff {
			return nil
		}
		dst, err := m.node(sb, dstOff)
		if err != nil {
			return fs.NewError("Rename", to, err)
		}
		switch {
		case src.isDir() && !dst.isDir():
			return fs.NewError("Rename", to, fs.ErrNotDir)
		case !src.isDir() && dst.isDir():
			return fs.NewError("Rename", to, fs.ErrIsDir)
		case dst.isDir():
			if userEntryCount(dst) > 0 {
				return fs.NewError("Rename", to, fs.ErrNotEmpty)
			}
			if err := m.removeEntry(dstParent, dstName); err != nil {
				return fs.NewError("Rename", to, err)
			}
			if err := m.freeDataBlock(sb, dst.blockOff()); err != nil {
				return fs.NewError("Rename", to, err)
			}
			if err := m.freeInode(sb, dstOff); err != nil {
				return fs.NewError("Rename", to, err)
			}
			dstParent.setNlink(dstParent.nlink() - 1)
		default:
			if err := m.removeEntry(dstParent, dstName); err != nil {
				return fs.NewError("Rename", to, err)
			}
			if off := dst.blockOff(); off != 0 {
				if err := m.freeDataBlock(sb, off); err != nil {
					return fs.NewError("Rename", to, err)
				}
			}
			if err := m.freeInode(sb, dstOff); err != nil {
				return fs.NewError("Rename", to, err)
			}
		}
	}

	// Move. A source entry that vanished between resolution and
	// removal is an inconsistency, not a user error.
	if err := m.removeEntry(srcParent, srcName); err != nil {
		return fs.NewError("Rename", from, fs.ErrIO)
	}
	if err := m.addEntry(dstParent, dstName, srcOff); err != nil {
		// Best-effort rollback: re-insert under the source parent so
		// the object stays reachable.
		m.addEntry(srcParent, srcName, srcOff)
		return fs.NewError("Rename", to, err)
	}
	if src.isDir() && srcParent.off != dstParent.off {
		blk, err := m.dirBlock(src)
		if err != nil {
			return fs.NewError("Rename", to, err)
		}
		setEntry(blk[1*DirEntrySize:2*DirEntrySize], "..", dstParent.off)
		srcParent.setNlink(srcParent.nlink() - 1)
		dstParent.setNlink(dstParent.nlink() + 1)
	}
	return nil
}
