package arena

import (
	"bytes"
	"time"

	"github.com/example/arenafs/pkg/fs"
)

// On-arena layout constants. These fix the record formats; changing any
// of them breaks every existing arena image.
const (
	// Magic distinguishes an initialized arena from a fresh one.
	Magic uint64 = 0x6172656e61667321

	// BlockSize is the allocation unit. A file or directory owns at
	// most one data block, so BlockSize is also the capacity ceiling
	// for file content and for a directory's entry array.
	BlockSize = 1024

	// SuperblockSize is the size of the superblock record at offset 0.
	SuperblockSize = 64

	// InodeSize is the size of one inode slot in the inode table.
	InodeSize = 80

	// DirEntrySize is the size of one directory-entry record.
	DirEntrySize = 64

	// NameLen is the fixed on-arena name field width; names are
	// NUL-terminated within it, so the longest usable name is
	// NameMax bytes.
	NameLen = 56
	NameMax = NameLen - 1

	// EntriesPerBlock bounds a directory's entry count, "." and ".."
	// included.
	EntriesPerBlock = BlockSize / DirEntrySize

	// MinArenaSize is the smallest region the engine accepts.
	MinArenaSize = 2048

	maxInodeLimit = 4096
)

// Mode bits stored in an inode. Permissions are fixed at 0755; only the
// type bit varies.
const (
	modeDir      uint32 = 0o040755
	modeReg      uint32 = 0o100755
	modeTypeMask uint32 = 0o170000
	modeDirType  uint32 = 0o040000
)

// Superblock field offsets.
const (
	sbMagic          = 0
	sbArenaSize      = 8
	sbMaxInodes      = 16
	sbMaxBlocks      = 20
	sbRootOff        = 24
	sbInodeBitmapOff = 32
	sbBlockBitmapOff = 40
	sbInodeTableOff  = 48
	sbDataOff        = 56
)

// Inode field offsets within an InodeSize slot.
const (
	inMode      = 0
	inNlink     = 4
	inUid       = 8
	inGid       = 12
	inSize      = 16
	inBlockOff  = 24
	inAtimeSec  = 32
	inAtimeNsec = 40
	inMtimeSec  = 48
	inMtimeNsec = 56
	inCtimeSec  = 64
	inCtimeNsec = 72
)

// Directory-entry field offsets within a DirEntrySize record.
const (
	deName     = 0
	deInodeOff = NameLen
)

// superblock is a typed window over the record at offset 0.
type superblock struct {
	b []byte
}

func (r region) superblock() (superblock, error) {
	b, err := r.window(0, SuperblockSize)
	if err != nil {
		return superblock{}, err
	}
	return superblock{b}, nil
}

func (s superblock) magic() uint64          { return getU64(s.b, sbMagic) }
func (s superblock) arenaSize() uint64      { return getU64(s.b, sbArenaSize) }
func (s superblock) maxInodes() uint32      { return getU32(s.b, sbMaxInodes) }
func (s superblock) maxBlocks() uint32      { return getU32(s.b, sbMaxBlocks) }
func (s superblock) rootOff() uint64        { return getU64(s.b, sbRootOff) }
func (s superblock) inodeBitmapOff() uint64 { return getU64(s.b, sbInodeBitmapOff) }
func (s superblock) blockBitmapOff() uint64 { return getU64(s.b, sbBlockBitmapOff) }
func (s superblock) inodeTableOff() uint64  { return getU64(s.b, sbInodeTableOff) }
func (s superblock) dataOff() uint64        { return getU64(s.b, sbDataOff) }

// node is a typed window over one inode slot. off is the slot's offset
// in the inode table, which doubles as the inode's identity in
// directory-entry records.
type node struct {
	off uint64
	b   []byte
}

func (n node) mode() uint32     { return getU32(n.b, inMode) }
func (n node) nlink() uint32    { return getU32(n.b, inNlink) }
func (n node) uid() uint32      { return getU32(n.b, inUid) }
func (n node) gid() uint32      { return getU32(n.b, inGid) }
func (n node) size() uint64     { return getU64(n.b, inSize) }
func (n node) blockOff() uint64 { return getU64(n.b, inBlockOff) }

func (n node) setMode(v uint32)     { putU32(n.b, inMode, v) }
func (n node) setNlink(v uint32)    { putU32(n.b, inNlink, v) }
func (n node) setUid(v uint32)      { putU32(n.b, inUid, v) }
func (n node) setGid(v uint32)      { putU32(n.b, inGid, v) }
func (n node) setSize(v uint64)     { putU64(n.b, inSize, v) }
func (n node) setBlockOff(v uint64) { putU64(n.b, inBlockOff, v) }

func (n node) isDir() bool {
	return n.mode()&modeTypeMask == modeDirType
}

func (n node) atime() time.Time {
	return time.Unix(getI64(n.b, inAtimeSec), getI64(n.b, inAtimeNsec))
}

func (n node) mtime() time.Time {
	return time.Unix(getI64(n.b, inMtimeSec), getI64(n.b, inMtimeNsec))
}

func (n node) ctime() time.Time {
	return time.Unix(getI64(n.b, inCtimeSec), getI64(n.b, inCtimeNsec))
}

func (n node) setAtime(t time.Time) {
	putI64(n.b, inAtimeSec, t.Unix())
	putI64(n.b, inAtimeNsec, int64(t.Nanosecond()))
}

func (n node) setMtime(t time.Time) {
	putI64(n.b, inMtimeSec, t.Unix())
	putI64(n.b, inMtimeNsec, int64(t.Nanosecond()))
}

func (n node) setCtime(t time.Time) {
	putI64(n.b, inCtimeSec, t.Unix())
	putI64(n.b, inCtimeNsec, int64(t.Nanosecond()))
}

// entryName decodes the NUL-terminated name of the directory-entry
// record at e.
func entryName(e []byte) string {
	name := e[deName : deName+NameLen]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	return string(name)
}

func entryInodeOff(e []byte) uint64 {
	return getU64(e, deInodeOff)
}

// setEntry writes a directory-entry record in place, truncating the
// name at NameMax bytes and NUL-padding the rest of the field.
func setEntry(e []byte, name string, inodeOff uint64) {
	if len(name) > NameMax {
		name = name[:NameMax]
	}
	zero(e[deName : deName+NameLen])
	copy(e[deName:], name)
	putU64(e, deInodeOff, inodeOff)
}

// clampName truncates a path component exactly the way setEntry stores
// it, so lookups and stores agree on over-long names.
func clampName(name string) string {
	if len(name) > NameMax {
		return name[:NameMax]
	}
	return name
}

// node translates an inode-table offset into a typed window. The offset
// must name a slot inside the table; anything else is an arena
// inconsistency.
func (m *ArenaFS) node(sb superblock, off uint64) (node, error) {
	tab := sb.inodeTableOff()
	end := tab + uint64(sb.maxInodes())*InodeSize
	if off < tab || off >= end || (off-tab)%InodeSize != 0 {
		return node{}, fs.ErrIO
	}
	b, err := m.window(off, InodeSize)
	if err != nil {
		return node{}, err
	}
	return node{off: off, b: b}, nil
}

// fileInfo marshals a node's metadata into the caller-owned FileInfo
// form; nothing in the result aliases arena memory.
func fileInfo(n node) fs.FileInfo {
	info := fs.FileInfo{
		Type:       fs.FileTypeRegular,
		Mode:       fs.FileMode(n.mode()) & fs.ModeMask,
		Size:       int64(n.size()),
		Uid:        n.uid(),
		Gid:        n.gid(),
		Nlink:      n.nlink(),
		BlockSize:  BlockSize,
		AccessTime: n.atime(),
		ModifyTime: n.mtime(),
		ChangeTime: n.ctime(),
	}
	if n.isDir() {
		info.Type = fs.FileTypeDirectory
	}
	if n.blockOff() != 0 {
		info.Blocks = 1
	}
	return info
}
