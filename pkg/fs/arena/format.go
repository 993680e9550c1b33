package arena

import (
	"time"

	"github.com/example/arenafs/pkg/fs"
)

// mount is called at the top of every operation. On a fresh arena
// (superblock still all-zero) it stamps the one-time layout; on an
// initialized arena it verifies the magic tag and the recorded
// geometry before any other offset is trusted.
func (m *ArenaFS) mount() (superblock, error) {
	sb, err := m.superblock()
	if err != nil {
		return superblock{}, err
	}
	switch sb.magic() {
	case Magic:
		if err := m.checkGeometry(sb); err != nil {
			return superblock{}, err
		}
		return sb, nil
	case 0:
		if err := m.format(sb); err != nil {
			return superblock{}, err
		}
		return sb, nil
	default:
		return superblock{}, fs.ErrIO
	}
}

// checkGeometry rejects a superblock whose recorded layout does not fit
// the mapped region, e.g. after the backing file was truncated or
// corrupted.
func (m *ArenaFS) checkGeometry(sb superblock) error {
	size := m.size()
	if sb.arenaSize() != size {
		return fs.ErrIO
	}
	inodeTableEnd := sb.inodeTableOff() + uint64(sb.maxInodes())*InodeSize
	dataEnd := sb.dataOff() + uint64(sb.maxBlocks())*BlockSize
	switch {
	case sb.maxInodes() == 0 || sb.maxBlocks() == 0:
		return fs.ErrIO
	case sb.inodeBitmapOff() < SuperblockSize:
		return fs.ErrIO
	case inodeTableEnd > size || dataEnd > size:
		return fs.ErrIO
	case sb.rootOff() != sb.inodeTableOff():
		return fs.ErrIO
	}
	return nil
}

func alignUp(v, a uint64) uint64 {
	return (v + a - 1) &^ (a - 1)
}

// format stamps a zeroed arena: superblock geometry, then the root
// directory (first inode slot, first data block, seeded with "." and
// ".."). The magic tag is written last so a partially formatted arena
// still reads as uninitialized.
func (m *ArenaFS) format(sb superblock) error {
	size := m.size()

	maxInodes := uint32(size / BlockSize)
	if maxInodes < 8 {
		maxInodes = 8
	}
	if maxInodes > maxInodeLimit {
		maxInodes = maxInodeLimit
	}

	// The block bitmap is sized for the largest block count the arena
	// could hold; the usable count below is what bounds allocation.
	blockBitmapSlots := uint32(size / BlockSize)

	inodeBitmapOff := uint64(SuperblockSize)
	blockBitmapOff := inodeBitmapOff + bitmapLen(maxInodes)
	inodeTableOff := alignUp(blockBitmapOff+bitmapLen(blockBitmapSlots), 8)
	dataOff := alignUp(inodeTableOff+uint64(maxInodes)*InodeSize, BlockSize)
	if dataOff >= size {
		return fs.NewError("format", "", fs.ErrNoSpace)
	}
	maxBlocks := uint32((size - dataOff) / BlockSize)
	if maxBlocks == 0 {
		return fs.NewError("format", "", fs.ErrNoSpace)
	}

	putU64(sb.b, sbArenaSize, size)
	putU32(sb.b, sbMaxInodes, maxInodes)
	putU32(sb.b, sbMaxBlocks, maxBlocks)
	putU64(sb.b, sbInodeBitmapOff, inodeBitmapOff)
	putU64(sb.b, sbBlockBitmapOff, blockBitmapOff)
	putU64(sb.b, sbInodeTableOff, inodeTableOff)
	putU64(sb.b, sbDataOff, dataOff)

	rootOff, err := m.findFreeInode(sb)
	if err != nil {
		return err
	}
	putU64(sb.b, sbRootOff, rootOff)

	blockOff, err := m.findFreeDataBlock(sb)
	if err != nil {
		return err
	}

	root, err := m.node(sb, rootOff)
	if err != nil {
		return err
	}
	now := time.Now()
	root.setMode(modeDir)
	root.setNlink(2)
	root.setBlockOff(blockOff)
	root.setAtime(now)
	root.setMtime(now)
	root.setCtime(now)

	blk, err := m.window(blockOff, BlockSize)
	if err != nil {
		return err
	}
	setEntry(blk[0*DirEntrySize:1*DirEntrySize], ".", rootOff)
	setEntry(blk[1*DirEntrySize:2*DirEntrySize], "..", rootOff)
	root.setSize(2 * DirEntrySize)

	putU64(sb.b, sbMagic, Magic)
	return nil
}
