package arena

import (
	"github.com/example/arenafs/pkg/fs"
)

// Slot allocation is tracked by two bitmaps, one bit per inode slot and
// one per data block. Scans are first-fit by ascending index, so
// placement after a given operation sequence is deterministic.

func bitmapLen(slots uint32) uint64 {
	return (uint64(slots) + 7) / 8
}

// firstZeroBit scans byte-by-byte, bit-by-bit for the first clear bit
// below limit.
func firstZeroBit(bm []byte, limit uint32) (uint32, bool) {
	for i := uint32(0); i < limit; i++ {
		if bm[i/8]&(1<<(i%8)) == 0 {
			return i, true
		}
	}
	return 0, false
}

func setBit(bm []byte, i uint32)   { bm[i/8] |= 1 << (i % 8) }
func clearBit(bm []byte, i uint32) { bm[i/8] &^= 1 << (i % 8) }
func testBit(bm []byte, i uint32) bool {
	return bm[i/8]&(1<<(i%8)) != 0
}

func countZeroBits(bm []byte, limit uint32) uint64 {
	var free uint64
	for i := uint32(0); i < limit; i++ {
		if !testBit(bm, i) {
			free++
		}
	}
	return free
}

func (m *ArenaFS) inodeBitmap(sb superblock) ([]byte, error) {
	return m.window(sb.inodeBitmapOff(), bitmapLen(sb.maxInodes()))
}

func (m *ArenaFS) blockBitmap(sb superblock) ([]byte, error) {
	return m.window(sb.blockBitmapOff(), bitmapLen(sb.maxBlocks()))
}

// findFreeInode claims the lowest free inode slot and returns its
// offset in the inode table. The slot is guaranteed all-zero: slots are
// zero-filled on release and the arena starts zeroed.
func (m *ArenaFS) findFreeInode(sb superblock) (uint64, error) {
	bm, err := m.inodeBitmap(sb)
	if err != nil {
		return 0, err
	}
	idx, ok := firstZeroBit(bm, sb.maxInodes())
	if !ok {
		return 0, fs.ErrNoSpace
	}
	setBit(bm, idx)
	return sb.inodeTableOff() + uint64(idx)*InodeSize, nil
}

// freeInode releases an inode slot, zero-filling it so stale metadata
// never leaks into a reused slot.
func (m *ArenaFS) freeInode(sb superblock, off uint64) error {
	tab := sb.inodeTableOff()
	end := tab + uint64(sb.maxInodes())*InodeSize
	if off < tab || off >= end || (off-tab)%InodeSize != 0 {
		return fs.ErrIO
	}
	slot, err := m.window(off, InodeSize)
	if err != nil {
		return err
	}
	bm, err := m.inodeBitmap(sb)
	if err != nil {
		return err
	}
	zero(slot)
	clearBit(bm, uint32((off-tab)/InodeSize))
	return nil
}

// findFreeDataBlock claims the lowest free data block and returns its
// arena offset.
func (m *ArenaFS) findFreeDataBlock(sb superblock) (uint64, error) {
	bm, err := m.blockBitmap(sb)
	if err != nil {
		return 0, err
	}
	idx, ok := firstZeroBit(bm, sb.maxBlocks())
	if !ok {
		return 0, fs.ErrNoSpace
	}
	setBit(bm, idx)
	return sb.dataOff() + uint64(idx)*BlockSize, nil
}

// freeDataBlock releases a data block. The block is zero-filled on
// release, which keeps freshly allocated blocks all-zero and keeps the
// "bytes past a file's size are zero" invariant cheap to maintain.
func (m *ArenaFS) freeDataBlock(sb superblock, off uint64) error {
	data := sb.dataOff()
	end := data + uint64(sb.maxBlocks())*BlockSize
	if off < data || off >= end || (off-data)%BlockSize != 0 {
		return fs.ErrIO
	}
	blk, err := m.window(off, BlockSize)
	if err != nil {
		return err
	}
	bm, err := m.blockBitmap(sb)
	if err != nil {
		return err
	}
	zero(blk)
	clearBit(bm, uint32((off-data)/BlockSize))
	return nil
}
