package arena

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/example/arenafs/pkg/fs"
)

func TestFirstFitAllocationIsDeterministic(t *testing.T) {
	m := newTestFS(t, 64*1024)
	sb, err := m.mount()
	require.NoError(t, err)

	// The root holds slot 0; the next allocations take slots 1, 2, 3.
	a, err := m.findFreeInode(sb)
	require.NoError(t, err)
	require.Equal(t, sb.inodeTableOff()+1*InodeSize, a)

	b, err := m.findFreeInode(sb)
	require.NoError(t, err)
	require.Equal(t, sb.inodeTableOff()+2*InodeSize, b)

	// Freeing the lower slot makes it the next one handed out.
	require.NoError(t, m.freeInode(sb, a))
	c, err := m.findFreeInode(sb)
	require.NoError(t, err)
	require.Equal(t, a, c)
}

func TestFreedInodeSlotIsZeroFilled(t *testing.T) {
	m := newTestFS(t, 64*1024)
	sb, err := m.mount()
	require.NoError(t, err)

	off, err := m.findFreeInode(sb)
	require.NoError(t, err)
	n, err := m.node(sb, off)
	require.NoError(t, err)
	n.setMode(modeReg)
	n.setSize(123)

	require.NoError(t, m.freeInode(sb, off))
	slot, err := m.window(off, InodeSize)
	require.NoError(t, err)
	for _, b := range slot {
		require.Zero(t, b)
	}
}

func TestDataBlockAllocation(t *testing.T) {
	m := newTestFS(t, 64*1024)
	sb, err := m.mount()
	require.NoError(t, err)

	// Block 0 belongs to the root directory.
	a, err := m.findFreeDataBlock(sb)
	require.NoError(t, err)
	require.Equal(t, sb.dataOff()+1*BlockSize, a)

	b, err := m.findFreeDataBlock(sb)
	require.NoError(t, err)
	require.Equal(t, sb.dataOff()+2*BlockSize, b)

	require.NoError(t, m.freeDataBlock(sb, a))
	c, err := m.findFreeDataBlock(sb)
	require.NoError(t, err)
	require.Equal(t, a, c)
}

func TestFreeRejectsInvalidOffsets(t *testing.T) {
	m := newTestFS(t, 64*1024)
	sb, err := m.mount()
	require.NoError(t, err)

	// Unaligned inode offset.
	require.Equal(t, fs.ErrIO, m.freeInode(sb, sb.inodeTableOff()+1))
	// Offset outside the inode table.
	require.Equal(t, fs.ErrIO, m.freeInode(sb, 0))
	// Unaligned block offset.
	require.Equal(t, fs.ErrIO, m.freeDataBlock(sb, sb.dataOff()+13))
	// Offset outside the data region.
	require.Equal(t, fs.ErrIO, m.freeDataBlock(sb, sb.inodeTableOff()))
}

func TestInodeExhaustion(t *testing.T) {
	m := newTestFS(t, 64*1024)
	sb, err := m.mount()
	require.NoError(t, err)

	// Slot 0 is the root; claim every remaining slot.
	for i := uint32(1); i < sb.maxInodes(); i++ {
		_, err := m.findFreeInode(sb)
		require.NoError(t, err)
	}
	_, err = m.findFreeInode(sb)
	require.Equal(t, fs.ErrNoSpace, err)
}
