package arena

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/example/arenafs/pkg/fs"
)

func TestFormatFreshArena(t *testing.T) {
	buf := make([]byte, 64*1024)
	m, err := NewArenaFS(buf)
	require.NoError(t, err)

	sb, err := m.superblock()
	require.NoError(t, err)
	require.Equal(t, Magic, sb.magic())
	require.Equal(t, uint64(len(buf)), sb.arenaSize())
	require.Equal(t, sb.inodeTableOff(), sb.rootOff())
	require.Equal(t, uint64(0), sb.dataOff()%BlockSize)

	// The root directory exists and is empty.
	info, err := m.GetAttr(context.Background(), "/")
	require.NoError(t, err)
	require.Equal(t, fs.FileTypeDirectory, info.Type)
	require.Equal(t, uint32(2), info.Nlink)
	require.Equal(t, int64(2*DirEntrySize), info.Size)

	entries, err := m.ReadDir(context.Background(), "/")
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestFormatMinimumArena(t *testing.T) {
	m := newTestFS(t, MinArenaSize)

	info, err := m.GetAttr(context.Background(), "/")
	require.NoError(t, err)
	require.Equal(t, fs.FileTypeDirectory, info.Type)

	stat, err := m.StatFS(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(2), stat.TotalBlocks)
	// The single data block is taken by the root directory.
	require.Equal(t, uint64(0), stat.FreeBlocks)
}

func TestFormatIsIdempotent(t *testing.T) {
	buf := make([]byte, 64*1024)
	m, err := NewArenaFS(buf)
	require.NoError(t, err)
	require.NoError(t, m.Mknod(context.Background(), "/keep"))

	// Reopening the same region must not re-stamp the layout.
	m2, err := NewArenaFS(buf)
	require.NoError(t, err)
	_, err = m2.GetAttr(context.Background(), "/keep")
	require.NoError(t, err)
}

func TestMountRejectsBadMagic(t *testing.T) {
	buf := make([]byte, 64*1024)
	_, err := NewArenaFS(buf)
	require.NoError(t, err)

	binary.LittleEndian.PutUint64(buf[sbMagic:], 0xdeadbeef)
	_, err = NewArenaFS(buf)
	require.Error(t, err)
	require.True(t, errors.Is(err, fs.ErrIO))
}

func TestMountRejectsTruncatedArena(t *testing.T) {
	buf := make([]byte, 64*1024)
	_, err := NewArenaFS(buf)
	require.NoError(t, err)

	// Remapping at a smaller size than the superblock records is a
	// corrupted arena, not a formattable one.
	_, err = NewArenaFS(buf[:32*1024])
	require.Error(t, err)
	require.True(t, errors.Is(err, fs.ErrIO))
}
