package arena

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/arenafs/pkg/fs"
)

func TestUtimensExplicitTimes(t *testing.T) {
	m := newTestFS(t, 64*1024)
	ctx := context.Background()

	require.NoError(t, m.Mknod(ctx, "/f"))

	atime := time.Unix(1000000000, 123456789)
	mtime := time.Unix(2000000000, 987654321)
	require.NoError(t, m.Utimens(ctx, "/f", &atime, &mtime))

	info, err := m.GetAttr(ctx, "/f")
	require.NoError(t, err)
	require.True(t, info.AccessTime.Equal(atime))
	require.True(t, info.ModifyTime.Equal(mtime))
}

func TestUtimensNilMeansNow(t *testing.T) {
	m := newTestFS(t, 64*1024)
	ctx := context.Background()

	require.NoError(t, m.Mknod(ctx, "/f"))

	old := time.Unix(1, 0)
	require.NoError(t, m.Utimens(ctx, "/f", &old, &old))

	before := time.Now().Add(-time.Second)
	require.NoError(t, m.Utimens(ctx, "/f", nil, nil))

	info, err := m.GetAttr(ctx, "/f")
	require.NoError(t, err)
	require.True(t, info.AccessTime.After(before))
	require.True(t, info.ModifyTime.After(before))
	require.True(t, info.ChangeTime.After(before))
}

func TestUtimensErrors(t *testing.T) {
	m := newTestFS(t, 64*1024)
	ctx := context.Background()

	require.NoError(t, m.Mknod(ctx, "/f"))

	var zero time.Time
	err := m.Utimens(ctx, "/f", &zero, nil)
	require.True(t, errors.Is(err, fs.ErrInvalid))

	err = m.Utimens(ctx, "/missing", nil, nil)
	require.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestStatFSAccounting(t *testing.T) {
	m := newTestFS(t, 64*1024)
	ctx := context.Background()

	stat, err := m.StatFS(ctx)
	require.NoError(t, err)
	require.Equal(t, uint32(BlockSize), stat.BlockSize)
	require.Equal(t, uint64(64), stat.TotalBlocks)
	require.Equal(t, uint32(NameMax), stat.NameMaxLength)

	baseBlocks := stat.FreeBlocks
	baseFiles := stat.FreeFiles

	require.NoError(t, m.Mknod(ctx, "/f"))
	_, err = m.Write(ctx, "/f", []byte("x"), 0)
	require.NoError(t, err)
	require.NoError(t, m.Mkdir(ctx, "/d"))

	stat, err = m.StatFS(ctx)
	require.NoError(t, err)
	require.Equal(t, baseBlocks-2, stat.FreeBlocks)
	require.Equal(t, baseFiles-2, stat.FreeFiles)

	require.NoError(t, m.Truncate(ctx, "/f", 0))
	require.NoError(t, m.Rmdir(ctx, "/d"))
	require.NoError(t, m.Unlink(ctx, "/f"))

	stat, err = m.StatFS(ctx)
	require.NoError(t, err)
	require.Equal(t, baseBlocks, stat.FreeBlocks)
	require.Equal(t, baseFiles, stat.FreeFiles)
}
