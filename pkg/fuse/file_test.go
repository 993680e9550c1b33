package fuse

import (
	"context"
	"math"
	"syscall"
	"testing"

	"bazil.org/fuse"
	"github.com/stretchr/testify/require"

	"github.com/example/arenafs/pkg/fs/arena"
)

func TestSetattrSizeBounds(t *testing.T) {
	engine, err := arena.NewArenaFS(make([]byte, 64*1024))
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, engine.Mknod(ctx, "/f"))

	f := &File{afs: NewArenaFUSE(engine, false), path: "/f"}

	// A size past MaxInt64 would wrap negative in the conversion to
	// the engine's int64; it must surface as EFBIG, not EINVAL.
	req := &fuse.SetattrRequest{Valid: fuse.SetattrSize, Size: math.MaxUint64}
	err = f.Setattr(ctx, req, &fuse.SetattrResponse{})
	require.Equal(t, fuse.Errno(syscall.EFBIG), err)

	// In-range but over the block ceiling maps through the engine.
	req = &fuse.SetattrRequest{Valid: fuse.SetattrSize, Size: arena.BlockSize + 1}
	err = f.Setattr(ctx, req, &fuse.SetattrResponse{})
	require.Equal(t, fuse.Errno(syscall.EFBIG), err)

	// A valid truncate still goes through.
	req = &fuse.SetattrRequest{Valid: fuse.SetattrSize, Size: 10}
	resp := &fuse.SetattrResponse{}
	require.NoError(t, f.Setattr(ctx, req, resp))
	require.Equal(t, uint64(10), resp.Attr.Size)
}
