package arena

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/example/arenafs/pkg/fs"
)

func TestWriteReadRoundTrip(t *testing.T) {
	m := newTestFS(t, 64*1024)
	ctx := context.Background()

	require.NoError(t, m.Mknod(ctx, "/f"))

	payload := []byte("hello, arena")
	n, err := m.Write(ctx, "/f", payload, 0)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)

	buf := make([]byte, len(payload))
	n, err = m.Read(ctx, "/f", buf, 0)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
	require.Equal(t, payload, buf)

	// Partial read at an interior offset.
	buf = make([]byte, 5)
	n, err = m.Read(ctx, "/f", buf, 7)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, []byte("arena"), buf)
}

func TestReadAtEOF(t *testing.T) {
	m := newTestFS(t, 64*1024)
	ctx := context.Background()

	require.NoError(t, m.Mknod(ctx, "/f"))
	_, err := m.Write(ctx, "/f", []byte("abc"), 0)
	require.NoError(t, err)

	buf := make([]byte, 10)
	n, err := m.Read(ctx, "/f", buf, 3)
	require.NoError(t, err)
	require.Equal(t, 0, n)

	n, err = m.Read(ctx, "/f", buf, 100)
	require.NoError(t, err)
	require.Equal(t, 0, n)

	// A read straddling EOF is clipped to the valid range.
	n, err = m.Read(ctx, "/f", buf, 1)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, []byte("bc"), buf[:n])
}

func TestReadWriteErrors(t *testing.T) {
	m := newTestFS(t, 64*1024)
	ctx := context.Background()

	require.NoError(t, m.Mknod(ctx, "/f"))
	require.NoError(t, m.Mkdir(ctx, "/d"))

	buf := make([]byte, 4)
	_, err := m.Read(ctx, "/f", buf, -1)
	require.True(t, errors.Is(err, fs.ErrInvalid))
	_, err = m.Write(ctx, "/f", buf, -1)
	require.True(t, errors.Is(err, fs.ErrInvalid))

	_, err = m.Read(ctx, "/d", buf, 0)
	require.True(t, errors.Is(err, fs.ErrIsDir))
	_, err = m.Write(ctx, "/d", buf, 0)
	require.True(t, errors.Is(err, fs.ErrIsDir))

	_, err = m.Read(ctx, "/missing", buf, 0)
	require.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestWriteBeyondBlock(t *testing.T) {
	m := newTestFS(t, 64*1024)
	ctx := context.Background()

	require.NoError(t, m.Mknod(ctx, "/f"))

	// An exact block-sized file is the ceiling.
	n, err := m.Write(ctx, "/f", make([]byte, BlockSize), 0)
	require.NoError(t, err)
	require.Equal(t, BlockSize, n)

	_, err = m.Write(ctx, "/f", []byte{1}, BlockSize)
	require.True(t, errors.Is(err, fs.ErrTooLarge))

	_, err = m.Write(ctx, "/f", make([]byte, 2), BlockSize-1)
	require.True(t, errors.Is(err, fs.ErrTooLarge))

	// An offset near MaxInt64 must not wrap past the bound check.
	_, err = m.Write(ctx, "/f", []byte{1}, math.MaxInt64)
	require.True(t, errors.Is(err, fs.ErrTooLarge))
	_, err = m.Write(ctx, "/f", []byte{1}, math.MaxInt64-1)
	require.True(t, errors.Is(err, fs.ErrTooLarge))

	info, err := m.GetAttr(ctx, "/f")
	require.NoError(t, err)
	require.Equal(t, int64(BlockSize), info.Size)
}

func TestLazyBlockAllocation(t *testing.T) {
	m := newTestFS(t, 64*1024)
	ctx := context.Background()

	statEmpty, err := m.StatFS(ctx)
	require.NoError(t, err)

	require.NoError(t, m.Mknod(ctx, "/f"))
	info, err := m.GetAttr(ctx, "/f")
	require.NoError(t, err)
	require.Equal(t, uint64(0), info.Blocks)

	// Creation alone consumes no data block.
	stat, err := m.StatFS(ctx)
	require.NoError(t, err)
	require.Equal(t, statEmpty.FreeBlocks, stat.FreeBlocks)

	_, err = m.Write(ctx, "/f", []byte("x"), 0)
	require.NoError(t, err)
	info, err = m.GetAttr(ctx, "/f")
	require.NoError(t, err)
	require.Equal(t, uint64(1), info.Blocks)

	stat, err = m.StatFS(ctx)
	require.NoError(t, err)
	require.Equal(t, statEmpty.FreeBlocks-1, stat.FreeBlocks)
}

func TestTruncate(t *testing.T) {
	m := newTestFS(t, 64*1024)
	ctx := context.Background()

	require.NoError(t, m.Mknod(ctx, "/f"))
	payload := make([]byte, 100)
	for i := range payload {
		payload[i] = byte(i + 1)
	}
	_, err := m.Write(ctx, "/f", payload, 0)
	require.NoError(t, err)

	// Shrink then grow: the regrown region comes back zeroed.
	require.NoError(t, m.Truncate(ctx, "/f", 10))
	require.NoError(t, m.Truncate(ctx, "/f", 50))

	buf := make([]byte, 50)
	n, err := m.Read(ctx, "/f", buf, 0)
	require.NoError(t, err)
	require.Equal(t, 50, n)
	require.Equal(t, payload[:10], buf[:10])
	require.True(t, bytes.Equal(buf[10:], make([]byte, 40)))
}

func TestTruncateToZeroReleasesBlock(t *testing.T) {
	m := newTestFS(t, 64*1024)
	ctx := context.Background()

	require.NoError(t, m.Mknod(ctx, "/f"))
	_, err := m.Write(ctx, "/f", []byte("data"), 0)
	require.NoError(t, err)

	statFull, err := m.StatFS(ctx)
	require.NoError(t, err)

	require.NoError(t, m.Truncate(ctx, "/f", 0))

	info, err := m.GetAttr(ctx, "/f")
	require.NoError(t, err)
	require.Equal(t, int64(0), info.Size)
	require.Equal(t, uint64(0), info.Blocks)

	stat, err := m.StatFS(ctx)
	require.NoError(t, err)
	require.Equal(t, statFull.FreeBlocks+1, stat.FreeBlocks)
}

func TestTruncateErrors(t *testing.T) {
	m := newTestFS(t, 64*1024)
	ctx := context.Background()

	require.NoError(t, m.Mknod(ctx, "/f"))
	require.NoError(t, m.Mkdir(ctx, "/d"))

	err := m.Truncate(ctx, "/f", -1)
	require.True(t, errors.Is(err, fs.ErrInvalid))

	err = m.Truncate(ctx, "/f", BlockSize+1)
	require.True(t, errors.Is(err, fs.ErrTooLarge))

	err = m.Truncate(ctx, "/d", 0)
	require.True(t, errors.Is(err, fs.ErrIsDir))

	err = m.Truncate(ctx, "/missing", 0)
	require.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestOpen(t *testing.T) {
	m := newTestFS(t, 64*1024)
	ctx := context.Background()

	require.NoError(t, m.Mknod(ctx, "/f"))
	require.NoError(t, m.Open(ctx, "/f"))

	err := m.Open(ctx, "/missing")
	require.True(t, errors.Is(err, fs.ErrNotExist))
}
