package fs

import (
	"context"
	"time"
)

// FileSystem is the set of file operations a storage engine exposes to
// the host adapter. It abstracts away the storage implementation so the
// same adapter can drive different backends.
//
// Implementations are not required to be safe for concurrent use; the
// caller serializes operations.
type FileSystem interface {
	// GetAttr retrieves attributes for the file or directory at path.
	GetAttr(ctx context.Context, path string) (FileInfo, error)

	// ReadDir lists the entries of the directory at path, excluding
	// the synthetic "." and ".." entries. The returned slice is owned
	// by the caller and shares no storage with the engine.
	ReadDir(ctx context.Context, path string) ([]DirEntry, error)

	// Mknod creates an empty regular file at path.
	Mknod(ctx context.Context, path string) error

	// Mkdir creates a directory at path.
	Mkdir(ctx context.Context, path string) error

	// Unlink removes the regular file at path.
	Unlink(ctx context.Context, path string) error

	// Rmdir removes the empty directory at path.
	Rmdir(ctx context.Context, path string) error

	// Rename moves the object at from to to, replacing an existing
	// destination according to rename(2) semantics.
	Rename(ctx context.Context, from, to string) error

	// Truncate sets the size of the regular file at path, zero-filling
	// on growth and discarding on shrink.
	Truncate(ctx context.Context, path string, size int64) error

	// Open checks that path resolves to an existing object. No state
	// is changed and no handle is returned.
	Open(ctx context.Context, path string) error

	// Read copies up to len(p) bytes from the file at path starting at
	// offset. It returns the number of bytes read; 0 at or past the
	// end of the file.
	Read(ctx context.Context, path string, p []byte, offset int64) (int, error)

	// Write copies p into the file at path starting at offset, growing
	// the file if the write extends past its current size.
	Write(ctx context.Context, path string, p []byte, offset int64) (int, error)

	// Utimens sets the access and modification times of the object at
	// path. A nil time means "now".
	Utimens(ctx context.Context, path string, atime, mtime *time.Time) error

	// StatFS reports filesystem usage.
	StatFS(ctx context.Context) (FSStat, error)
}
