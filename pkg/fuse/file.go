package fuse

import (
	"context"
	"math"
	"syscall"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
)

// File represents a regular file in the filesystem. It serves as its
// own handle: the engine is path-addressed and open carries no state.
type File struct {
	afs  *ArenaFUSE
	path string
}

// Attr sets the attributes of the file.
func (f *File) Attr(ctx context.Context, attr *fuse.Attr) error {
	f.afs.mu.Lock()
	defer f.afs.mu.Unlock()

	info, err := f.afs.engine.GetAttr(ctx, f.path)
	if err != nil {
		return mapError(err)
	}
	fillAttr(info, attr)
	return nil
}

// Open checks that the file still resolves and returns the node itself
// as the handle.
func (f *File) Open(ctx context.Context, req *fuse.OpenRequest, resp *fuse.OpenResponse) (fusefs.Handle, error) {
	f.afs.mu.Lock()
	defer f.afs.mu.Unlock()

	if f.afs.readOnly && !req.Flags.IsReadOnly() {
		return nil, fuse.Errno(syscall.EROFS)
	}
	if err := f.afs.engine.Open(ctx, f.path); err != nil {
		return nil, mapError(err)
	}
	return f, nil
}

// Read copies file content into the response buffer.
func (f *File) Read(ctx context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	f.afs.mu.Lock()
	defer f.afs.mu.Unlock()

	buf := make([]byte, req.Size)
	n, err := f.afs.engine.Read(ctx, f.path, buf, req.Offset)
	if err != nil {
		return mapError(err)
	}
	resp.Data = buf[:n]
	return nil
}

// Write copies the request data into the file.
func (f *File) Write(ctx context.Context, req *fuse.WriteRequest, resp *fuse.WriteResponse) error {
	f.afs.mu.Lock()
	defer f.afs.mu.Unlock()

	if f.afs.readOnly {
		return fuse.Errno(syscall.EROFS)
	}
	n, err := f.afs.engine.Write(ctx, f.path, req.Data, req.Offset)
	if err != nil {
		return mapError(err)
	}
	resp.Size = n
	return nil
}

// Setattr applies truncation and timestamp updates to the file.
func (f *File) Setattr(ctx context.Context, req *fuse.SetattrRequest, resp *fuse.SetattrResponse) error {
	f.afs.mu.Lock()
	defer f.afs.mu.Unlock()

	if f.afs.readOnly {
		return fuse.Errno(syscall.EROFS)
	}
	if req.Valid.Size() {
		// Sizes past MaxInt64 would go negative in the conversion.
		if req.Size > math.MaxInt64 {
			return fuse.Errno(syscall.EFBIG)
		}
		if err := f.afs.engine.Truncate(ctx, f.path, int64(req.Size)); err != nil {
			return mapError(err)
		}
	}
	if err := applyTimes(ctx, f.afs.engine, f.path, req); err != nil {
		return mapError(err)
	}
	info, err := f.afs.engine.GetAttr(ctx, f.path)
	if err != nil {
		return mapError(err)
	}
	fillAttr(info, &resp.Attr)
	return nil
}

// Fsync is a no-op: all state lives in the mapped arena and the host
// syncs the backing file on unmount.
func (f *File) Fsync(ctx context.Context, req *fuse.FsyncRequest) error {
	return nil
}
