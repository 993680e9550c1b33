package fuse

import (
	"context"
	"os"
	"path"
	"syscall"
	"time"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"

	"github.com/example/arenafs/pkg/fs"
)

func infoMode(info fs.FileInfo) os.FileMode {
	mode := os.FileMode(info.Mode & fs.ModeMask)
	if info.Type == fs.FileTypeDirectory {
		mode |= os.ModeDir
	}
	return mode
}

// Dir represents a directory in the filesystem.
type Dir struct {
	afs  *ArenaFUSE
	path string
}

// Attr sets the attributes of the directory.
func (d *Dir) Attr(ctx context.Context, attr *fuse.Attr) error {
	d.afs.mu.Lock()
	defer d.afs.mu.Unlock()

	info, err := d.afs.engine.GetAttr(ctx, d.path)
	if err != nil {
		return mapError(err)
	}
	fillAttr(info, attr)
	return nil
}

// Lookup looks up a specific entry in the directory.
func (d *Dir) Lookup(ctx context.Context, name string) (fusefs.Node, error) {
	d.afs.mu.Lock()
	defer d.afs.mu.Unlock()

	target := path.Join(d.path, name)
	info, err := d.afs.engine.GetAttr(ctx, target)
	if err != nil {
		return nil, mapError(err)
	}
	if info.Type == fs.FileTypeDirectory {
		return &Dir{afs: d.afs, path: target}, nil
	}
	return &File{afs: d.afs, path: target}, nil
}

// ReadDirAll returns all entries in the directory.
func (d *Dir) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	d.afs.mu.Lock()
	defer d.afs.mu.Unlock()

	entries, err := d.afs.engine.ReadDir(ctx, d.path)
	if err != nil {
		return nil, mapError(err)
	}
	dirents := make([]fuse.Dirent, len(entries))
	for i, entry := range entries {
		typ := fuse.DT_File
		if entry.Type == fs.FileTypeDirectory {
			typ = fuse.DT_Dir
		}
		dirents[i] = fuse.Dirent{Name: entry.Name, Type: typ}
	}
	return dirents, nil
}

// Mknod creates a regular file in the directory.
func (d *Dir) Mknod(ctx context.Context, req *fuse.MknodRequest) (fusefs.Node, error) {
	d.afs.mu.Lock()
	defer d.afs.mu.Unlock()

	if d.afs.readOnly {
		return nil, fuse.Errno(syscall.EROFS)
	}
	target := path.Join(d.path, req.Name)
	if err := d.afs.engine.Mknod(ctx, target); err != nil {
		return nil, mapError(err)
	}
	return &File{afs: d.afs, path: target}, nil
}

// Create creates and opens a regular file in the directory.
func (d *Dir) Create(ctx context.Context, req *fuse.CreateRequest, resp *fuse.CreateResponse) (fusefs.Node, fusefs.Handle, error) {
	d.afs.mu.Lock()
	defer d.afs.mu.Unlock()

	if d.afs.readOnly {
		return nil, nil, fuse.Errno(syscall.EROFS)
	}
	target := path.Join(d.path, req.Name)
	if err := d.afs.engine.Mknod(ctx, target); err != nil {
		return nil, nil, mapError(err)
	}
	f := &File{afs: d.afs, path: target}
	return f, f, nil
}

// Mkdir creates a subdirectory.
func (d *Dir) Mkdir(ctx context.Context, req *fuse.MkdirRequest) (fusefs.Node, error) {
	d.afs.mu.Lock()
	defer d.afs.mu.Unlock()

	if d.afs.readOnly {
		return nil, fuse.Errno(syscall.EROFS)
	}
	target := path.Join(d.path, req.Name)
	if err := d.afs.engine.Mkdir(ctx, target); err != nil {
		return nil, mapError(err)
	}
	return &Dir{afs: d.afs, path: target}, nil
}

// Remove unlinks a file or removes an empty subdirectory.
func (d *Dir) Remove(ctx context.Context, req *fuse.RemoveRequest) error {
	d.afs.mu.Lock()
	defer d.afs.mu.Unlock()

	if d.afs.readOnly {
		return fuse.Errno(syscall.EROFS)
	}
	target := path.Join(d.path, req.Name)
	if req.Dir {
		return mapError(d.afs.engine.Rmdir(ctx, target))
	}
	return mapError(d.afs.engine.Unlink(ctx, target))
}

// Rename moves an entry of this directory under newDir.
func (d *Dir) Rename(ctx context.Context, req *fuse.RenameRequest, newDir fusefs.Node) error {
	d.afs.mu.Lock()
	defer d.afs.mu.Unlock()

	if d.afs.readOnly {
		return fuse.Errno(syscall.EROFS)
	}
	dest, ok := newDir.(*Dir)
	if !ok {
		return fuse.Errno(syscall.ENOTDIR)
	}
	from := path.Join(d.path, req.OldName)
	to := path.Join(dest.path, req.NewName)
	return mapError(d.afs.engine.Rename(ctx, from, to))
}

// Setattr applies timestamp updates to the directory.
func (d *Dir) Setattr(ctx context.Context, req *fuse.SetattrRequest, resp *fuse.SetattrResponse) error {
	d.afs.mu.Lock()
	defer d.afs.mu.Unlock()

	if d.afs.readOnly {
		return fuse.Errno(syscall.EROFS)
	}
	if err := applyTimes(ctx, d.afs.engine, d.path, req); err != nil {
		return mapError(err)
	}
	info, err := d.afs.engine.GetAttr(ctx, d.path)
	if err != nil {
		return mapError(err)
	}
	fillAttr(info, &resp.Attr)
	return nil
}

// applyTimes forwards the atime/mtime portion of a Setattr request to
// the engine's Utimens.
func applyTimes(ctx context.Context, engine fs.FileSystem, p string, req *fuse.SetattrRequest) error {
	if !req.Valid.Atime() && !req.Valid.Mtime() &&
		!req.Valid.AtimeNow() && !req.Valid.MtimeNow() {
		return nil
	}
	var atime, mtime *time.Time
	if req.Valid.Atime() && !req.Valid.AtimeNow() {
		t := req.Atime
		atime = &t
	}
	if req.Valid.Mtime() && !req.Valid.MtimeNow() {
		t := req.Mtime
		mtime = &t
	}
	return engine.Utimens(ctx, p, atime, mtime)
}
