package fuse

import (
	"context"
	"sync"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"

	"github.com/example/arenafs/pkg/fs"
)

// ArenaFUSE implements the FUSE filesystem interface on top of an
// engine. The engine assumes single-threaded mutation, so every
// dispatch holds mu; that lock is the external mutual exclusion the
// engine's contract requires from its host.
type ArenaFUSE struct {
	mu       sync.Mutex
	engine   fs.FileSystem
	readOnly bool
}

// NewArenaFUSE creates a FUSE filesystem dispatching into engine.
func NewArenaFUSE(engine fs.FileSystem, readOnly bool) *ArenaFUSE {
	return &ArenaFUSE{engine: engine, readOnly: readOnly}
}

// Root returns the root directory of the filesystem.
func (a *ArenaFUSE) Root() (fusefs.Node, error) {
	return &Dir{afs: a, path: "/"}, nil
}

// Statfs reports filesystem usage to the kernel.
func (a *ArenaFUSE) Statfs(ctx context.Context, req *fuse.StatfsRequest, resp *fuse.StatfsResponse) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	stat, err := a.engine.StatFS(ctx)
	if err != nil {
		return mapError(err)
	}
	resp.Bsize = stat.BlockSize
	resp.Frsize = stat.BlockSize
	resp.Blocks = stat.TotalBlocks
	resp.Bfree = stat.FreeBlocks
	resp.Bavail = stat.FreeBlocks
	resp.Files = stat.TotalFiles
	resp.Ffree = stat.FreeFiles
	resp.Namelen = stat.NameMaxLength
	return nil
}

// attr fills a fuse.Attr from engine file info.
func fillAttr(info fs.FileInfo, attr *fuse.Attr) {
	attr.Mode = infoMode(info)
	attr.Size = uint64(info.Size)
	attr.Blocks = info.Blocks
	attr.Nlink = info.Nlink
	attr.Uid = info.Uid
	attr.Gid = info.Gid
	attr.Atime = info.AccessTime
	attr.Mtime = info.ModifyTime
	attr.Ctime = info.ChangeTime
	attr.BlockSize = info.BlockSize
}
