// Package fuse adapts the engine's fs.FileSystem interface to the
// kernel's file operations via bazil.org/fuse. It owns the mount
// lifecycle and the mapping from the engine's error taxonomy to POSIX
// error numbers.
package fuse

import (
	"errors"
	"log"
	"syscall"

	"bazil.org/fuse"

	"github.com/example/arenafs/pkg/fs"
)

// mapError converts an engine error to the errno the kernel expects.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, fs.ErrNotExist) {
		return fuse.Errno(syscall.ENOENT)
	} else if errors.Is(err, fs.ErrExist) {
		return fuse.Errno(syscall.EEXIST)
	} else if errors.Is(err, fs.ErrIsDir) {
		return fuse.Errno(syscall.EISDIR)
	} else if errors.Is(err, fs.ErrNotDir) {
		return fuse.Errno(syscall.ENOTDIR)
	} else if errors.Is(err, fs.ErrNotEmpty) {
		return fuse.Errno(syscall.ENOTEMPTY)
	} else if errors.Is(err, fs.ErrNoSpace) {
		return fuse.Errno(syscall.ENOSPC)
	} else if errors.Is(err, fs.ErrInvalid) {
		return fuse.Errno(syscall.EINVAL)
	} else if errors.Is(err, fs.ErrTooLarge) {
		return fuse.Errno(syscall.EFBIG)
	} else if errors.Is(err, fs.ErrBusy) {
		return fuse.Errno(syscall.EBUSY)
	} else if errors.Is(err, fs.ErrIO) {
		return fuse.Errno(syscall.EIO)
	}

	// Default for unrecognized errors
	log.Printf("Unknown error type: %T, message: %v", err, err)
	return fuse.Errno(syscall.EIO)
}
