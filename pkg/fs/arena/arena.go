// Package arena implements an fs.FileSystem whose entire state, data
// and metadata, lives inside one fixed-size byte region supplied by the
// caller. The region may be backed by a file and remapped at a
// different address between sessions, so no record inside it ever holds
// a native pointer; every reference is a byte offset from the start of
// the region, translated at the moment of use.
package arena

import (
	"encoding/binary"

	"github.com/example/arenafs/pkg/fs"
)

// region is the single translation boundary between arena-relative
// offsets and accessible memory. Every dereference in this package goes
// through window; nothing above it stores a slice that outlives one
// operation call.
type region struct {
	buf []byte
}

func (r region) size() uint64 {
	return uint64(len(r.buf))
}

// window returns the n bytes starting at offset off, or ErrIO if the
// range does not lie inside the arena.
func (r region) window(off, n uint64) ([]byte, error) {
	end := off + n
	if end < off || end > r.size() {
		return nil, fs.ErrIO
	}
	return r.buf[off:end:end], nil
}

// Fixed-width field accessors used by the record layouts. All on-arena
// integers are little-endian.

func getU32(b []byte, off int) uint32 { return binary.LittleEndian.Uint32(b[off:]) }
func getU64(b []byte, off int) uint64 { return binary.LittleEndian.Uint64(b[off:]) }
func getI64(b []byte, off int) int64  { return int64(binary.LittleEndian.Uint64(b[off:])) }

func putU32(b []byte, off int, v uint32) { binary.LittleEndian.PutUint32(b[off:], v) }
func putU64(b []byte, off int, v uint64) { binary.LittleEndian.PutUint64(b[off:], v) }
func putI64(b []byte, off int, v int64)  { binary.LittleEndian.PutUint64(b[off:], uint64(v)) }

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
