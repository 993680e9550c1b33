package arena

import (
	"time"

	"github.com/example/arenafs/pkg/fs"
)

// dirBlock returns the entry-array window of a directory. Directories
// always own a data block; a directory inode without one is an arena
// inconsistency.
func (m *ArenaFS) dirBlock(dir node) ([]byte, error) {
	if dir.blockOff() == 0 {
		return nil, fs.ErrIO
	}
	return m.window(dir.blockOff(), BlockSize)
}

func entryCount(dir node) int {
	return int(dir.size() / DirEntrySize)
}

// userEntryCount excludes the synthetic "." and ".." slots.
func userEntryCount(dir node) int {
	return entryCount(dir) - 2
}

// findEntry scans a directory's entries for an exact, case-sensitive
// name match and returns the slot index and target inode offset, or
// index -1 when the name is absent.
func (m *ArenaFS) findEntry(dir node, name string) (int, uint64, error) {
	blk, err := m.dirBlock(dir)
	if err != nil {
		return -1, 0, err
	}
	name = clampName(name)
	for i := 0; i < entryCount(dir); i++ {
		e := blk[i*DirEntrySize : (i+1)*DirEntrySize]
		if entryName(e) == name {
			return i, entryInodeOff(e), nil
		}
	}
	return -1, 0, nil
}

// addEntry appends a (name, inode-offset) record at the first unused
// slot and stamps the directory's modification and change times. The
// caller has already rejected duplicate names.
func (m *ArenaFS) addEntry(dir node, name string, inodeOff uint64) error {
	count := entryCount(dir)
	if count >= EntriesPerBlock {
		return fs.ErrNoSpace
	}
	blk, err := m.dirBlock(dir)
	if err != nil {
		return err
	}
	setEntry(blk[count*DirEntrySize:(count+1)*DirEntrySize], name, inodeOff)
	dir.setSize(uint64(count+1) * DirEntrySize)
	now := time.Now()
	dir.setMtime(now)
	dir.setCtime(now)
	return nil
}

// removeEntry deletes the record matching name, shifting every later
// entry one slot left and zero-filling the vacated final slot, so the
// entry array stays contiguous.
func (m *ArenaFS) removeEntry(dir node, name string) error {
	idx, _, err := m.findEntry(dir, name)
	if err != nil {
		return err
	}
	if idx < 0 {
		return fs.ErrNotExist
	}
	blk, err := m.dirBlock(dir)
	if err != nil {
		return err
	}
	count := entryCount(dir)
	copy(blk[idx*DirEntrySize:], blk[(idx+1)*DirEntrySize:count*DirEntrySize])
	zero(blk[(count-1)*DirEntrySize : count*DirEntrySize])
	dir.setSize(uint64(count-1) * DirEntrySize)
	now := time.Now()
	dir.setMtime(now)
	dir.setCtime(now)
	return nil
}
