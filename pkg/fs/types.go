package fs

import (
	"time"
)

// FileType represents the type of a file.
type FileType uint32

const (
	// FileTypeRegular is a regular file
	FileTypeRegular FileType = iota
	// FileTypeDirectory is a directory
	FileTypeDirectory
)

// String returns a string representation of the file type
func (ft FileType) String() string {
	switch ft {
	case FileTypeRegular:
		return "regular"
	case FileTypeDirectory:
		return "directory"
	default:
		return "unknown"
	}
}

// FileMode represents the permission bits of a file.
type FileMode uint32

const (
	// ModeMask is the mask for the file permission bits
	ModeMask FileMode = 0777
)

// FileInfo contains information about a file.
type FileInfo struct {
	// Type is the file type
	Type FileType

	// Mode contains the permission bits
	Mode FileMode

	// Size is the file size in bytes
	Size int64

	// Uid is the user ID of the file's owner
	Uid uint32

	// Gid is the group ID of the file's group
	Gid uint32

	// Nlink is the number of hard links to the file
	Nlink uint32

	// BlockSize is the filesystem block size
	BlockSize uint32

	// Blocks is the number of blocks allocated
	Blocks uint64

	// AccessTime is the time of last access
	AccessTime time.Time

	// ModifyTime is the time of last modification
	ModifyTime time.Time

	// ChangeTime is the time of last status change
	ChangeTime time.Time
}

// DirEntry represents an entry in a directory.
type DirEntry struct {
	// Name is the name of the entry
	Name string

	// Type is the entry's file type
	Type FileType
}

// FSStat contains information about a filesystem.
type FSStat struct {
	// BlockSize is the allocation unit size in bytes
	BlockSize uint32

	// TotalBlocks is the total number of blocks in the filesystem
	TotalBlocks uint64

	// FreeBlocks is the number of unallocated blocks
	FreeBlocks uint64

	// TotalFiles is the total number of inode slots
	TotalFiles uint64

	// FreeFiles is the number of free inode slots
	FreeFiles uint64

	// NameMaxLength is the maximum length of a file name
	NameMaxLength uint32
}
