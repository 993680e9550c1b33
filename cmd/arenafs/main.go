package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"golang.org/x/sys/unix"

	"github.com/example/arenafs/pkg/fs/arena"
	"github.com/example/arenafs/pkg/fuse"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to YAML config file")
	mountPoint := flag.String("mount", "", "Directory to mount the filesystem on")
	backingFile := flag.String("backing", "", "Backing file for the arena (empty for in-memory only)")
	size := flag.Int64("size", 0, "Arena size in bytes for a fresh arena")
	readOnly := flag.Bool("readonly", false, "Mount read-only")
	debug := flag.Bool("debug", false, "Enable FUSE debug output")

	flag.Parse()

	// Load configuration; flags override file values
	config := DefaultConfig()
	if *configPath != "" {
		loaded, err := LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		config = loaded
	}
	if *mountPoint != "" {
		config.MountPoint = *mountPoint
	}
	if *backingFile != "" {
		config.BackingFile = *backingFile
	}
	if *size != 0 {
		config.Size = *size
	}
	if *readOnly {
		config.ReadOnly = true
	}
	if *debug {
		config.Debug = true
	}

	if config.MountPoint == "" {
		log.Fatal("No mount point given (use -mount or the config file)")
	}

	// Map or allocate the arena
	buf, cleanup, err := openArena(config)
	if err != nil {
		log.Fatalf("Failed to open arena: %v", err)
	}

	// Create the engine over the arena; a fresh arena is formatted
	// here, a backed one is validated and reopened
	engine, err := arena.NewArenaFS(buf)
	if err != nil {
		cleanup()
		log.Fatalf("Failed to initialize filesystem: %v", err)
	}

	// Serve until unmounted or signalled
	mountErr := fuse.Mount(engine, fuse.MountOptions{
		MountPoint: config.MountPoint,
		ReadOnly:   config.ReadOnly,
		Debug:      config.Debug,
	})

	// Flush the arena back to the backing file before exiting
	cleanup()

	if mountErr != nil {
		log.Fatalf("Mount error: %v", mountErr)
	}
	log.Println("arenafs stopped")
}

// openArena maps the backing file, growing a fresh one to the
// configured size, or allocates an anonymous arena when no backing
// file is configured. The returned cleanup syncs and unmaps.
func openArena(config *Config) ([]byte, func(), error) {
	if config.BackingFile == "" {
		log.Printf("Using in-memory arena of %d bytes", config.Size)
		return make([]byte, config.Size), func() {}, nil
	}

	f, err := os.OpenFile(config.BackingFile, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open backing file: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat backing file: %w", err)
	}
	size := fi.Size()
	if size == 0 {
		size = config.Size
		if err := f.Truncate(size); err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("grow backing file: %w", err)
		}
	}

	prot := unix.PROT_READ | unix.PROT_WRITE
	buf, err := unix.Mmap(int(f.Fd()), 0, int(size), prot, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("mmap backing file: %w", err)
	}
	log.Printf("Mapped %s (%d bytes)", config.BackingFile, size)

	cleanup := func() {
		if err := unix.Msync(buf, unix.MS_SYNC); err != nil {
			log.Printf("Warning: msync failed: %v", err)
		}
		if err := unix.Munmap(buf); err != nil {
			log.Printf("Warning: munmap failed: %v", err)
		}
		f.Close()
	}
	return buf, cleanup, nil
}
