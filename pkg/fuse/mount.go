package fuse

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"

	"github.com/example/arenafs/pkg/fs"
)

// MountOptions contains options for mounting the filesystem
type MountOptions struct {
	MountPoint string
	ReadOnly   bool
	Debug      bool
}

// Mount mounts the engine at the specified mount point and serves it
// until the process receives SIGINT or SIGTERM, then unmounts. The
// caller still owns the arena and is responsible for syncing it after
// Mount returns.
func Mount(engine fs.FileSystem, options MountOptions) error {
	mountOpts := []fuse.MountOption{
		fuse.FSName("arenafs"),
		fuse.Subtype("arenafs"),
	}

	if options.ReadOnly {
		mountOpts = append(mountOpts, fuse.ReadOnly())
	}

	if options.Debug {
		fuse.Debug = func(msg interface{}) {
			fmt.Printf("FUSE: %v\n", msg)
		}
	}

	log.Printf("Mounting FUSE filesystem at %s", options.MountPoint)
	c, err := fuse.Mount(options.MountPoint, mountOpts...)
	if err != nil {
		return fmt.Errorf("failed to mount: %w", err)
	}
	defer c.Close()

	afs := NewArenaFUSE(engine, options.ReadOnly)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- fusefs.Serve(c, afs)
	}()

	log.Println("FUSE filesystem mounted")
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	case s := <-sig:
		log.Printf("Received signal %v, unmounting...", s)
		if err := Unmount(options.MountPoint); err != nil {
			log.Printf("Warning: failed to unmount cleanly: %v", err)
		}
		<-serveErr
	}

	return nil
}

// Unmount unmounts the filesystem
func Unmount(mountPoint string) error {
	return fuse.Unmount(mountPoint)
}
