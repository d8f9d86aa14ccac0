package ircfuse

import (
	"fmt"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/hanwen/go-fuse/v2/fuse/nodefs"
	"github.com/hanwen/go-fuse/v2/fuse/pathfs"
)

// Mount initializes the tree's session files and attaches the adapter
// at mountpoint. The returned server's Serve method blocks until the
// filesystem is unmounted.
func Mount(mountpoint string, fs *FileSystem) (*fuse.Server, error) {
	if err := fs.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize tree: %w", err)
	}

	pnfs := pathfs.NewPathNodeFs(fs, nil)
	opts := &nodefs.Options{
		AttrTimeout:  attrTTL,
		EntryTimeout: attrTTL,
	}
	server, _, err := nodefs.MountRoot(mountpoint, pnfs.Root(), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to mount %s: %w", mountpoint, err)
	}
	return server, nil
}
