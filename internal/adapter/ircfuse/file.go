package ircfuse

import (
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/hanwen/go-fuse/v2/fuse/nodefs"

	"github.com/marmos91/ircfs/internal/logger"
	"github.com/marmos91/ircfs/pkg/tree"
)

// ircFile is the per-open handle. It carries no state beyond the path
// it was opened on and the identity of the opener; all data lives in
// the tree.
type ircFile struct {
	nodefs.File

	fs     *FileSystem
	path   string
	caller fuse.Owner
}

func newIrcFile(fs *FileSystem, path string, caller fuse.Owner) nodefs.File {
	return &ircFile{
		File:   nodefs.NewDefaultFile(),
		fs:     fs,
		path:   path,
		caller: caller,
	}
}

func (f *ircFile) String() string {
	return "ircFile(" + f.path + ")"
}

// Read returns buffer[offset:min(offset+len(dest), len)]. Offsets at or
// past the end yield an empty result rather than an error.
func (f *ircFile) Read(dest []byte, off int64) (fuse.ReadResult, fuse.Status) {
	if off < 0 {
		return nil, observe("read", fuse.EINVAL)
	}
	data, err := f.fs.tree.ReadAt(f.path, uint64(off), uint32(len(dest)))
	if err != nil {
		return nil, observe("read", errStatus(err))
	}
	observe("read", fuse.OK)
	return fuse.ReadResultData(data), fuse.OK
}

// Write appends to the tree buffer and dispatches the payload to the
// command parser. The offset is ignored: these files are append-only.
func (f *ircFile) Write(data []byte, off int64) (uint32, fuse.Status) {
	attr, err := f.fs.tree.Attr(f.path)
	if err != nil {
		return 0, observe("write", errStatus(err))
	}
	if attr.Kind == tree.KindDirectory {
		return 0, observe("write", statusIsDirectory)
	}
	if !attr.CanWrite(f.caller.Uid, f.caller.Gid) {
		return 0, observe("write", statusNotSupported)
	}

	if err := f.fs.tree.Append(f.path, data); err != nil {
		return 0, observe("write", errStatus(err))
	}
	if err := f.fs.sink.HandleWrite(f.path, data); err != nil {
		// The bridge is gone; the payload cannot reach the network.
		logger.Warn("write not dispatched", logger.KeyPath, f.path, logger.KeyError, err)
		return 0, observe("write", statusNotSupported)
	}
	observe("write", fuse.OK)
	return uint32(len(data)), fuse.OK
}

// Truncate mirrors the path-level semantics: a tolerated no-op on
// writable files.
func (f *ircFile) Truncate(size uint64) fuse.Status {
	return observe("truncate", f.fs.truncate(f.path))
}

// Flush is called on close; there is nothing to sync.
func (f *ircFile) Flush() fuse.Status {
	return fuse.OK
}
