// Package ircfuse translates kernel filesystem upcalls into tree-store
// operations.
//
// The adapter implements the path-addressed pathfs.FileSystem surface:
// attribute queries and reads go straight to the tree under its read
// lock, writes append locally and hand the payload to the bridge's
// command parser. Adapter calls are short-lived and never block on the
// network.
package ircfuse

import (
	"time"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/hanwen/go-fuse/v2/fuse/nodefs"
	"github.com/hanwen/go-fuse/v2/fuse/pathfs"

	"github.com/marmos91/ircfs/internal/logger"
	"github.com/marmos91/ircfs/pkg/bridge"
	"github.com/marmos91/ircfs/pkg/metrics"
	"github.com/marmos91/ircfs/pkg/tree"
)

// attrTTL is the attribute/entry cache validity reported to the kernel.
// Directories appear with a delay proportional to event arrival, so a
// short TTL keeps listings fresh without hammering the daemon.
const attrTTL = time.Second

// WriteSink receives the payload of every successful user write. The
// bridge's command parser is the production implementation.
type WriteSink interface {
	HandleWrite(path string, data []byte) error
}

// FileSystem is the kernel-facing adapter over the tree store.
type FileSystem struct {
	pathfs.FileSystem

	tree     *tree.Tree
	sink     WriteSink
	channels []string
}

// NewFileSystem builds the adapter. channels lists the pre-declared
// channel directories materialized at mount time.
func NewFileSystem(t *tree.Tree, sink WriteSink, channels []string) *FileSystem {
	return &FileSystem{
		FileSystem: pathfs.NewDefaultFileSystem(),
		tree:       t,
		sink:       sink,
		channels:   channels,
	}
}

func (fs *FileSystem) String() string {
	return "ircfs"
}

// Init pre-creates the session-level files and any channel directories
// declared in configuration. A failure here aborts the mount.
func (fs *FileSystem) Init() error {
	if err := fs.tree.MkRWFile(bridge.ControlPath); err != nil {
		return err
	}
	if err := fs.tree.MkROFile(bridge.SessionLog); err != nil {
		return err
	}
	if err := fs.tree.MkROFile(bridge.RawLog); err != nil {
		return err
	}
	// The root directory and the three session-level files.
	metrics.TreeNodes.WithLabelValues("dir").Inc()
	metrics.TreeNodes.WithLabelValues("file").Add(3)
	for _, channel := range fs.channels {
		if err := bridge.Materialize(fs.tree, "/"+channel); err != nil {
			return err
		}
		logger.Debug("pre-declared channel", logger.KeyPath, "/"+channel)
	}
	return nil
}

// GetAttr resolves a path and returns its attributes. The connector
// uses this for lookup as well.
func (fs *FileSystem) GetAttr(name string, context *fuse.Context) (*fuse.Attr, fuse.Status) {
	attr, err := fs.tree.Attr(treePath(name))
	if err != nil {
		return nil, observe("getattr", errStatus(err))
	}
	out := fuseAttr(attr)
	observe("getattr", fuse.OK)
	return &out, fuse.OK
}

// OpenDir lists a directory, prepending the synthetic "." and ".."
// entries. Children appear in insertion order.
func (fs *FileSystem) OpenDir(name string, context *fuse.Context) ([]fuse.DirEntry, fuse.Status) {
	children, err := fs.tree.DirEntries(treePath(name))
	if err != nil {
		return nil, observe("readdir", errStatus(err))
	}

	stream := make([]fuse.DirEntry, 0, len(children)+2)
	stream = append(stream,
		fuse.DirEntry{Name: ".", Mode: fuse.S_IFDIR},
		fuse.DirEntry{Name: "..", Mode: fuse.S_IFDIR},
	)
	for _, child := range children {
		mode := uint32(fuse.S_IFREG)
		if child.Kind == tree.KindDirectory {
			mode = fuse.S_IFDIR
		}
		stream = append(stream, fuse.DirEntry{Name: child.Name, Mode: mode})
	}
	observe("readdir", fuse.OK)
	return stream, fuse.OK
}

// Open unconditionally hands out a handle bound to the path; the
// individual I/O operations report type and permission errors.
func (fs *FileSystem) Open(name string, flags uint32, context *fuse.Context) (nodefs.File, fuse.Status) {
	observe("open", fuse.OK)
	return newIrcFile(fs, treePath(name), context.Owner), fuse.OK
}

// Truncate succeeds without touching data on writable files. The
// receive logs are append-only; truncating them is not supported.
// Editors commonly truncate before writing back, so rejecting this
// outright would break writes to the send files.
func (fs *FileSystem) Truncate(name string, size uint64, context *fuse.Context) fuse.Status {
	return observe("truncate", fs.truncate(treePath(name)))
}

func (fs *FileSystem) truncate(path string) fuse.Status {
	writable, err := fs.tree.Writable(path)
	if err != nil {
		return errStatus(err)
	}
	if !writable {
		return statusNotSupported
	}
	return fuse.OK
}

// Access always succeeds: directory traversal is unrestricted in this
// filesystem.
func (fs *FileSystem) Access(name string, mode uint32, context *fuse.Context) fuse.Status {
	return observe("access", fuse.OK)
}

// StatFs reports a synthetic, empty filesystem so tools like df keep
// working.
func (fs *FileSystem) StatFs(name string) *fuse.StatfsOut {
	return &fuse.StatfsOut{Bsize: 4096, NameLen: 255}
}

// treePath converts a connector-relative name ("", "#go/receive") to
// the tree's absolute form.
func treePath(name string) string {
	return "/" + name
}

// fuseAttr converts tree attributes to the kernel representation.
func fuseAttr(a tree.Attr) fuse.Attr {
	mode := a.Perm
	if a.Kind == tree.KindDirectory {
		mode |= fuse.S_IFDIR
	} else {
		mode |= fuse.S_IFREG
	}

	out := fuse.Attr{
		Size:   a.Size,
		Blocks: a.Blocks,
		Mode:   mode,
		Nlink:  a.Nlink,
		Owner:  fuse.Owner{Uid: a.UID, Gid: a.GID},
		Rdev:   a.Rdev,
	}
	atime := a.Atime
	mtime := a.Mtime
	ctime := a.Ctime
	out.SetTimes(&atime, &mtime, &ctime)
	return out
}
