package tree

import "time"

// NodeKind discriminates the two node variants held by the tree.
type NodeKind int

const (
	KindDirectory NodeKind = iota
	KindRegular
)

// Attr contains the complete metadata for a node.
//
// For directories Size is a fixed display value; for files Size tracks
// the buffer length exactly.
type Attr struct {
	// Size is the node size in bytes
	Size uint64

	// Blocks is the block count reported to stat
	Blocks uint64

	// Atime is the last access time
	Atime time.Time

	// Mtime is the last modification time
	Mtime time.Time

	// Ctime is the last change time (metadata changes)
	Ctime time.Time

	// Crtime is the creation (birth) time
	Crtime time.Time

	// Kind is the node kind (directory or regular file)
	Kind NodeKind

	// Perm contains the 12-bit permission field
	Perm uint32

	// Nlink is the number of hard links referencing this node
	Nlink uint32

	// UID is the owner user ID
	UID uint32

	// GID is the owner group ID
	GID uint32

	// Rdev is the device id (always zero for this filesystem)
	Rdev uint32

	// Flags holds host-specific attribute flags (always zero)
	Flags uint32
}

// DirEntry is one (name, kind) pair from a directory listing.
type DirEntry struct {
	Name string
	Kind NodeKind
}

// node is a tree element: exactly one of directory or regular file.
// Directories map child names to nodes and remember insertion order so
// listings are reproducible. Files hold an append-only byte buffer; the
// writable flag records whether user writes are permitted.
type node struct {
	attr     Attr
	children map[string]*node
	order    []string
	data     []byte
	writable bool
}

const (
	dirSize   = 4096
	dirBlocks = 8

	permDir    = 0o700
	permROFile = 0o400
	permRWFile = 0o600
)

func newDirNode(uid, gid uint32, now time.Time) *node {
	return &node{
		attr: Attr{
			Size:   dirSize,
			Blocks: dirBlocks,
			Atime:  now,
			Mtime:  now,
			Ctime:  now,
			Crtime: now,
			Kind:   KindDirectory,
			Perm:   permDir,
			Nlink:  2,
			UID:    uid,
			GID:    gid,
		},
		children: make(map[string]*node),
	}
}

func newFileNode(uid, gid uint32, writable bool, now time.Time) *node {
	perm := uint32(permROFile)
	if writable {
		perm = permRWFile
	}
	return &node{
		attr: Attr{
			Blocks: 1,
			Atime:  now,
			Mtime:  now,
			Ctime:  now,
			Crtime: now,
			Kind:   KindRegular,
			Perm:   perm,
			Nlink:  1,
			UID:    uid,
			GID:    gid,
		},
		writable: writable,
	}
}

func (n *node) isDir() bool {
	return n.attr.Kind == KindDirectory
}

// append extends the file buffer. Buffers grow monotonically; nothing
// ever removes bytes from them.
func (n *node) append(data []byte, now time.Time) {
	n.data = append(n.data, data...)
	n.attr.Size = uint64(len(n.data))
	n.attr.Atime = now
	n.attr.Mtime = now
}
