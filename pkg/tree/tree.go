// Package tree implements the in-memory node store behind the ircfs
// mount: a rooted directory tree addressed by absolute paths, holding
// directories and append-only file buffers.
//
// The store is queried concurrently by the FUSE adapter and mutated by
// the bridge's tree-mutation worker. A single reader/writer lock guards
// the whole tree: operations returning data hold the read lock for the
// duration of the call, structural mutations and appends hold the write
// lock. Nodes are never deleted; the tree lives only for the duration
// of the mount.
package tree

import (
	"strings"
	"sync"
	"time"
)

// Tree is the rooted in-memory store.
type Tree struct {
	mu   sync.RWMutex
	root *node

	// uid/gid stamp every node created in this tree; they are the mount
	// owner's real ids captured at mount time.
	uid uint32
	gid uint32
}

// New creates a tree containing only the root directory, owned by the
// given identity.
func New(uid, gid uint32) *Tree {
	return &Tree{
		root: newDirNode(uid, gid, time.Now()),
		uid:  uid,
		gid:  gid,
	}
}

// splitPath parses an absolute path into its ordered components. The
// empty path and "/" resolve to no components (the root itself). Empty
// components from a trailing separator are discarded. Relative paths
// are rejected.
func splitPath(path string) ([]string, bool) {
	if path == "" {
		return nil, true
	}
	if path[0] != '/' {
		return nil, false
	}
	var parts []string
	for _, part := range strings.Split(path[1:], "/") {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts, true
}

// lookup walks the tree one component at a time. The caller must hold
// the lock. Descending through a file is a hard miss.
func (t *Tree) lookup(path string) (*node, error) {
	parts, ok := splitPath(path)
	if !ok {
		return nil, errNotFound(path)
	}
	n := t.root
	for _, part := range parts {
		if !n.isDir() {
			return nil, errNotFound(path)
		}
		child, found := n.children[part]
		if !found {
			return nil, errNotFound(path)
		}
		n = child
	}
	return n, nil
}

// parentAndName resolves the directory that should hold the terminal
// component of path. The caller must hold the write lock.
func (t *Tree) parentAndName(path string) (*node, string, error) {
	parts, ok := splitPath(path)
	if !ok || len(parts) == 0 {
		return nil, "", &StoreError{Code: ErrInvalidArgument, Message: "invalid insertion path", Path: path}
	}
	n := t.root
	for _, part := range parts[:len(parts)-1] {
		if !n.isDir() {
			return nil, "", errNotDirectory(path)
		}
		child, found := n.children[part]
		if !found {
			return nil, "", errNotFound(path)
		}
		n = child
	}
	if !n.isDir() {
		return nil, "", errNotDirectory(path)
	}
	return n, parts[len(parts)-1], nil
}

// insert links a node under its parent. Inserting a directory bumps the
// parent's hard-link count for the child's ".." back-link.
func (t *Tree) insert(path string, child *node) error {
	parent, name, err := t.parentAndName(path)
	if err != nil {
		return err
	}
	if _, exists := parent.children[name]; exists {
		return errAlreadyExists(path)
	}
	parent.children[name] = child
	parent.order = append(parent.order, name)
	if child.isDir() {
		parent.attr.Nlink++
	}
	return nil
}

// MkDir creates a directory at path. Every ancestor must already exist.
func (t *Tree) MkDir(path string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.insert(path, newDirNode(t.uid, t.gid, time.Now()))
}

// MkROFile creates a read-only file at path. Read-only files receive
// appends from the bridge but reject user writes.
func (t *Tree) MkROFile(path string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.insert(path, newFileNode(t.uid, t.gid, false, time.Now()))
}

// MkRWFile creates a user-writable file at path.
func (t *Tree) MkRWFile(path string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.insert(path, newFileNode(t.uid, t.gid, true, time.Now()))
}

// MkParents idempotently creates every missing directory on path,
// including the terminal component. An existing file on the path is a
// not-a-directory error.
func (t *Tree) MkParents(path string) error {
	parts, ok := splitPath(path)
	if !ok {
		return &StoreError{Code: ErrInvalidArgument, Message: "invalid path", Path: path}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.root
	for _, part := range parts {
		if !n.isDir() {
			return errNotDirectory(path)
		}
		child, found := n.children[part]
		if !found {
			child = newDirNode(t.uid, t.gid, time.Now())
			n.children[part] = child
			n.order = append(n.order, part)
			n.attr.Nlink++
		}
		n = child
	}
	if !n.isDir() {
		return errNotDirectory(path)
	}
	return nil
}

// Append extends the file buffer at path and updates its size and
// timestamps.
func (t *Tree) Append(path string, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, err := t.lookup(path)
	if err != nil {
		return err
	}
	if n.isDir() {
		return errIsDirectory(path)
	}
	n.append(data, time.Now())
	return nil
}

// Attr returns a copy of the attributes of the node at path.
func (t *Tree) Attr(path string) (Attr, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n, err := t.lookup(path)
	if err != nil {
		return Attr{}, err
	}
	return n.attr, nil
}

// Exists reports whether a node exists at path.
func (t *Tree) Exists(path string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, err := t.lookup(path)
	return err == nil
}

// Writable reports whether the node at path is a file accepting user
// writes.
func (t *Tree) Writable(path string) (bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n, err := t.lookup(path)
	if err != nil {
		return false, err
	}
	if n.isDir() {
		return false, errIsDirectory(path)
	}
	return n.writable, nil
}

// DirEntries lists the children of the directory at path in insertion
// order. The synthetic "." and ".." entries are the adapter's business,
// not the store's.
func (t *Tree) DirEntries(path string) ([]DirEntry, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n, err := t.lookup(path)
	if err != nil {
		return nil, err
	}
	if !n.isDir() {
		return nil, errNotDirectory(path)
	}
	entries := make([]DirEntry, 0, len(n.order))
	for _, name := range n.order {
		entries = append(entries, DirEntry{Name: name, Kind: n.children[name].attr.Kind})
	}
	return entries, nil
}

// ReadAt returns the slice buffer[offset:min(offset+size, len)] of the
// file at path. Offsets at or past the end of the buffer return an
// empty slice rather than an error. The returned slice is a copy.
func (t *Tree) ReadAt(path string, offset uint64, size uint32) ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n, err := t.lookup(path)
	if err != nil {
		return nil, err
	}
	if n.isDir() {
		return nil, errIsDirectory(path)
	}
	length := uint64(len(n.data))
	if offset >= length {
		return []byte{}, nil
	}
	end := offset + uint64(size)
	if end > length {
		end = length
	}
	out := make([]byte, end-offset)
	copy(out, n.data[offset:end])
	return out, nil
}

// Size returns the current buffer length of the file at path.
func (t *Tree) Size(path string) (uint64, error) {
	a, err := t.Attr(path)
	if err != nil {
		return 0, err
	}
	if a.Kind == KindDirectory {
		return 0, errIsDirectory(path)
	}
	return a.Size, nil
}

// Owner returns the identity every node in this tree is stamped with.
func (t *Tree) Owner() (uid, gid uint32) {
	return t.uid, t.gid
}
