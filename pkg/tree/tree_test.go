package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTree() *Tree {
	return New(1000, 1000)
}

func TestTree_RootAttributes(t *testing.T) {
	tr := newTestTree()

	attr, err := tr.Attr("/")
	require.NoError(t, err)

	assert.Equal(t, KindDirectory, attr.Kind)
	assert.Equal(t, uint64(dirSize), attr.Size)
	assert.Equal(t, uint32(1000), attr.UID)
	assert.Equal(t, uint32(1000), attr.GID)
	assert.Equal(t, uint32(2), attr.Nlink)

	// The empty path resolves to the root as well.
	empty, err := tr.Attr("")
	require.NoError(t, err)
	assert.Equal(t, attr.Kind, empty.Kind)
}

func TestTree_CreateAndResolve(t *testing.T) {
	tr := newTestTree()

	require.NoError(t, tr.MkDir("/#go"))
	require.NoError(t, tr.MkROFile("/#go/receive"))
	require.NoError(t, tr.MkRWFile("/#go/send"))

	// Every created path is subsequently resolvable.
	attr, err := tr.Attr("/#go")
	require.NoError(t, err)
	assert.Equal(t, KindDirectory, attr.Kind)

	attr, err = tr.Attr("/#go/receive")
	require.NoError(t, err)
	assert.Equal(t, KindRegular, attr.Kind)
	assert.Zero(t, attr.Perm&0o222, "receive must not be writable")

	attr, err = tr.Attr("/#go/send")
	require.NoError(t, err)
	assert.NotZero(t, attr.Perm&0o200, "send must be owner-writable")

	// The parent listing contains the created names with the right kinds,
	// in insertion order.
	entries, err := tr.DirEntries("/#go")
	require.NoError(t, err)
	assert.Equal(t, []DirEntry{
		{Name: "receive", Kind: KindRegular},
		{Name: "send", Kind: KindRegular},
	}, entries)
}

func TestTree_CreateErrors(t *testing.T) {
	tr := newTestTree()
	require.NoError(t, tr.MkDir("/a"))
	require.NoError(t, tr.MkRWFile("/a/f"))

	// Missing ancestor.
	err := tr.MkDir("/missing/child")
	assert.Equal(t, ErrNotFound, CodeOf(err))

	// Duplicate name.
	err = tr.MkDir("/a")
	assert.Equal(t, ErrAlreadyExists, CodeOf(err))
	err = tr.MkRWFile("/a/f")
	assert.Equal(t, ErrAlreadyExists, CodeOf(err))

	// Ancestor is a file.
	err = tr.MkDir("/a/f/sub")
	assert.Equal(t, ErrNotDirectory, CodeOf(err))

	// Relative paths never resolve.
	_, err = tr.Attr("relative")
	assert.Equal(t, ErrNotFound, CodeOf(err))
}

func TestTree_DescendThroughFileIsNotFound(t *testing.T) {
	tr := newTestTree()
	require.NoError(t, tr.MkRWFile("/f"))

	_, err := tr.Attr("/f/inner")
	assert.Equal(t, ErrNotFound, CodeOf(err))
}

func TestTree_DirNlinkTracksSubdirectories(t *testing.T) {
	tr := newTestTree()

	require.NoError(t, tr.MkDir("/a"))
	require.NoError(t, tr.MkDir("/b"))
	require.NoError(t, tr.MkRWFile("/c"))

	// Two subdirectories raise the root's link count; the file does not.
	attr, err := tr.Attr("/")
	require.NoError(t, err)
	assert.Equal(t, uint32(4), attr.Nlink)
}

func TestTree_AppendAccumulates(t *testing.T) {
	tr := newTestTree()
	require.NoError(t, tr.MkROFile("/receive"))

	chunks := [][]byte{
		[]byte("12:00:00 alice: hi\n"),
		[]byte("12:00:01 bob: yo\n"),
		[]byte(""),
		[]byte("12:00:02 alice: bye\n"),
	}
	var want []byte
	for _, chunk := range chunks {
		require.NoError(t, tr.Append("/receive", chunk))
		want = append(want, chunk...)
	}

	// Size equals the sum of appended byte counts.
	attr, err := tr.Attr("/receive")
	require.NoError(t, err)
	assert.Equal(t, uint64(len(want)), attr.Size)

	// Reading from zero returns the concatenation in order.
	data, err := tr.ReadAt("/receive", 0, uint32(len(want)+100))
	require.NoError(t, err)
	assert.Equal(t, want, data)
}

func TestTree_AppendErrors(t *testing.T) {
	tr := newTestTree()
	require.NoError(t, tr.MkDir("/d"))

	err := tr.Append("/d", []byte("x"))
	assert.Equal(t, ErrIsDirectory, CodeOf(err))

	err = tr.Append("/missing", []byte("x"))
	assert.Equal(t, ErrNotFound, CodeOf(err))
}

func TestTree_ReadAtBounds(t *testing.T) {
	tr := newTestTree()
	require.NoError(t, tr.MkROFile("/f"))
	require.NoError(t, tr.Append("/f", []byte("hello world")))

	tests := []struct {
		offset uint64
		size   uint32
		want   string
	}{
		{0, 5, "hello"},
		{6, 5, "world"},
		{6, 1000, "world"},
		{11, 10, ""},
		{1 << 40, 10, ""},
	}
	for _, tt := range tests {
		data, err := tr.ReadAt("/f", tt.offset, tt.size)
		require.NoError(t, err, "offset %d", tt.offset)
		assert.Equal(t, tt.want, string(data), "offset %d size %d", tt.offset, tt.size)
	}

	_, err := tr.ReadAt("/", 0, 10)
	assert.Equal(t, ErrIsDirectory, CodeOf(err))
}

func TestTree_MkParentsIdempotent(t *testing.T) {
	tr := newTestTree()

	require.NoError(t, tr.MkParents("/a/b/c"))
	require.NoError(t, tr.MkRWFile("/a/b/c/send"))

	// A second call leaves the tree unchanged.
	require.NoError(t, tr.MkParents("/a/b/c"))

	assert.True(t, tr.Exists("/a/b/c/send"))
	entries, err := tr.DirEntries("/a/b")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "c", entries[0].Name)
}

func TestTree_MkParentsThroughFile(t *testing.T) {
	tr := newTestTree()
	require.NoError(t, tr.MkRWFile("/f"))

	err := tr.MkParents("/f/sub")
	assert.Equal(t, ErrNotDirectory, CodeOf(err))
}

func TestTree_Writable(t *testing.T) {
	tr := newTestTree()
	require.NoError(t, tr.MkRWFile("/send"))
	require.NoError(t, tr.MkROFile("/receive"))

	w, err := tr.Writable("/send")
	require.NoError(t, err)
	assert.True(t, w)

	w, err = tr.Writable("/receive")
	require.NoError(t, err)
	assert.False(t, w)

	_, err = tr.Writable("/")
	assert.Equal(t, ErrIsDirectory, CodeOf(err))

	_, err = tr.Writable("/missing")
	assert.Equal(t, ErrNotFound, CodeOf(err))
}

func TestTree_DirEntriesErrors(t *testing.T) {
	tr := newTestTree()
	require.NoError(t, tr.MkRWFile("/f"))

	_, err := tr.DirEntries("/f")
	assert.Equal(t, ErrNotDirectory, CodeOf(err))

	_, err = tr.DirEntries("/missing")
	assert.Equal(t, ErrNotFound, CodeOf(err))
}
