package fs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListRootOnFreshFormat(t *testing.T) {
	fsys := newTestFilesystem(t, 16384, WithSectorSize(128), WithNameLength(27))

	entries, err := fsys.List("/")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	names := map[string]bool{}
	for _, e := range entries {
		names[e.Name] = true
	}
	require.True(t, names["."])
	require.True(t, names[".."])

	root, err := fsys.readInode(fsys.sb.rootNode)
	require.NoError(t, err)
	require.Equal(t, uint16(2), root.linksCount)
}

func TestMkdirNestedLinkCounts(t *testing.T) {
	fsys := newTestFilesystem(t, 16384, WithSectorSize(128), WithNameLength(27))

	require.NoError(t, fsys.Mkdir("/a"))
	require.NoError(t, fsys.Mkdir("/a/b/c/d"))

	root, err := fsys.readInode(fsys.sb.rootNode)
	require.NoError(t, err)
	require.Equal(t, uint16(3), root.linksCount, "root gains one link for /a")

	aID, typ, err := fsys.findNode("/a")
	require.NoError(t, err)
	require.Equal(t, IsDir, typ)
	a, err := fsys.readInode(aID)
	require.NoError(t, err)
	require.Equal(t, uint16(3), a.linksCount, "/a gains one link for /a/b")
}

func TestMkdirIsIdempotentOnExistingPrefix(t *testing.T) {
	fsys := newTestFilesystem(t, 16384)
	require.NoError(t, fsys.Mkdir("/a/b"))
	require.NoError(t, fsys.Mkdir("/a/b"))

	root, err := fsys.readInode(fsys.sb.rootNode)
	require.NoError(t, err)
	require.Equal(t, uint16(3), root.linksCount)
}

func TestMkdirThroughFileFails(t *testing.T) {
	fsys := newTestFilesystem(t, 16384)
	f, err := fsys.createFile("/a")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	err = fsys.Mkdir("/a/b")
	require.ErrorIs(t, err, ErrNotADirectory)
}

func TestLinkAndRemoveHardLink(t *testing.T) {
	fsys := newTestFilesystem(t, 16384)
	f, err := fsys.createFile("/a")
	require.NoError(t, err)
	_, err = f.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, fsys.Link("/b", f.Inode()))

	n, err := fsys.readInode(f.Inode())
	require.NoError(t, err)
	require.Equal(t, uint16(2), n.linksCount)

	require.NoError(t, fsys.Remove("/a"))

	n, err = fsys.readInode(f.Inode())
	require.NoError(t, err)
	require.Equal(t, uint16(1), n.linksCount, "removing one of two links keeps the inode alive")

	require.NoError(t, fsys.Remove("/b"))
	n, err = fsys.readInode(f.Inode())
	require.NoError(t, err)
	require.False(t, n.inUse(), "removing the last link frees the inode")
}

func TestLinkRejectsExistingTarget(t *testing.T) {
	fsys := newTestFilesystem(t, 16384)
	f, err := fsys.createFile("/a")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, fsys.Mkdir("/b"))

	err = fsys.Link("/b", f.Inode())
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestRecursiveRemove(t *testing.T) {
	fsys := newTestFilesystem(t, 16384)
	require.NoError(t, fsys.Mkdir("/a/b/c"))
	f, err := fsys.createFile("/a/b/leaf")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, fsys.Remove("/a"))

	_, typ, err := fsys.findNode("/a")
	require.NoError(t, err)
	require.Equal(t, NotExists, typ)

	root, err := fsys.readInode(fsys.sb.rootNode)
	require.NoError(t, err)
	require.Equal(t, uint16(2), root.linksCount, "root returns to its base count once /a is gone")
}

func TestRecursiveRemoveFreesEveryNestedDirectory(t *testing.T) {
	fsys := newTestFilesystem(t, 16384)
	require.NoError(t, fsys.Mkdir("/a/b/c"))

	aID, _, err := fsys.findNode("/a")
	require.NoError(t, err)
	bID, _, err := fsys.findNode("/a/b")
	require.NoError(t, err)
	cID, _, err := fsys.findNode("/a/b/c")
	require.NoError(t, err)

	require.NoError(t, fsys.Remove("/a"))

	for _, id := range []uint32{aID, bID, cID} {
		n, err := fsys.readInode(id)
		require.NoError(t, err)
		require.False(t, n.inUse(), "inode %d should have been freed", id)
	}
}

func TestRemoveRejectsRoot(t *testing.T) {
	fsys := newTestFilesystem(t, 16384)
	err := fsys.Remove("/")
	require.ErrorIs(t, err, ErrWrongPath)
}

func TestSizeIsRecursive(t *testing.T) {
	fsys := newTestFilesystem(t, 16384)
	require.NoError(t, fsys.Mkdir("/dir"))
	f, err := fsys.createFile("/dir/a")
	require.NoError(t, err)
	_, err = f.Write([]byte("12345"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	g, err := fsys.createFile("/dir/b")
	require.NoError(t, err)
	_, err = g.Write([]byte("123"))
	require.NoError(t, err)
	require.NoError(t, g.Close())

	id, _, err := fsys.findNode("/dir")
	require.NoError(t, err)
	size, err := fsys.Size(id)
	require.NoError(t, err)
	require.Equal(t, uint64(8), size)
}
