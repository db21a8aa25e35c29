package fs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/catfs/catfs/device/memory"
)

func TestFormatFreshImageStats(t *testing.T) {
	dev := memory.New(16384)
	fsys, err := Format(dev, 16384, WithSectorSize(128), WithNameLength(27))
	require.NoError(t, err)

	info, err := fsys.Info()
	require.NoError(t, err)
	require.Equal(t, uint32(128), info.Sectors)
	require.Equal(t, uint32(1), info.InodeClusters, "only the root directory's inode cluster is in use")
	require.Equal(t, uint32(1), info.DataClusters, "only the root directory's first data cluster is in use")
	require.Equal(t, uint32(1), info.Inodes)
	require.Equal(t, uint64(0), info.FilesSize)
}

func TestOpenReadsBackSuperblockWrittenByFormat(t *testing.T) {
	dev := memory.New(16384)
	_, err := Format(dev, 16384, WithSectorSize(128), WithNameLength(27))
	require.NoError(t, err)

	fsys, err := Open(dev, WithSectorSize(128), WithNameLength(27))
	require.NoError(t, err)

	_, typ, err := fsys.findNode("/")
	require.NoError(t, err)
	require.Equal(t, IsDir, typ)
}

func TestFormatRejectsUnalignedSectorSize(t *testing.T) {
	dev := memory.New(4096)
	_, err := Format(dev, 4096, WithSectorSize(100))
	require.Error(t, err)
}

func TestFormatWithFixedClockStampsMtimes(t *testing.T) {
	dev := memory.New(16384)
	fsys, err := Format(dev, 16384, WithClock(FixedClock(12345)))
	require.NoError(t, err)

	root, err := fsys.readInode(fsys.sb.rootNode)
	require.NoError(t, err)
	require.Equal(t, uint32(12345), root.mtime)
}

func TestInfoAccountsForFilesAndDirectories(t *testing.T) {
	fsys := newTestFilesystem(t, 16384, WithSectorSize(128))
	require.NoError(t, fsys.Mkdir("/dir"))
	f, err := fsys.FileOpen("/dir/file", FlagCreate)
	require.NoError(t, err)
	_, err = f.Write([]byte("hello world"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	info, err := fsys.Info()
	require.NoError(t, err)
	require.Equal(t, uint64(11), info.FilesSize)
	require.True(t, info.DirStructureSize > 0)
}
