package fs

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileWriteReadRoundTrip(t *testing.T) {
	fsys := newTestFilesystem(t, 16384, WithSectorSize(128))

	f, err := fsys.FileOpen("/data", FlagCreate)
	require.NoError(t, err)
	payload := bytes.Repeat([]byte("x"), 555)
	n, err := f.Write(payload)
	require.NoError(t, err)
	require.Equal(t, 555, n)
	require.NoError(t, f.Close())

	f, err = fsys.FileOpen("/data", 0)
	require.NoError(t, err)
	got := make([]byte, 555)
	read, err := f.Read(got)
	require.NoError(t, err)
	require.Equal(t, 555, read)
	require.True(t, bytes.Equal(payload, got))
	require.NoError(t, f.Close())
}

func TestFileOpenCreateTruncatesExisting(t *testing.T) {
	fsys := newTestFilesystem(t, 16384)

	f, err := fsys.FileOpen("/data", FlagCreate)
	require.NoError(t, err)
	_, err = f.Write([]byte("original contents"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = fsys.FileOpen("/data", FlagCreate)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = fsys.FileOpen("/data", 0)
	require.NoError(t, err)
	buf := make([]byte, 1)
	_, err = f.Read(buf)
	require.ErrorIs(t, err, ErrEOF, "truncated file should be empty")
	require.NoError(t, f.Close())
}

func TestFileOpenAppendSeeksToEnd(t *testing.T) {
	fsys := newTestFilesystem(t, 16384)

	f, err := fsys.FileOpen("/data", FlagCreate)
	require.NoError(t, err)
	_, err = f.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = fsys.FileOpen("/data", FlagAppend)
	require.NoError(t, err)
	_, err = f.Write([]byte(" world"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = fsys.FileOpen("/data", 0)
	require.NoError(t, err)
	got := make([]byte, 11)
	n, err := f.Read(got)
	require.NoError(t, err)
	require.Equal(t, 11, n)
	require.Equal(t, "hello world", string(got))
	require.NoError(t, f.Close())
}

func TestFileOpenMissingWithoutCreateFails(t *testing.T) {
	fsys := newTestFilesystem(t, 16384)
	_, err := fsys.FileOpen("/nope", 0)
	require.ErrorIs(t, err, ErrNotExists)
}

func TestFileOpenOnDirectoryFails(t *testing.T) {
	fsys := newTestFilesystem(t, 16384)
	require.NoError(t, fsys.Mkdir("/d"))
	_, err := fsys.FileOpen("/d", 0)
	require.ErrorIs(t, err, ErrNotAFile)
}

func TestFileSeekModes(t *testing.T) {
	fsys := newTestFilesystem(t, 16384, WithSectorSize(128))
	f, err := fsys.FileOpen("/data", FlagCreate)
	require.NoError(t, err)
	payload := bytes.Repeat([]byte("0123456789"), 40) // 400 bytes, spans clusters
	_, err = f.Write(payload)
	require.NoError(t, err)

	pos, err := f.Seek(SeekBegin, 10)
	require.NoError(t, err)
	require.Equal(t, uint32(10), pos)

	pos, err = f.Seek(SeekCurrent, 5)
	require.NoError(t, err)
	require.Equal(t, uint32(15), pos)

	// legacy End semantics: position = size - delta.
	pos, err = f.Seek(SeekEnd, 100)
	require.NoError(t, err)
	require.Equal(t, uint32(300), pos)

	buf := make([]byte, 4)
	n, err := f.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, payload[300:304], buf)

	require.NoError(t, f.Close())
}

func TestFileDiscardTruncatesAtPositionAcrossClusters(t *testing.T) {
	fsys := newTestFilesystem(t, 16384, WithSectorSize(128))
	f, err := fsys.FileOpen("/data", FlagCreate)
	require.NoError(t, err)
	payload := bytes.Repeat([]byte("a"), 300) // 3 clusters at 128 bytes/sector
	_, err = f.Write(payload)
	require.NoError(t, err)

	_, err = f.Seek(SeekBegin, 150)
	require.NoError(t, err)
	require.NoError(t, f.Discard())
	require.NoError(t, f.Close())

	n, err := fsys.readInode(f.inodeID)
	require.NoError(t, err)
	require.Equal(t, uint32(150), n.size)

	f, err = fsys.FileOpen("/data", 0)
	require.NoError(t, err)
	buf := make([]byte, 150)
	read, err := f.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 150, read)
	require.True(t, bytes.Equal(payload[:150], buf))
	require.NoError(t, f.Close())
}

func TestFileReadPastEndReturnsEOF(t *testing.T) {
	fsys := newTestFilesystem(t, 16384)
	f, err := fsys.FileOpen("/data", FlagCreate)
	require.NoError(t, err)
	_, err = f.Write([]byte("abc"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = fsys.FileOpen("/data", 0)
	require.NoError(t, err)
	buf := make([]byte, 3)
	_, err = f.Read(buf)
	require.NoError(t, err)
	_, err = f.Read(buf)
	require.ErrorIs(t, err, ErrEOF)
	require.NoError(t, f.Close())
}

func TestFileOperationsAfterCloseFail(t *testing.T) {
	fsys := newTestFilesystem(t, 16384)
	f, err := fsys.FileOpen("/data", FlagCreate)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = f.Write([]byte("x"))
	require.ErrorIs(t, err, ErrFileClosed)
	_, err = f.Read(make([]byte, 1))
	require.ErrorIs(t, err, ErrFileClosed)
	err = f.Close()
	require.ErrorIs(t, err, ErrFileClosed)
}
