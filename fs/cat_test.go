package fs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/catfs/catfs/device/memory"
)

func newTestFilesystem(t *testing.T, imageSize int64, opts ...Option) *Filesystem {
	t.Helper()
	dev := memory.New(imageSize)
	fsys, err := Format(dev, imageSize, opts...)
	require.NoError(t, err, "formatting test image failed")
	return fsys
}

func TestCATEncodeDecodeRoundTrip(t *testing.T) {
	cases := []catState{
		{kind: catKindFree},
		{kind: catKindEOC},
		{kind: catKindLink, link: 42},
		{kind: catKindInodeCluster, population: 7},
		{kind: catKindInodeCluster, population: 0},
		{kind: catKindInodeCluster, population: maxInodesPerCluster},
	}
	for _, want := range cases {
		got := decodeCATEntry(want.encode())
		require.Equal(t, want, got)
	}
}

func TestFindFreeClusterFirstFit(t *testing.T) {
	fsys := newTestFilesystem(t, 4096)
	c, err := fsys.findFreeCluster()
	require.NoError(t, err)
	require.Equal(t, uint32(2), c, "clusters 0 and 1 are claimed by the root inode cluster and root directory cluster")
}

func TestFindFreeClusterExhausted(t *testing.T) {
	fsys := newTestFilesystem(t, 4096)
	for {
		c, err := fsys.findFreeCluster()
		if err != nil {
			require.ErrorIs(t, err, ErrFull)
			return
		}
		require.NoError(t, fsys.writeCATEntry(c, catState{kind: catKindEOC}))
	}
}

func TestWalkChainDetectsCycle(t *testing.T) {
	fsys := newTestFilesystem(t, 4096)
	require.NoError(t, fsys.writeCATEntry(1, catState{kind: catKindLink, link: 2}))
	require.NoError(t, fsys.writeCATEntry(2, catState{kind: catKindLink, link: 1}))

	err := fsys.walkChain(1, func(uint32) error { return nil })
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrCorrupt))
}

func TestWalkChainRejectsBadTagMidChain(t *testing.T) {
	fsys := newTestFilesystem(t, 4096)
	require.NoError(t, fsys.writeCATEntry(1, catState{kind: catKindFree}))

	err := fsys.walkChain(1, func(uint32) error { return nil })
	require.True(t, errors.Is(err, ErrCorrupt))
}

func TestFreeChainMarksEveryClusterFree(t *testing.T) {
	fsys := newTestFilesystem(t, 4096)
	require.NoError(t, fsys.writeCATEntry(1, catState{kind: catKindLink, link: 2}))
	require.NoError(t, fsys.writeCATEntry(2, catState{kind: catKindEOC}))

	require.NoError(t, fsys.freeChain(1))

	for _, c := range []uint32{1, 2} {
		st, err := fsys.readCATEntry(c)
		require.NoError(t, err)
		require.Equal(t, catKindFree, st.kind)
	}
}
