package fs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateInodePacksIntoExistingClusterBeforeConverting(t *testing.T) {
	fsys := newTestFilesystem(t, 4096)

	// cluster 0 already hosts the root inode with one slot (population 1);
	// sector size 128 / inodeSize 16 = 8 slots per cluster, so the next 7
	// createInode calls must reuse cluster 0 rather than allocate cluster 2.
	for i := 0; i < 7; i++ {
		id, err := fsys.createInode()
		require.NoError(t, err)
		cluster, _ := splitInodeID(id)
		require.Equal(t, uint32(0), cluster, "call %d should pack into the root's inode cluster", i)
	}

	st, err := fsys.readCATEntry(0)
	require.NoError(t, err)
	require.Equal(t, catKindInodeCluster, st.kind)
	require.Equal(t, uint8(8), st.population)

	// the cluster is now full; the next allocation must convert a fresh
	// cluster rather than overflow slot 8.
	id, err := fsys.createInode()
	require.NoError(t, err)
	cluster, slot := splitInodeID(id)
	require.NotEqual(t, uint32(0), cluster)
	require.Equal(t, uint8(0), slot)
}

func TestFreeInodeDecrementsPopulationAndFreesChain(t *testing.T) {
	fsys := newTestFilesystem(t, 4096)
	id, err := fsys.createInode()
	require.NoError(t, err)

	data, err := fsys.findFreeCluster()
	require.NoError(t, err)
	require.NoError(t, fsys.writeCATEntry(data, catState{kind: catKindEOC}))
	n := inode{flags: flagInUse, typ: typeFile, linksCount: 1, firstCluster: data}
	require.NoError(t, fsys.writeInode(id, n))

	require.NoError(t, fsys.freeInode(id))

	got, err := fsys.readInode(id)
	require.NoError(t, err)
	require.False(t, got.inUse())

	st, err := fsys.readCATEntry(data)
	require.NoError(t, err)
	require.Equal(t, catKindFree, st.kind)

	cluster, _ := splitInodeID(id)
	catSt, err := fsys.readCATEntry(cluster)
	require.NoError(t, err)
	require.Equal(t, catKindInodeCluster, catSt.kind)
	require.Equal(t, uint8(1), catSt.population, "root's own slot keeps the cluster's population at 1")
}

func TestFreeInodeReclaimsEmptiedCluster(t *testing.T) {
	fsys := newTestFilesystem(t, 4096)

	// allocate a second inode cluster of our own, isolated from the root's,
	// by draining cluster 0 full first (8 slots at sector size 128).
	var ids []uint32
	for i := 0; i < 7; i++ {
		id, err := fsys.createInode()
		require.NoError(t, err)
		ids = append(ids, id)
	}
	id, err := fsys.createInode()
	require.NoError(t, err)
	cluster, slot := splitInodeID(id)
	require.NotEqual(t, uint32(0), cluster)
	require.Equal(t, uint8(0), slot)

	require.NoError(t, fsys.freeInode(id))

	st, err := fsys.readCATEntry(cluster)
	require.NoError(t, err)
	require.Equal(t, catKindFree, st.kind, "the sole inode in this cluster was freed, so the cluster must be reclaimed")

	for _, other := range ids {
		require.NoError(t, fsys.freeInode(other))
	}
}

func TestInodeIDPacking(t *testing.T) {
	id := inodeID(5, 3)
	cluster, slot := splitInodeID(id)
	require.Equal(t, uint32(5), cluster)
	require.Equal(t, uint8(3), slot)
}
