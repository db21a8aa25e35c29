package fs

import "fmt"

// inodeOffset computes the byte offset of inode id's slot inside its
// cluster, landing exactly on the inodeSize-byte slot per spec.md §4.4.
func (fsys *Filesystem) inodeOffset(id uint32) int64 {
	cluster, slot := splitInodeID(id)
	return fsys.clusterByteOffset(cluster) + int64(slot)*inodeSize
}

// clusterByteOffset computes the byte offset of cluster c's first byte.
func (fsys *Filesystem) clusterByteOffset(cluster uint32) int64 {
	return int64(fsys.sb.clustersStart)*int64(fsys.sectorSize) + int64(cluster)*int64(fsys.sectorSize)
}

// readInode reads the sizeof(inode) bytes at id's slot.
func (fsys *Filesystem) readInode(id uint32) (inode, error) {
	b := make([]byte, inodeSize)
	if err := fsys.dev.ReadAt(b, fsys.inodeOffset(id)); err != nil {
		return inode{}, wrapDisk(ErrDiskRead, "inode", err)
	}
	return decodeInode(b), nil
}

// writeInode writes only the inode's own slot, not the whole cluster.
func (fsys *Filesystem) writeInode(id uint32, n inode) error {
	if err := fsys.dev.WriteAt(n.encode(), fsys.inodeOffset(id)); err != nil {
		return wrapDisk(ErrDiskWrite, "inode", err)
	}
	return nil
}

// readInodeCluster reads every inode slot of cluster c, used by Info()'s
// aggregate scan and by allocateInodeInCluster's free-slot search.
func (fsys *Filesystem) readInodeCluster(cluster uint32) ([]inode, error) {
	n := fsys.inodesPerCluster()
	b := make([]byte, n*inodeSize)
	if err := fsys.dev.ReadAt(b, fsys.clusterByteOffset(cluster)); err != nil {
		return nil, wrapDisk(ErrDiskRead, "inode cluster", err)
	}
	nodes := make([]inode, n)
	for i := range nodes {
		nodes[i] = decodeInode(b[i*inodeSize : (i+1)*inodeSize])
	}
	return nodes, nil
}

// createInode implements spec.md §4.4's two-pass-over-one-scan allocation:
// remember the first free cluster seen; prefer a non-full inode cluster;
// fall back to converting the remembered free cluster into a new inode
// cluster.
func (fsys *Filesystem) createInode() (uint32, error) {
	var freeCluster uint32
	haveFree := false

	for c := uint32(0); c < fsys.sb.clustersCount; c++ {
		st, err := fsys.readCATEntry(c)
		if err != nil {
			return 0, err
		}
		switch st.kind {
		case catKindFree:
			if !haveFree {
				freeCluster = c
				haveFree = true
			}
		case catKindInodeCluster:
			if int(st.population) < fsys.inodesPerCluster() {
				return fsys.allocateInodeInCluster(c, st)
			}
		}
	}

	if !haveFree {
		return 0, ErrFull
	}
	return fsys.allocateFirstInodeInNewCluster(freeCluster)
}

// allocateInodeInCluster picks the first free slot in an existing,
// not-yet-full inode cluster.
func (fsys *Filesystem) allocateInodeInCluster(cluster uint32, st catState) (uint32, error) {
	nodes, err := fsys.readInodeCluster(cluster)
	if err != nil {
		return 0, err
	}
	slot := -1
	for i, n := range nodes {
		if !n.inUse() {
			slot = i
			break
		}
	}
	if slot < 0 {
		return 0, fmt.Errorf("%w: inode cluster %d reports room but has none", ErrCorrupt, cluster)
	}

	st.population++
	if err := fsys.writeCATEntry(cluster, st); err != nil {
		return 0, err
	}
	id := inodeID(cluster, uint8(slot))
	if err := fsys.writeInode(id, inode{flags: flagInUse}); err != nil {
		return 0, err
	}
	fsys.log.WithField("inode", id).Debug("allocated inode in existing cluster")
	return id, nil
}

// allocateFirstInodeInNewCluster converts a free cluster into a
// population-1 inode cluster and returns slot 0.
func (fsys *Filesystem) allocateFirstInodeInNewCluster(cluster uint32) (uint32, error) {
	if err := fsys.writeCATEntry(cluster, catState{kind: catKindInodeCluster, population: 1}); err != nil {
		return 0, err
	}
	zero := make([]byte, fsys.sectorSize)
	if err := fsys.dev.WriteAt(zero, fsys.clusterByteOffset(cluster)); err != nil {
		return 0, wrapDisk(ErrDiskWrite, "zero new inode cluster", err)
	}
	id := inodeID(cluster, 0)
	if err := fsys.writeInode(id, inode{flags: flagInUse}); err != nil {
		return 0, err
	}
	fsys.log.WithField("inode", id).Debug("allocated inode in new cluster")
	return id, nil
}

// freeInode walks the inode's data chain to free, then clears its slot and
// decrements (or clears entirely) the hosting cluster's population counter,
// per spec.md §4.4.
func (fsys *Filesystem) freeInode(id uint32) error {
	n, err := fsys.readInode(id)
	if err != nil {
		return err
	}
	if n.inUse() && n.firstCluster != 0 {
		if err := fsys.freeChain(n.firstCluster); err != nil {
			return err
		}
	}
	if err := fsys.writeInode(id, inode{}); err != nil {
		return err
	}

	cluster, _ := splitInodeID(id)
	st, err := fsys.readCATEntry(cluster)
	if err != nil {
		return err
	}
	if st.kind != catKindInodeCluster {
		return fmt.Errorf("%w: inode %d's cluster %d is not tagged as an inode cluster", ErrCorrupt, id, cluster)
	}
	st.population--
	if st.population == 0 {
		st = catState{kind: catKindFree}
		fsys.log.WithField("cluster", cluster).Debug("reclaiming emptied inode cluster")
	}
	if err := fsys.writeCATEntry(cluster, st); err != nil {
		return err
	}
	fsys.log.WithField("inode", id).Debug("freed inode")
	return nil
}
