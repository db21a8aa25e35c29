package fs

import (
	"encoding/binary"
	"fmt"
)

// catState is the tagged-union rendering of a CAT entry that design note §9
// recommends: a sum type in RAM, with a pure encode/decode to the on-disk
// uint32. The numeric ranges (spec.md §3) remain the on-disk source of truth.
type catState struct {
	kind catKind
	// link is the next cluster index, valid when kind == catLink.
	link uint32
	// population is the in-use inode count, valid when kind == catInodeCluster.
	population uint8
}

type catKind int

const (
	catKindFree catKind = iota
	catKindEOC
	catKindLink
	catKindInodeCluster
)

func decodeCATEntry(v uint32) catState {
	switch {
	case v == catFree:
		return catState{kind: catKindFree}
	case v == catEOC:
		return catState{kind: catKindEOC}
	case v >= catInodeBase && v < catEOC:
		return catState{kind: catKindInodeCluster, population: uint8(v - catInodeBase)}
	default:
		return catState{kind: catKindLink, link: v}
	}
}

func (s catState) encode() uint32 {
	switch s.kind {
	case catKindFree:
		return catFree
	case catKindEOC:
		return catEOC
	case catKindInodeCluster:
		return catInodeBase + uint32(s.population)
	case catKindLink:
		return s.link
	default:
		panic("catfs: unknown cat state kind")
	}
}

// maxInodesPerCluster bounds the inode-cluster population tag (spec.md §3):
// population is encoded as catInodeBase+population, and catInodeBase+253 is
// the last value below catEOC, so 253 is the largest population a cluster's
// tag can distinguish from end-of-chain/invalid.
const maxInodesPerCluster = 253

// catEntryOffset computes the byte offset of cluster c's CAT entry.
func (fsys *Filesystem) catEntryOffset(cluster uint32) int64 {
	return int64(fsys.sb.tableStart)*int64(fsys.sectorSize) + int64(cluster)*catEntrySize
}

// readCATEntry performs the sub-sector 4-byte read spec.md §4.3 calls for,
// rather than pulling a whole sector through the scratch buffer.
func (fsys *Filesystem) readCATEntry(cluster uint32) (catState, error) {
	if cluster >= fsys.sb.clustersCount {
		return catState{}, fmt.Errorf("%w: cluster %d out of range", ErrCorrupt, cluster)
	}
	var b [catEntrySize]byte
	if err := fsys.dev.ReadAt(b[:], fsys.catEntryOffset(cluster)); err != nil {
		return catState{}, wrapDisk(ErrDiskRead, "cat entry", err)
	}
	return decodeCATEntry(binary.LittleEndian.Uint32(b[:])), nil
}

// writeCATEntry performs the sub-sector 4-byte write.
func (fsys *Filesystem) writeCATEntry(cluster uint32, s catState) error {
	if cluster >= fsys.sb.clustersCount {
		return fmt.Errorf("%w: cluster %d out of range", ErrCorrupt, cluster)
	}
	var b [catEntrySize]byte
	binary.LittleEndian.PutUint32(b[:], s.encode())
	if err := fsys.dev.WriteAt(b[:], fsys.catEntryOffset(cluster)); err != nil {
		return wrapDisk(ErrDiskWrite, "cat entry", err)
	}
	return nil
}

// findFreeCluster performs the linear first-fit scan of spec.md §4.3. It
// reads CAT entries one at a time; readCATEntry is already sub-sector, so
// there is no separate "cached CAT sector" structure to maintain here (the
// reference's optimization collapses into "don't re-read a whole sector for
// four bytes" once sub-sector I/O is used, per design note §9).
func (fsys *Filesystem) findFreeCluster() (uint32, error) {
	for c := uint32(0); c < fsys.sb.clustersCount; c++ {
		st, err := fsys.readCATEntry(c)
		if err != nil {
			return 0, err
		}
		if st.kind == catKindFree {
			return c, nil
		}
	}
	return 0, ErrFull
}

// walkChain calls visit(cluster) for every cluster in the chain starting at
// first, in order, stopping at end-of-chain. It fails with ErrCorrupt if the
// chain revisits a cluster (cycle) or lands on a free/inode-cluster tag
// mid-chain, per spec.md §4.3's corruption note -- this implementation picks
// the dedicated-error-variant option the spec leaves open, rather than the
// reference's silent-follow behavior.
func (fsys *Filesystem) walkChain(first uint32, visit func(cluster uint32) error) error {
	seen := make(map[uint32]bool)
	cluster := first
	for {
		if seen[cluster] {
			return fmt.Errorf("%w: cycle at cluster %d", ErrCorrupt, cluster)
		}
		seen[cluster] = true
		if err := visit(cluster); err != nil {
			return err
		}
		st, err := fsys.readCATEntry(cluster)
		if err != nil {
			return err
		}
		switch st.kind {
		case catKindEOC:
			return nil
		case catKindLink:
			cluster = st.link
		default:
			return fmt.Errorf("%w: unexpected cat tag mid-chain at cluster %d", ErrCorrupt, cluster)
		}
	}
}

// clusterChain collects the full chain starting at first, in order.
func (fsys *Filesystem) clusterChain(first uint32) ([]uint32, error) {
	var chain []uint32
	err := fsys.walkChain(first, func(c uint32) error {
		chain = append(chain, c)
		return nil
	})
	return chain, err
}

// freeChain rewrites every cluster in the chain starting at first to free,
// used by freeInode and File.Discard. The whole chain is collected before any
// entry is rewritten, since freeing a cluster erases its link to the next.
func (fsys *Filesystem) freeChain(first uint32) error {
	chain, err := fsys.clusterChain(first)
	if err != nil {
		return err
	}
	for _, c := range chain {
		if err := fsys.writeCATEntry(c, catState{kind: catKindFree}); err != nil {
			return err
		}
	}
	return nil
}
