package fs

import (
	"fmt"
)

// initDirCluster zero-fills cluster and places "." at slot 0 (-> self) and
// ".." at slot 1 (-> parent), per spec.md §3 invariant 6. Used both by
// Format's root bootstrap and by mkdir's per-component creation.
func (fsys *Filesystem) initDirCluster(cluster, self, parent uint32) error {
	b := make([]byte, fsys.sectorSize)
	refSize := dirRefSize(fsys.nameLength)
	copy(b[0*refSize:], encodeDirRef(dirRef{name: ".", ino: self}, fsys.nameLength))
	copy(b[1*refSize:], encodeDirRef(dirRef{name: "..", ino: parent}, fsys.nameLength))
	if err := fsys.dev.WriteAt(b, fsys.clusterByteOffset(cluster)); err != nil {
		return wrapDisk(ErrDiskWrite, "init directory cluster", err)
	}
	return nil
}

// readDirCluster reads every reference slot of cluster c, in slot order.
// Holes (name[0] == 0, left by removeDirEntry) are returned too, as refs with
// an empty name; callers skip them or, like addDirEntry, reuse their slot.
func (fsys *Filesystem) readDirCluster(cluster uint32) ([]dirRef, error) {
	refSize := dirRefSize(fsys.nameLength)
	n := fsys.dirRefsPerCluster()
	b := make([]byte, n*refSize)
	if err := fsys.dev.ReadAt(b, fsys.clusterByteOffset(cluster)); err != nil {
		return nil, wrapDisk(ErrDiskRead, "directory cluster", err)
	}
	refs := make([]dirRef, n)
	for i := range refs {
		refs[i] = decodeDirRef(b[i*refSize:(i+1)*refSize], fsys.nameLength)
	}
	return refs, nil
}

func (fsys *Filesystem) writeDirRefSlot(cluster uint32, slot int, ref dirRef) error {
	refSize := dirRefSize(fsys.nameLength)
	off := fsys.clusterByteOffset(cluster) + int64(slot*refSize)
	if err := fsys.dev.WriteAt(encodeDirRef(ref, fsys.nameLength), off); err != nil {
		return wrapDisk(ErrDiskWrite, "directory entry", err)
	}
	return nil
}

// lookupInDir scans the directory inode's cluster chain for name, returning
// its inode id and classification. Returns NotExists (no error) on miss.
func (fsys *Filesystem) lookupInDir(dirInode inode, name string) (uint32, EntryType, error) {
	chain, err := fsys.clusterChain(dirInode.firstCluster)
	if err != nil {
		return 0, NotExists, err
	}
	for _, cluster := range chain {
		refs, err := fsys.readDirCluster(cluster)
		if err != nil {
			return 0, NotExists, err
		}
		for _, r := range refs {
			if r.name == "" {
				continue
			}
			if r.name == name {
				target, err := fsys.readInode(r.ino)
				if err != nil {
					return 0, NotExists, err
				}
				return r.ino, classify(target), nil
			}
		}
	}
	return 0, NotExists, nil
}

func classify(n inode) EntryType {
	if n.typ == typeDir {
		return IsDir
	}
	return IsFile
}

// findNode resolves an absolute path, per spec.md §4.5's find_node:
// left-to-right segment walk, every non-final segment must be a directory,
// and the final segment's classification becomes the result.
func (fsys *Filesystem) findNode(path string) (uint32, EntryType, error) {
	segments, err := fsys.splitPath(path)
	if err != nil {
		return 0, NotExists, err
	}
	cur := fsys.sb.rootNode
	if len(segments) == 0 {
		return cur, IsDir, nil
	}
	for i, seg := range segments {
		curInode, err := fsys.readInode(cur)
		if err != nil {
			return 0, NotExists, err
		}
		if curInode.typ != typeDir {
			return 0, NotExists, ErrNotADirectory
		}
		id, typ, err := fsys.lookupInDir(curInode, seg)
		if err != nil {
			return 0, NotExists, err
		}
		if typ == NotExists {
			return 0, NotExists, nil
		}
		if i < len(segments)-1 && typ != IsDir {
			return 0, NotExists, ErrNotADirectory
		}
		cur = id
		if i == len(segments)-1 {
			return cur, typ, nil
		}
	}
	return cur, IsDir, nil
}

// addDirEntry adds ref into the directory whose inode id is dirID, scanning
// for an empty slot first and only allocating an overflow cluster when none
// is found, per spec.md §4.5.
func (fsys *Filesystem) addDirEntry(dirID uint32, ref dirRef) error {
	dirInode, err := fsys.readInode(dirID)
	if err != nil {
		return err
	}
	chain, err := fsys.clusterChain(dirInode.firstCluster)
	if err != nil {
		return err
	}

	for _, cluster := range chain {
		refs, err := fsys.readDirCluster(cluster)
		if err != nil {
			return err
		}
		for slot, r := range refs {
			if r.name == "" {
				return fsys.writeDirRefSlot(cluster, slot, ref)
			}
		}
	}

	// No empty slot: allocate an overflow cluster and link it in. The name
	// is already captured in the local `ref` value, so there is no risk of
	// the scratch-buffer reuse bug design note §9 calls out in
	// _fs_dir_add_entry's overflow path.
	lastCluster := chain[len(chain)-1]
	newCluster, err := fsys.findFreeCluster()
	if err != nil {
		return err
	}
	if err := fsys.writeCATEntry(lastCluster, catState{kind: catKindLink, link: newCluster}); err != nil {
		return err
	}
	if err := fsys.writeCATEntry(newCluster, catState{kind: catKindEOC}); err != nil {
		return err
	}
	zero := make([]byte, fsys.sectorSize)
	if err := fsys.dev.WriteAt(zero, fsys.clusterByteOffset(newCluster)); err != nil {
		return wrapDisk(ErrDiskWrite, "zero overflow directory cluster", err)
	}
	if err := fsys.writeDirRefSlot(newCluster, 0, ref); err != nil {
		return err
	}

	dirInode.size += uint32(fsys.sectorSize)
	return fsys.writeInode(dirID, dirInode)
}

// removeDirEntry zeroes the slot matching name (leaving a hole; no
// compaction, per spec.md §4.5) and returns the removed inode id.
func (fsys *Filesystem) removeDirEntry(dirID uint32, name string) (uint32, error) {
	dirInode, err := fsys.readInode(dirID)
	if err != nil {
		return 0, err
	}
	chain, err := fsys.clusterChain(dirInode.firstCluster)
	if err != nil {
		return 0, err
	}
	for _, cluster := range chain {
		refs, err := fsys.readDirCluster(cluster)
		if err != nil {
			return 0, err
		}
		for slot, r := range refs {
			if r.name == name {
				removed := r.ino
				if err := fsys.writeDirRefSlot(cluster, slot, dirRef{}); err != nil {
					return 0, err
				}
				return removed, nil
			}
		}
	}
	return 0, ErrNotExists
}

// ListEntry is one entry returned by List/EntryInfo.
type ListEntry struct {
	Name  string
	Inode uint32
	Type  EntryType
	Links uint16
	Mtime uint32
}

// List returns every non-hole reference in the directory at path, including
// "." and "..", per spec.md §8 scenario 1 (list("/") on a fresh root).
func (fsys *Filesystem) List(path string) ([]ListEntry, error) {
	id, typ, err := fsys.findNode(path)
	if err != nil {
		return nil, err
	}
	if typ == NotExists {
		return nil, ErrNotExists
	}
	if typ != IsDir {
		return nil, ErrNotADirectory
	}
	dirInode, err := fsys.readInode(id)
	if err != nil {
		return nil, err
	}
	chain, err := fsys.clusterChain(dirInode.firstCluster)
	if err != nil {
		return nil, err
	}
	var out []ListEntry
	for _, cluster := range chain {
		refs, err := fsys.readDirCluster(cluster)
		if err != nil {
			return nil, err
		}
		for _, r := range refs {
			if r.name == "" {
				continue
			}
			n, err := fsys.readInode(r.ino)
			if err != nil {
				return nil, err
			}
			out = append(out, ListEntry{Name: r.name, Inode: r.ino, Type: classify(n), Links: n.linksCount, Mtime: n.mtime})
		}
	}
	return out, nil
}

// EntriesCount returns the number of non-hole references at path.
func (fsys *Filesystem) EntriesCount(path string) (int, error) {
	entries, err := fsys.List(path)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// EntryInfo resolves path and returns its directory-entry-shaped info.
func (fsys *Filesystem) EntryInfo(path string) (ListEntry, error) {
	id, typ, err := fsys.findNode(path)
	if err != nil {
		return ListEntry{}, err
	}
	if typ == NotExists {
		return ListEntry{}, ErrNotExists
	}
	n, err := fsys.readInode(id)
	if err != nil {
		return ListEntry{}, err
	}
	name := "/"
	if segs, _ := fsys.splitPath(path); len(segs) > 0 {
		name = segs[len(segs)-1]
	}
	return ListEntry{Name: name, Inode: id, Type: classify(n), Links: n.linksCount, Mtime: n.mtime}, nil
}

// Size returns the recursive byte size reachable under inode id, per
// spec.md §4.8: files return their own size, directories sum every entry
// other than "." and "..". It uses its own local cluster buffer rather than
// the shared scratch buffer so recursion never aliases it (design note §9).
func (fsys *Filesystem) Size(id uint32) (uint64, error) {
	n, err := fsys.readInode(id)
	if err != nil {
		return 0, err
	}
	if n.typ == typeFile {
		return uint64(n.size), nil
	}
	chain, err := fsys.clusterChain(n.firstCluster)
	if err != nil {
		return 0, err
	}
	var total uint64
	for _, cluster := range chain {
		refs, err := fsys.readDirCluster(cluster)
		if err != nil {
			return 0, err
		}
		for _, r := range refs {
			if r.name == "" || r.name == "." || r.name == ".." {
				continue
			}
			sub, err := fsys.Size(r.ino)
			if err != nil {
				return 0, err
			}
			total += sub
		}
	}
	return total, nil
}

// Mkdir walks path component by component, creating any missing directory,
// per spec.md §4.5. Pre-existing components are traversed unchanged; a path
// whose prefix hits an existing file fails with ErrNotADirectory.
func (fsys *Filesystem) Mkdir(path string) error {
	segments, err := fsys.splitPath(path)
	if err != nil {
		return err
	}
	cur := fsys.sb.rootNode
	for _, seg := range segments {
		curInode, err := fsys.readInode(cur)
		if err != nil {
			return err
		}
		if curInode.typ != typeDir {
			return ErrNotADirectory
		}
		id, typ, err := fsys.lookupInDir(curInode, seg)
		if err != nil {
			return err
		}
		switch typ {
		case IsDir:
			cur = id
			continue
		case IsFile:
			return ErrNotADirectory
		}

		newID, err := fsys.createInode()
		if err != nil {
			return err
		}
		cluster, err := fsys.findFreeCluster()
		if err != nil {
			return err
		}
		if err := fsys.writeCATEntry(cluster, catState{kind: catKindEOC}); err != nil {
			return err
		}
		if err := fsys.initDirCluster(cluster, newID, cur); err != nil {
			return err
		}
		newDir := inode{
			flags:        flagInUse,
			typ:          typeDir,
			linksCount:   2,
			size:         uint32(fsys.sectorSize),
			firstCluster: cluster,
			mtime:        fsys.clock.Now(),
		}
		if err := fsys.writeInode(newID, newDir); err != nil {
			return err
		}
		if err := fsys.addDirEntry(cur, dirRef{name: seg, ino: newID}); err != nil {
			return err
		}
		// create-only increment (spec.md §9 open question 5): only the
		// branch that just created `seg` bumps the parent's links_count,
		// preserving invariant 5 (links_count = 2 + child subdirectories).
		if err := fsys.adjustLinks(cur, 1); err != nil {
			return err
		}
		fsys.log.WithField("path", joinPath(segments)).Debug("mkdir created component")
		cur = newID
	}
	return nil
}

func (fsys *Filesystem) adjustLinks(id uint32, delta int) error {
	n, err := fsys.readInode(id)
	if err != nil {
		return err
	}
	n.linksCount = uint16(int(n.linksCount) + delta)
	return fsys.writeInode(id, n)
}

// Link creates a hard link: newpath must not exist, its parent must resolve
// to a directory, and srcInode must be a regular file (spec.md §4.5).
func (fsys *Filesystem) Link(newpath string, srcInode uint32) error {
	segments, err := fsys.splitPath(newpath)
	if err != nil {
		return err
	}
	parentSegs, name, err := splitParentChild(segments)
	if err != nil {
		return err
	}
	parentID, parentTyp, err := fsys.findNode(joinPath(parentSegs))
	if err != nil {
		return err
	}
	if parentTyp != IsDir {
		return ErrNotADirectory
	}
	if _, typ, err := fsys.findNode(newpath); err != nil {
		return err
	} else if typ != NotExists {
		return ErrAlreadyExists
	}

	n, err := fsys.readInode(srcInode)
	if err != nil {
		return err
	}
	if n.typ != typeFile {
		return ErrNotAFile
	}
	n.linksCount++
	if err := fsys.writeInode(srcInode, n); err != nil {
		return err
	}
	return fsys.addDirEntry(parentID, dirRef{name: name, ino: srcInode})
}

// Remove implements spec.md §4.5's high-level remove(path): reject "/",
// ".", ".."; resolve the parent; remove the directory entry; then apply the
// appropriate cleanup (free a file whose links_count hits zero, or
// recursively remove a directory).
func (fsys *Filesystem) Remove(path string) error {
	segments, err := fsys.splitPath(path)
	if err != nil {
		return err
	}
	parentSegs, name, err := splitParentChild(segments)
	if err != nil {
		return err
	}
	parentID, parentTyp, err := fsys.findNode(joinPath(parentSegs))
	if err != nil {
		return err
	}
	if parentTyp != IsDir {
		return ErrNotADirectory
	}

	targetID, typ, err := fsys.findNode(path)
	if err != nil {
		return err
	}
	if typ == NotExists {
		return ErrNotExists
	}

	removedID, err := fsys.removeDirEntry(parentID, name)
	if err != nil {
		return err
	}
	if removedID != targetID {
		return fmt.Errorf("%w: directory entry %q did not match resolved inode", ErrCorrupt, name)
	}

	if typ == IsDir {
		if err := fsys.adjustLinks(parentID, -1); err != nil {
			return err
		}
		// the parent's own reference to targetID just vanished; account for
		// that link before descending (recursiveRemove's internal loop does
		// the same bookkeeping for each of *its* children).
		if err := fsys.adjustLinks(targetID, -1); err != nil {
			return err
		}
		return fsys.recursiveRemove(targetID)
	}

	n, err := fsys.readInode(targetID)
	if err != nil {
		return err
	}
	n.linksCount--
	if n.linksCount == 0 {
		return fsys.freeInode(targetID)
	}
	return fsys.writeInode(targetID, n)
}

// recursiveRemove implements spec.md §4.5's directory-deletion walk: for
// every entry other than "." and "..", decrement the child's links_count
// (recursing into subdirectories, freeing files that hit zero); finally free
// the subject's own clusters once its links_count has reached zero.
//
// A child subdirectory contributes two distinct links: one is the parent's
// own directory entry naming the child (removed by decrementing the child,
// same as for a file), the other is the child's own ".." entry pointing back
// at the parent (removed by decrementing dirID itself once the child is
// fully gone). Both must be accounted for or a removed subtree leaks.
//
// It deliberately does not touch the shared scratch buffer (it has none to
// touch -- every helper it calls does sub-sector I/O), matching design
// note §9's requirement that recursive remove use its own storage.
func (fsys *Filesystem) recursiveRemove(dirID uint32) error {
	dirInode, err := fsys.readInode(dirID)
	if err != nil {
		return err
	}

	chain, err := fsys.clusterChain(dirInode.firstCluster)
	if err != nil {
		return err
	}
	for _, cluster := range chain {
		refs, err := fsys.readDirCluster(cluster)
		if err != nil {
			return err
		}
		for _, r := range refs {
			if r.name == "" || r.name == "." || r.name == ".." {
				continue
			}
			child, err := fsys.readInode(r.ino)
			if err != nil {
				return err
			}
			child.linksCount--
			if child.typ == typeDir {
				if err := fsys.writeInode(r.ino, child); err != nil {
					return err
				}
				if err := fsys.recursiveRemove(r.ino); err != nil {
					return err
				}
				dirInode.linksCount-- // child's ".." reference is now gone
			} else {
				if child.linksCount == 0 {
					if err := fsys.freeInode(r.ino); err != nil {
						return err
					}
				} else {
					if err := fsys.writeInode(r.ino, child); err != nil {
						return err
					}
				}
			}
		}
	}

	// what remains is dirID's own "." self-reference; the link from its
	// parent's directory entry was already removed by the caller (Remove's
	// top-level decrement, or this same loop one level up) before
	// recursiveRemove was invoked.
	dirInode.linksCount--
	if dirInode.linksCount == 0 {
		return fsys.freeInode(dirID)
	}
	return fsys.writeInode(dirID, dirInode)
}
