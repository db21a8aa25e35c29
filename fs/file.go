package fs

// File is an open file handle: {inode_id, pos, size, first_cluster,
// cur_cluster, cur_cluster_off, is_open} per spec.md §4.6, the Go rendering
// of fat32.File generalized from FAT32 cluster chains to this format's CAT.
type File struct {
	fsys         *Filesystem
	inodeID      uint32
	pos          uint32
	size         uint32
	firstCluster uint32
	curCluster   uint32
	curOff       int
	isOpen       bool
}

// FileOpen implements spec.md §4.6's Open(path, flags).
func (fsys *Filesystem) FileOpen(path string, flags uint8) (*File, error) {
	id, typ, err := fsys.findNode(path)
	if err != nil {
		return nil, err
	}
	if typ == IsDir {
		return nil, ErrNotAFile
	}

	create := flags&FlagCreate != 0
	appendMode := flags&FlagAppend != 0

	if typ == NotExists {
		if !create {
			return nil, ErrNotExists
		}
		return fsys.createFile(path)
	}

	n, err := fsys.readInode(id)
	if err != nil {
		return nil, err
	}
	if create {
		if err := fsys.truncateInode(id, &n); err != nil {
			return nil, err
		}
	}
	f := &File{fsys: fsys, inodeID: id, size: n.size, firstCluster: n.firstCluster, curCluster: n.firstCluster, isOpen: true}
	if appendMode {
		if _, err := f.Seek(SeekEnd, 0); err != nil {
			return nil, err
		}
	}
	fsys.log.WithField("path", path).Debug("opened file")
	return f, nil
}

func (fsys *Filesystem) createFile(path string) (*File, error) {
	segments, err := fsys.splitPath(path)
	if err != nil {
		return nil, err
	}
	parentSegs, name, err := splitParentChild(segments)
	if err != nil {
		return nil, err
	}
	parentID, parentTyp, err := fsys.findNode(joinPath(parentSegs))
	if err != nil {
		return nil, err
	}
	if parentTyp != IsDir {
		return nil, ErrNotADirectory
	}

	id, err := fsys.createInode()
	if err != nil {
		return nil, err
	}
	cluster, err := fsys.findFreeCluster()
	if err != nil {
		return nil, err
	}
	if err := fsys.writeCATEntry(cluster, catState{kind: catKindEOC}); err != nil {
		return nil, err
	}
	n := inode{flags: flagInUse, typ: typeFile, linksCount: 1, firstCluster: cluster, mtime: fsys.clock.Now()}
	if err := fsys.writeInode(id, n); err != nil {
		return nil, err
	}
	if err := fsys.addDirEntry(parentID, dirRef{name: name, ino: id}); err != nil {
		return nil, err
	}
	return &File{fsys: fsys, inodeID: id, firstCluster: cluster, curCluster: cluster, isOpen: true}, nil
}

// truncateInode frees every cluster after the first, resets the first to
// end-of-chain, and zeroes size -- spec.md §4.6's CREATE-on-existing path.
func (fsys *Filesystem) truncateInode(id uint32, n *inode) error {
	chain, err := fsys.clusterChain(n.firstCluster)
	if err != nil {
		return err
	}
	for _, c := range chain[1:] {
		if err := fsys.writeCATEntry(c, catState{kind: catKindFree}); err != nil {
			return err
		}
	}
	if err := fsys.writeCATEntry(n.firstCluster, catState{kind: catKindEOC}); err != nil {
		return err
	}
	n.size = 0
	n.mtime = fsys.clock.Now()
	return fsys.writeInode(id, *n)
}

func (fsys *Filesystem) clusterDataOffset(cluster uint32) int64 {
	return fsys.clusterByteOffset(cluster)
}

// Write implements spec.md §4.6's Write(buf, n): a loop that fills the
// current cluster from the current offset, allocating (or following) the
// next cluster in the chain when the current one is exhausted.
func (f *File) Write(buf []byte) (int, error) {
	if !f.isOpen {
		return 0, ErrFileClosed
	}
	fsys := f.fsys
	written := 0
	n := len(buf)
	for n > 0 {
		room := fsys.sectorSize - f.curOff
		toWrite := room
		if toWrite > n {
			toWrite = n
		}
		off := fsys.clusterDataOffset(f.curCluster) + int64(f.curOff)
		if err := fsys.dev.WriteAt(buf[written:written+toWrite], off); err != nil {
			return written, wrapDisk(ErrDiskWrite, "file data", err)
		}
		written += toWrite
		f.pos += uint32(toWrite)
		f.curOff += toWrite
		n -= toWrite

		if n > 0 {
			st, err := fsys.readCATEntry(f.curCluster)
			if err != nil {
				return written, err
			}
			if st.kind == catKindEOC {
				next, err := fsys.findFreeCluster()
				if err != nil {
					return written, err
				}
				if err := fsys.writeCATEntry(next, catState{kind: catKindEOC}); err != nil {
					return written, err
				}
				if err := fsys.writeCATEntry(f.curCluster, catState{kind: catKindLink, link: next}); err != nil {
					return written, err
				}
				f.curCluster = next
			} else if st.kind == catKindLink {
				f.curCluster = st.link
			} else {
				return written, ErrCorrupt
			}
			f.curOff = 0
		}
	}
	if f.pos > f.size {
		f.size = f.pos
	}
	return written, nil
}

// Read implements spec.md §4.6's Read(buf, n): clamps to the remaining file
// size and walks the chain symmetrically to Write.
func (f *File) Read(buf []byte) (int, error) {
	if !f.isOpen {
		return 0, ErrFileClosed
	}
	if f.pos >= f.size {
		return 0, ErrEOF
	}
	fsys := f.fsys
	remaining := int(f.size - f.pos)
	want := len(buf)
	if want > remaining {
		want = remaining
	}

	read := 0
	for read < want {
		room := fsys.sectorSize - f.curOff
		toRead := room
		if toRead > want-read {
			toRead = want - read
		}
		off := fsys.clusterDataOffset(f.curCluster) + int64(f.curOff)
		if err := fsys.dev.ReadAt(buf[read:read+toRead], off); err != nil {
			return read, wrapDisk(ErrDiskRead, "file data", err)
		}
		read += toRead
		f.pos += uint32(toRead)
		f.curOff += toRead

		if read < want {
			st, err := fsys.readCATEntry(f.curCluster)
			if err != nil {
				return read, err
			}
			switch st.kind {
			case catKindEOC:
				// truncation race or corruption: spec.md §4.6 says to
				// surface Eof rather than Corrupt here.
				return read, ErrEOF
			case catKindLink:
				f.curCluster = st.link
			default:
				return read, ErrCorrupt
			}
			f.curOff = 0
		}
	}
	return read, nil
}

// Seek implements spec.md §4.6's Seek(mode, delta). End-mode treats delta as
// a subtraction from size, the legacy quirk spec.md §9 open question 1
// documents and this implementation deliberately keeps.
func (f *File) Seek(mode SeekMode, delta int32) (uint32, error) {
	if !f.isOpen {
		return 0, ErrFileClosed
	}
	var target int64
	switch mode {
	case SeekBegin:
		target = int64(delta)
	case SeekCurrent:
		target = int64(f.pos) + int64(delta)
	case SeekEnd:
		target = int64(f.size) - int64(delta)
	default:
		return 0, ErrWrongPath
	}
	if target < 0 || target > int64(f.size) {
		return 0, ErrEOF
	}

	fsys := f.fsys
	hops := target / int64(fsys.sectorSize)
	cluster := f.firstCluster
	for i := int64(0); i < hops; i++ {
		st, err := fsys.readCATEntry(cluster)
		if err != nil {
			return 0, err
		}
		switch st.kind {
		case catKindLink:
			cluster = st.link
		case catKindEOC:
			if i == hops-1 && target == int64(f.size) && target%int64(fsys.sectorSize) == 0 {
				// end of a file that exactly fills its last cluster: stay on
				// that cluster, positioned just past its last byte.
				f.pos = uint32(target)
				f.curCluster = cluster
				f.curOff = fsys.sectorSize
				return f.pos, nil
			}
			return 0, ErrEOF
		default:
			return 0, ErrCorrupt
		}
	}
	f.pos = uint32(target)
	f.curCluster = cluster
	f.curOff = int(target % int64(fsys.sectorSize))
	return f.pos, nil
}

// Discard implements spec.md §4.6's Discard: truncate at the current
// position, freeing every subsequent cluster and marking the current one
// end-of-chain.
func (f *File) Discard() error {
	if !f.isOpen {
		return ErrFileClosed
	}
	fsys := f.fsys
	st, err := fsys.readCATEntry(f.curCluster)
	if err != nil {
		return err
	}
	if st.kind == catKindLink {
		if err := fsys.freeChain(st.link); err != nil {
			return err
		}
	}
	if err := fsys.writeCATEntry(f.curCluster, catState{kind: catKindEOC}); err != nil {
		return err
	}
	f.size = f.pos
	return nil
}

// Close persists {size, mtime} into the inode and marks the handle closed,
// per spec.md §4.6. Subsequent operations fail with ErrFileClosed.
func (f *File) Close() error {
	if !f.isOpen {
		return ErrFileClosed
	}
	fsys := f.fsys
	n, err := fsys.readInode(f.inodeID)
	if err != nil {
		return err
	}
	n.size = f.size
	n.mtime = fsys.clock.Now()
	if err := fsys.writeInode(f.inodeID, n); err != nil {
		return err
	}
	f.isOpen = false
	fsys.log.WithField("inode", f.inodeID).Debug("closed file")
	return nil
}

// Inode returns the handle's backing inode id, for Link/Size callers.
func (f *File) Inode() uint32 { return f.inodeID }
