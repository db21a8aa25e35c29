package fs

import "encoding/binary"

// Format constants. DefaultSectorSize, DefaultNameLength and MaxPathLength are the
// reference image's values (original_source/fs.h: FS_SECTOR_SIZE=128,
// FS_NAME_MAX_LENGTH=27, FS_PATH_MAX_LENGTH=255); a Filesystem may be created
// with any power-of-two sector size >= minSectorSize via Options.
const (
	DefaultSectorSize  = 128
	DefaultNameLength  = 27
	MaxPathLength      = 255
	minSectorSize      = 64
	superblockBytes    = 24 // 6 x uint32
	catEntrySize       = 4  // one uint32 per cluster
	inodeSize          = 16 // fixed: flags,type,links,size,first_cluster,mtime
)

// inode type tags.
const (
	typeFile = 1
	typeDir  = 2
)

// inode flags.
const flagInUse = 1 << 0

// Open flags, matching spec.md §6 / original_source/fs.h FS_CREATE, FS_APPEND.
const (
	FlagCreate = 1 << 0
	FlagAppend = 1 << 1
)

// SeekMode selects the seek origin, matching original_source/fs.h's
// FS_SEEK_BEGIN/CURRENT/END numbering (1-based, not io.Seek*'s 0-based).
type SeekMode uint8

const (
	SeekBegin   SeekMode = 1
	SeekCurrent SeekMode = 2
	SeekEnd     SeekMode = 3
)

// EntryType classifies a resolved path, mirroring the reference's
// file/directory/not-exists find-code.
type EntryType int

const (
	NotExists EntryType = iota
	IsFile
	IsDir
)

// reserved CAT tag range, spec.md §3.
const (
	catFree       uint32 = 0x00000000
	catEOC        uint32 = 0xFFFFFFFE
	catInodeBase  uint32 = 0xFFFFFF00
	catInvalidRAM uint32 = 0xFFFFFFFF // never persisted
)

// superblock is the on-disk geometry header at byte 0, packed little-endian
// exactly as spec.md §3/§6 describes: 6 uint32 fields.
type superblock struct {
	sectorsCount  uint32
	rootNode      uint32
	tableStart    uint32
	tableCount    uint32
	clustersStart uint32
	clustersCount uint32
}

func (s *superblock) encode() []byte {
	b := make([]byte, superblockBytes)
	binary.LittleEndian.PutUint32(b[0:4], s.sectorsCount)
	binary.LittleEndian.PutUint32(b[4:8], s.rootNode)
	binary.LittleEndian.PutUint32(b[8:12], s.tableStart)
	binary.LittleEndian.PutUint32(b[12:16], s.tableCount)
	binary.LittleEndian.PutUint32(b[16:20], s.clustersStart)
	binary.LittleEndian.PutUint32(b[20:24], s.clustersCount)
	return b
}

func decodeSuperblock(b []byte) superblock {
	return superblock{
		sectorsCount:  binary.LittleEndian.Uint32(b[0:4]),
		rootNode:      binary.LittleEndian.Uint32(b[4:8]),
		tableStart:    binary.LittleEndian.Uint32(b[8:12]),
		tableCount:    binary.LittleEndian.Uint32(b[12:16]),
		clustersStart: binary.LittleEndian.Uint32(b[16:20]),
		clustersCount: binary.LittleEndian.Uint32(b[20:24]),
	}
}

// inode is the fixed 16-byte on-disk descriptor of a file or directory.
type inode struct {
	flags        uint8
	typ          uint8
	linksCount   uint16
	size         uint32
	firstCluster uint32
	mtime        uint32
}

func (n *inode) inUse() bool { return n.flags&flagInUse != 0 }

func (n *inode) encode() []byte {
	b := make([]byte, inodeSize)
	b[0] = n.flags
	b[1] = n.typ
	binary.LittleEndian.PutUint16(b[2:4], n.linksCount)
	binary.LittleEndian.PutUint32(b[4:8], n.size)
	binary.LittleEndian.PutUint32(b[8:12], n.firstCluster)
	binary.LittleEndian.PutUint32(b[12:16], n.mtime)
	return b
}

func decodeInode(b []byte) inode {
	return inode{
		flags:        b[0],
		typ:          b[1],
		linksCount:   binary.LittleEndian.Uint16(b[2:4]),
		size:         binary.LittleEndian.Uint32(b[4:8]),
		firstCluster: binary.LittleEndian.Uint32(b[8:12]),
		mtime:        binary.LittleEndian.Uint32(b[12:16]),
	}
}

// inodeID packs (cluster, slot) into the 32-bit id spec.md §3 describes.
func inodeID(cluster uint32, slot uint8) uint32 {
	return (cluster << 8) | uint32(slot)
}

func splitInodeID(id uint32) (cluster uint32, slot uint8) {
	return id >> 8, uint8(id & 0xFF)
}

// dirRefSize returns the packed size of a directory reference for a given
// name length L: L+1 bytes of name (zero-terminated) + 4 bytes of inode id.
func dirRefSize(nameLength int) int {
	return nameLength + 1 + 4
}

// dirRef is a single (name, inode) directory reference.
type dirRef struct {
	name string
	ino  uint32
}

func encodeDirRef(r dirRef, nameLength int) []byte {
	b := make([]byte, dirRefSize(nameLength))
	copy(b[:nameLength], r.name)
	binary.LittleEndian.PutUint32(b[nameLength+1:nameLength+5], r.ino)
	return b
}

func decodeDirRef(b []byte, nameLength int) dirRef {
	end := 0
	for end < nameLength && b[end] != 0 {
		end++
	}
	return dirRef{
		name: string(b[:end]),
		ino:  binary.LittleEndian.Uint32(b[nameLength+1 : nameLength+5]),
	}
}
