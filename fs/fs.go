// Package fs implements the on-disk layout and algorithms of a self-contained
// cluster-allocation-table filesystem: a FAT-style allocation table that
// doubles as a linked-list index, an inode pool packed into tagged clusters,
// a chained directory format, and the file I/O state machine that walks
// cluster chains. It is grounded on
// github.com/diskfs/go-diskfs/filesystem/fat32's table/directory/file triad,
// generalized from FAT32's specific on-disk format to this format's.
package fs

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/catfs/catfs/device"
)

// Filesystem is a handle to a mounted (or freshly formatted) volume. It owns
// exactly one scratch sector buffer (§4.2/§5): every helper that overlays it
// must complete its read-mutate-write cycle before another helper reuses it,
// and nothing may nest two overlays. Filesystem is not safe for concurrent
// use, by design (spec.md §5).
type Filesystem struct {
	dev        device.Device
	clock      Clock
	log        *logrus.Entry
	sectorSize int
	nameLength int

	sb superblock

	// scratch is the single sector-sized buffer helpers overlay. It is never
	// aliased by a decoded struct; encode/decode always copy, per design
	// note §9's "explicit serialisation" guidance for memory-safe ports.
	scratch []byte
}

// Option configures a Filesystem at Format or Open time.
type Option func(*Filesystem)

// WithSectorSize overrides the default 128-byte sector. Format rejects a size
// that is not a power of two >= 64. A cluster holds sectorSize/16 inodes and
// sectorSize/(nameLength+5) directory references; any remainder is unused.
func WithSectorSize(n int) Option {
	return func(fsys *Filesystem) { fsys.sectorSize = n }
}

// WithNameLength overrides the default maximum directory entry name length
// (27, i.e. L in spec.md's notation).
func WithNameLength(n int) Option {
	return func(fsys *Filesystem) { fsys.nameLength = n }
}

// WithClock injects the "now" source used to stamp mtimes. Defaults to
// SystemClock.
func WithClock(c Clock) Option {
	return func(fsys *Filesystem) { fsys.clock = c }
}

// WithLogger attaches a logrus logger; defaults to logrus.StandardLogger().
func WithLogger(l *logrus.Logger) Option {
	return func(fsys *Filesystem) { fsys.log = l.WithField("component", "catfs") }
}

func newHandle(dev device.Device, opts []Option) *Filesystem {
	fsys := &Filesystem{
		dev:        dev,
		clock:      SystemClock{},
		sectorSize: DefaultSectorSize,
		nameLength: DefaultNameLength,
	}
	for _, o := range opts {
		o(fsys)
	}
	if fsys.log == nil {
		fsys.log = logrus.StandardLogger().WithField("component", "catfs")
	}
	fsys.scratch = make([]byte, fsys.sectorSize)
	return fsys
}

func (fsys *Filesystem) inodesPerCluster() int {
	return fsys.sectorSize / inodeSize
}

func (fsys *Filesystem) dirRefsPerCluster() int {
	return fsys.sectorSize / dirRefSize(fsys.nameLength)
}

// Format zeroes the full byte image, lays out the superblock/CAT/cluster
// regions per spec.md §3, allocates the root directory inode, and returns a
// mounted handle — the Go rendering of spec.md §4.7's fs_create /
// original_source/fs.c's fs_create.
func Format(dev device.Device, sizeBytes int64, opts ...Option) (*Filesystem, error) {
	fsys := newHandle(dev, opts)
	if fsys.sectorSize < minSectorSize || fsys.sectorSize&(fsys.sectorSize-1) != 0 {
		return nil, fmt.Errorf("catfs: sector size %d must be a power of two >= %d", fsys.sectorSize, minSectorSize)
	}
	if fsys.inodesPerCluster() > maxInodesPerCluster {
		return nil, fmt.Errorf("catfs: sector size %d yields more than %d inodes per cluster", fsys.sectorSize, maxInodesPerCluster)
	}
	if err := wrapDisk(ErrDiskInit, "init", dev.Init()); err != nil {
		return nil, err
	}

	sectors := sizeBytes / int64(fsys.sectorSize)
	if sectors < 3 {
		return nil, fmt.Errorf("catfs: image too small for sector size %d", fsys.sectorSize)
	}
	tableSectors := ceilDiv(sectors, int64(fsys.sectorSize)/catEntrySize)
	clusterSectors := sectors - 1 - tableSectors
	if clusterSectors < 1 {
		return nil, fmt.Errorf("catfs: image too small to hold any clusters")
	}

	fsys.sb = superblock{
		sectorsCount:  uint32(sectors),
		tableStart:    1,
		tableCount:    uint32(tableSectors),
		clustersStart: uint32(1 + tableSectors),
		clustersCount: uint32(clusterSectors),
	}

	fsys.log.WithFields(logrus.Fields{
		"sectors":  sectors,
		"table":    tableSectors,
		"clusters": clusterSectors,
	}).Debug("formatting volume")

	if err := fsys.zeroImage(sizeBytes); err != nil {
		return nil, err
	}

	rootID, err := fsys.createInode()
	if err != nil {
		return nil, fmt.Errorf("catfs: allocate root inode: %w", err)
	}
	fsys.sb.rootNode = rootID

	root := inode{flags: flagInUse, typ: typeDir, linksCount: 2, size: uint32(fsys.sectorSize), mtime: fsys.clock.Now()}
	firstCluster, err := fsys.findFreeCluster()
	if err != nil {
		return nil, fmt.Errorf("catfs: allocate root directory cluster: %w", err)
	}
	if err := fsys.writeCATEntry(firstCluster, catState{kind: catKindEOC}); err != nil {
		return nil, err
	}
	root.firstCluster = firstCluster
	if err := fsys.writeInode(rootID, root); err != nil {
		return nil, err
	}
	if err := fsys.initDirCluster(firstCluster, rootID, rootID); err != nil {
		return nil, err
	}

	if err := fsys.writeSuperblock(); err != nil {
		return nil, err
	}
	return fsys, nil
}

// Open reads the superblock from offset 0 and returns a mounted handle, the
// Go rendering of spec.md §4.7's fs_open.
func Open(dev device.Device, opts ...Option) (*Filesystem, error) {
	fsys := newHandle(dev, opts)
	if err := wrapDisk(ErrDiskInit, "init", dev.Init()); err != nil {
		return nil, err
	}
	b := make([]byte, superblockBytes)
	if err := dev.ReadAt(b, 0); err != nil {
		return nil, wrapDisk(ErrDiskRead, "superblock", err)
	}
	fsys.sb = decodeSuperblock(b)
	return fsys, nil
}

// Close delegates to the device's Finalize hook (spec.md §4.7's fs_close).
func (fsys *Filesystem) Close() error {
	return wrapDisk(ErrDiskClose, "finalize", fsys.dev.Finalize())
}

func (fsys *Filesystem) writeSuperblock() error {
	if err := fsys.dev.WriteAt(fsys.sb.encode(), 0); err != nil {
		return wrapDisk(ErrDiskWrite, "superblock", err)
	}
	return nil
}

// zeroImage zero-fills the full byte image sector by sector, with one
// trailing partial write if sizeBytes isn't a multiple of the sector size,
// per spec.md §4.7.
func (fsys *Filesystem) zeroImage(sizeBytes int64) error {
	for i := range fsys.scratch {
		fsys.scratch[i] = 0
	}
	sectors := sizeBytes / int64(fsys.sectorSize)
	for i := int64(0); i < sectors; i++ {
		if err := fsys.dev.WriteAt(fsys.scratch, i*int64(fsys.sectorSize)); err != nil {
			return wrapDisk(ErrDiskWrite, "zero-fill", err)
		}
	}
	remainder := sizeBytes % int64(fsys.sectorSize)
	if remainder != 0 {
		if err := fsys.dev.WriteAt(fsys.scratch[:remainder], sectors*int64(fsys.sectorSize)); err != nil {
			return wrapDisk(ErrDiskWrite, "zero-fill trailer", err)
		}
	}
	return nil
}

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}

// Info is the aggregate statistics snapshot spec.md §4.7/§6 calls for.
type Info struct {
	Sectors          uint32
	Clusters         uint32
	TableSectors     uint32
	FreeClusters     uint32
	InodeClusters    uint32
	DataClusters     uint32
	Inodes           uint32
	AllocatedInodes  uint32
	FilesSize        uint64
	DirStructureSize uint64
	TotalSize        uint64
	UsedSpace        uint64
	FreeSpace        uint64
}

// Info performs the single CAT scan spec.md §4.7 describes, classifying each
// cluster and reading inode clusters to aggregate in-use counts and sizes.
func (fsys *Filesystem) Info() (Info, error) {
	info := Info{
		Sectors:      fsys.sb.sectorsCount,
		Clusters:     fsys.sb.clustersCount,
		TableSectors: fsys.sb.tableCount,
		TotalSize:    uint64(fsys.sb.sectorsCount) * uint64(fsys.sectorSize),
	}
	ipc := fsys.inodesPerCluster()
	for c := uint32(0); c < fsys.sb.clustersCount; c++ {
		st, err := fsys.readCATEntry(c)
		if err != nil {
			return Info{}, err
		}
		switch st.kind {
		case catKindFree:
			info.FreeClusters++
		case catKindInodeCluster:
			info.InodeClusters++
			info.AllocatedInodes += uint32(ipc)
			info.Inodes += uint32(st.population)
			nodes, err := fsys.readInodeCluster(c)
			if err != nil {
				return Info{}, err
			}
			for _, n := range nodes {
				if !n.inUse() {
					continue
				}
				switch n.typ {
				case typeFile:
					info.FilesSize += uint64(n.size)
				case typeDir:
					info.DirStructureSize += uint64(n.size)
				}
			}
		default: // link or EOC: data cluster in use
			info.DataClusters++
		}
	}
	info.UsedSpace = uint64(fsys.sb.clustersCount-info.FreeClusters) * uint64(fsys.sectorSize)
	info.FreeSpace = uint64(info.FreeClusters) * uint64(fsys.sectorSize)
	return info, nil
}
