package fs

import "fmt"

// dumpBytesPerRow matches the teacher's xxd-style default row width.
const dumpBytesPerRow = 16

// DumpBytes renders b as a hex + ASCII dump, the Go rendering of
// util/printer.go's DumpByteSlice trimmed to the one row format this tool
// needs (always positions in hex, always ASCII trailer).
func DumpBytes(b []byte) string {
	var ascii []byte
	var out string
	numRows := len(b) / dumpBytesPerRow
	if len(b)%dumpBytesPerRow != 0 {
		numRows++
	}
	for i := 0; i < numRows; i++ {
		first := i * dumpBytesPerRow
		last := first + dumpBytesPerRow
		row := fmt.Sprintf("%08x : ", first)
		for j := first; j < last; j++ {
			if j%8 == 0 {
				row += " "
			}
			if j < len(b) {
				row += fmt.Sprintf(" %02x", b[j])
			} else {
				row += "   "
			}
			switch {
			case j >= len(b):
				ascii = append(ascii, ' ')
			case b[j] < 32 || b[j] > 126:
				ascii = append(ascii, '.')
			default:
				ascii = append(ascii, b[j])
			}
		}
		row += fmt.Sprintf("  %s\n", string(ascii))
		ascii = ascii[:0]
		out += row
	}
	return out
}

// DumpCluster reads and hex-dumps the raw bytes of cluster c, for
// troubleshooting a corrupt chain or directory layout.
func (fsys *Filesystem) DumpCluster(c uint32) (string, error) {
	b := make([]byte, fsys.sectorSize)
	if err := fsys.dev.ReadAt(b, fsys.clusterByteOffset(c)); err != nil {
		return "", wrapDisk(ErrDiskRead, "dump cluster", err)
	}
	return DumpBytes(b), nil
}

// DumpCAT reads and hex-dumps the raw on-disk bytes of the cluster
// allocation table, for troubleshooting free-list corruption.
func (fsys *Filesystem) DumpCAT() (string, error) {
	b := make([]byte, int64(fsys.sb.tableCount)*int64(fsys.sectorSize))
	if err := fsys.dev.ReadAt(b, int64(fsys.sb.tableStart)*int64(fsys.sectorSize)); err != nil {
		return "", wrapDisk(ErrDiskRead, "dump cat", err)
	}
	return DumpBytes(b), nil
}

// DumpPath resolves path and hex-dumps its first cluster, for CLI
// troubleshooting of a single file or directory without needing the raw
// cluster number.
func (fsys *Filesystem) DumpPath(path string) (string, error) {
	id, typ, err := fsys.findNode(path)
	if err != nil {
		return "", err
	}
	if typ == NotExists {
		return "", ErrNotExists
	}
	n, err := fsys.readInode(id)
	if err != nil {
		return "", err
	}
	return fsys.DumpCluster(n.firstCluster)
}
