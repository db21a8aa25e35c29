package main

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/catfs/catfs/fs"
)

const copyBufferSize = 256

// cmdCp implements original_source/main.c's cmd_cp: a within-filesystem file
// copy via Open/Read/Write, grounded on sync/copy.go's copyOneFile loop.
func (sh *shell) cmdCp(args []string) {
	src, err := sh.fsys.FileOpen(sh.absolutePath(args[0]), 0)
	if err != nil {
		sh.printErr("cp", err)
		return
	}
	defer src.Close()

	dst, err := sh.fsys.FileOpen(sh.absolutePath(args[1]), fs.FlagCreate)
	if err != nil {
		sh.printErr("cp", err)
		return
	}
	defer dst.Close()

	buf := make([]byte, copyBufferSize)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				sh.printErr("cp", werr)
				return
			}
		}
		if err == fs.ErrEOF {
			return
		}
		if err != nil {
			sh.printErr("cp", err)
			return
		}
	}
}

// cmdMv implements original_source/main.c's cmd_mv: link the destination to
// the source's inode, then remove the source -- there is no dedicated rename
// operation in this format.
func (sh *shell) cmdMv(args []string) {
	srcPath := sh.absolutePath(args[0])
	dstPath := sh.absolutePath(args[1])
	info, err := sh.fsys.EntryInfo(srcPath)
	if err != nil {
		sh.printErr("mv", err)
		return
	}
	if err := sh.fsys.Link(dstPath, info.Inode); err != nil {
		sh.printErr("mv", err)
		return
	}
	if err := sh.fsys.Remove(srcPath); err != nil {
		sh.printErr("mv", err)
	}
}

func (sh *shell) cmdMkdir(args []string) {
	if err := sh.fsys.Mkdir(sh.absolutePath(args[0])); err != nil {
		sh.printErr("mkdir", err)
	}
}

func (sh *shell) cmdTouch(args []string) {
	f, err := sh.fsys.FileOpen(sh.absolutePath(args[0]), fs.FlagCreate)
	if err != nil {
		sh.printErr("touch", err)
		return
	}
	if err := f.Close(); err != nil {
		sh.printErr("touch", err)
	}
}

func (sh *shell) cmdLn(args []string) {
	info, err := sh.fsys.EntryInfo(sh.absolutePath(args[0]))
	if err != nil {
		sh.printErr("ln", err)
		return
	}
	if err := sh.fsys.Link(sh.absolutePath(args[1]), info.Inode); err != nil {
		sh.printErr("ln", err)
	}
}

func (sh *shell) cmdRm(args []string) {
	if err := sh.fsys.Remove(sh.absolutePath(args[0])); err != nil {
		sh.printErr("rm", err)
	}
}

// cmdImport implements original_source/main.c's cmd_import: stream a real
// host file into the catfs image.
func (sh *shell) cmdImport(args []string) {
	real, err := os.Open(args[0])
	if err != nil {
		fmt.Fprintf(sh.out, "cannot open external file %s\n", args[0])
		return
	}
	defer real.Close()

	dst, err := sh.fsys.FileOpen(sh.absolutePath(args[1]), fs.FlagCreate)
	if err != nil {
		sh.printErr("import", err)
		return
	}
	defer dst.Close()

	buf := make([]byte, copyBufferSize)
	for {
		n, rerr := real.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				sh.printErr("import", werr)
				return
			}
		}
		if rerr != nil {
			return
		}
	}
}

// cmdExport implements original_source/main.c's cmd_export: stream a catfs
// file out to a real host file.
func (sh *shell) cmdExport(args []string) {
	src, err := sh.fsys.FileOpen(sh.absolutePath(args[0]), 0)
	if err != nil {
		sh.printErr("export", err)
		return
	}
	defer src.Close()

	real, err := os.Create(args[1])
	if err != nil {
		fmt.Fprintf(sh.out, "cannot open external file %s\n", args[1])
		return
	}
	defer real.Close()

	buf := make([]byte, copyBufferSize)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := real.Write(buf[:n]); werr != nil {
				sh.printErr("export", werr)
				return
			}
		}
		if err == fs.ErrEOF {
			return
		}
		if err != nil {
			sh.printErr("export", err)
			return
		}
	}
}

func (sh *shell) cmdCat(args []string) {
	f, err := sh.fsys.FileOpen(sh.absolutePath(args[0]), 0)
	if err != nil {
		sh.printErr("cat", err)
		return
	}
	defer f.Close()

	buf := make([]byte, copyBufferSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			sh.out.Write(buf[:n])
		}
		if err == fs.ErrEOF {
			break
		}
		if err != nil {
			sh.printErr("cat", err)
			return
		}
	}
	fmt.Fprintln(sh.out)
}

// cmdLs implements original_source/main.c's cmd_ls, including its "-d"
// (detailed) and "-s" (size) flags.
func (sh *shell) cmdLs(args []string) {
	var target string
	showDetails, showSize := false, false
	for _, a := range args {
		if len(a) > 0 && a[0] == '-' {
			for _, f := range a[1:] {
				switch f {
				case 'd':
					showDetails = true
				case 's':
					showSize = true
				}
			}
			continue
		}
		target = a
	}
	if target == "" {
		target = sh.cwd
	}

	entries, err := sh.fsys.List(sh.absolutePath(target))
	if err != nil {
		sh.printErr("ls", err)
		return
	}
	for _, e := range entries {
		kind := "DIR "
		if e.Type == fs.IsFile {
			kind = "FILE"
		}
		fmt.Fprintf(sh.out, "%-4s ", kind)
		if showDetails {
			t := time.Unix(int64(e.Mtime), 0).UTC()
			fmt.Fprintf(sh.out, "0x%08X %2d %s ", e.Inode, e.Links, t.Format("2006-01-02 15:04:05"))
		}
		fmt.Fprintf(sh.out, " %-27s", e.Name)
		if showSize && e.Name != ".." {
			size, err := sh.fsys.Size(e.Inode)
			if err != nil {
				sh.printErr("ls", err)
				return
			}
			fmt.Fprintf(sh.out, " %d B", size)
		}
		fmt.Fprintln(sh.out)
	}
}

// cmdCd implements original_source/main.c's cmd_cd, resolving "." and ".."
// token by token against the current directory.
func (sh *shell) cmdCd(args []string) {
	target := sh.absolutePath(args[0])
	info, err := sh.fsys.EntryInfo(target)
	if err != nil {
		sh.printErr("cd", err)
		return
	}
	if info.Type != fs.IsDir {
		sh.printErr("cd", fs.ErrNotADirectory)
		return
	}
	sh.cwd = target
	if sh.cwd != "/" {
		sh.cwd = path.Clean(sh.cwd)
	}
}

func (sh *shell) cmdPwd() {
	fmt.Fprintln(sh.out, sh.cwd)
}

// cmdExp implements original_source/main.c's cmd_exp: append count 0xFF
// bytes to a file, exercising FlagAppend.
func (sh *shell) cmdExp(args []string) {
	if len(args) != 2 {
		fmt.Fprintln(sh.out, "exp: expected path and byte count")
		return
	}
	count, err := parseByteCount(args[1])
	if err != nil {
		fmt.Fprintln(sh.out, err)
		return
	}
	f, err := sh.fsys.FileOpen(sh.absolutePath(args[0]), fs.FlagAppend)
	if err != nil {
		sh.printErr("exp", err)
		return
	}
	defer f.Close()

	filler := bytes.Repeat([]byte{0xFF}, copyBufferSize)
	for count > 0 {
		n := count
		if n > copyBufferSize {
			n = copyBufferSize
		}
		if _, err := f.Write(filler[:n]); err != nil {
			sh.printErr("exp", err)
			return
		}
		count -= n
	}
}

// cmdTrunc implements original_source/main.c's cmd_trunc: seek count bytes
// back from the end, then discard everything past that point.
func (sh *shell) cmdTrunc(args []string) {
	if len(args) != 2 {
		fmt.Fprintln(sh.out, "trunc: expected path and byte count")
		return
	}
	count, err := parseByteCount(args[1])
	if err != nil {
		fmt.Fprintln(sh.out, err)
		return
	}
	f, err := sh.fsys.FileOpen(sh.absolutePath(args[0]), 0)
	if err != nil {
		sh.printErr("trunc", err)
		return
	}
	defer f.Close()

	if _, err := f.Seek(fs.SeekEnd, int32(count)); err != nil {
		sh.printErr("trunc", err)
		return
	}
	if err := f.Discard(); err != nil {
		sh.printErr("trunc", err)
	}
}

// cmdDump is a debugging aid beyond the reference shell: hex-dump the first
// cluster backing path.
func (sh *shell) cmdDump(args []string) {
	out, err := sh.fsys.DumpPath(sh.absolutePath(args[0]))
	if err != nil {
		sh.printErr("dump", err)
		return
	}
	fmt.Fprint(sh.out, out)
}

func (sh *shell) cmdFsinfo() {
	info, err := sh.fsys.Info()
	if err != nil {
		sh.printErr("fsinfo", err)
		return
	}
	fmt.Fprintf(sh.out, "Sectors (total / boot / allocation table): %d / 1 / %d\n", info.Sectors, info.TableSectors)
	fmt.Fprintf(sh.out, "Clusters (total / free / node / data): %d / %d / %d / %d\n",
		info.Clusters, info.FreeClusters, info.InodeClusters, info.DataClusters)
	fmt.Fprintf(sh.out, "Nodes (used / allocated): %d / %d\n", info.Inodes, info.AllocatedInodes)
	fmt.Fprintf(sh.out, "File system size (total / usable): %d B / %d B\n", info.TotalSize, info.FreeSpace+info.UsedSpace)
	fmt.Fprintf(sh.out, "Size (files / directory structures): %d B / %d B\n", info.FilesSize, info.DirStructureSize)
	fmt.Fprintf(sh.out, "Usage: %d B / %d B\n", info.UsedSpace, info.TotalSize)
}

func (sh *shell) cmdHelp() {
	lines := []string{
		"cp source destination - Copies file from source to destination.",
		"mv source destination - Moves file from source to destination.",
		"mkdir path - Creates directory. Allows nested directories.",
		"touch path - Creates empty file.",
		"ln file_path link_name - Creates hard link of link_name to file_path.",
		"rm path - Removes file or directory recursively.",
		"import real_source destination - Imports external file into file system.",
		"export source real_destination - Exports file from file system.",
		"cat file - Prints content of specified file.",
		"ls [path] [-d] [-s] - Lists specified directory; -d shows node/links, -s shows size.",
		"cd dir - Change current directory.",
		"pwd - Prints path to current directory.",
		"exp file bytes - Expands file by specified amount of bytes.",
		"trunc file bytes - Truncates file by specified amount of bytes from the end.",
		"fsinfo - Displays info about file system.",
		"dump path - Hex-dumps the first cluster backing path.",
		"exit - Leaves the shell.",
	}
	for _, l := range lines {
		fmt.Fprintln(sh.out, l)
	}
}
