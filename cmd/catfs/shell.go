package main

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/catfs/catfs/fs"
)

// shell holds the interactive session state, the Go rendering of
// original_source/main.c's globals (fs, current_dir).
type shell struct {
	fsys *fs.Filesystem
	cwd  string
	in   *bufio.Scanner
	out  *bufio.Writer
	log  *logrus.Entry
}

// runShell implements original_source/main.c's loop(): print a prompt, read
// one line, tokenize on whitespace, dispatch. Every command it runs is
// logged under a per-session correlation id, the same per-invocation
// trace-id convention gcsfuse's command layer attaches to its own logging.
func runShell(fsys *fs.Filesystem) error {
	sh := &shell{
		fsys: fsys,
		cwd:  "/",
		in:   bufio.NewScanner(os.Stdin),
		out:  bufio.NewWriter(os.Stdout),
		log:  logrus.WithField("session", uuid.New().String()),
	}
	defer sh.out.Flush()

	fmt.Fprintln(sh.out, "Type help to get more information")
	sh.out.Flush()

	for {
		fmt.Fprintf(sh.out, "%s%s%s$ ", colorCyan, sh.cwd, colorReset)
		sh.out.Flush()
		if !sh.in.Scan() {
			return nil
		}
		args := strings.Fields(sh.in.Text())
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" {
			return nil
		}
		sh.log.WithField("cmd", args[0]).Debug("dispatching shell command")
		sh.dispatch(args)
		sh.out.Flush()
	}
}

func (sh *shell) dispatch(args []string) {
	switch args[0] {
	case "cp":
		sh.requireArgs(args, 2, sh.cmdCp)
	case "mv":
		sh.requireArgs(args, 2, sh.cmdMv)
	case "mkdir":
		sh.requireArgs(args, 1, sh.cmdMkdir)
	case "touch":
		sh.requireArgs(args, 1, sh.cmdTouch)
	case "ln":
		sh.requireArgs(args, 2, sh.cmdLn)
	case "rm":
		sh.requireArgs(args, 1, sh.cmdRm)
	case "import":
		sh.requireArgs(args, 2, sh.cmdImport)
	case "export":
		sh.requireArgs(args, 2, sh.cmdExport)
	case "cat":
		sh.requireArgs(args, 1, sh.cmdCat)
	case "ls":
		sh.cmdLs(args[1:])
	case "cd":
		sh.requireArgs(args, 1, sh.cmdCd)
	case "pwd":
		sh.cmdPwd()
	case "exp":
		sh.cmdExp(args[1:])
	case "trunc":
		sh.cmdTrunc(args[1:])
	case "fsinfo":
		sh.cmdFsinfo()
	case "dump":
		sh.requireArgs(args, 1, sh.cmdDump)
	case "help":
		sh.cmdHelp()
	default:
		fmt.Fprintf(sh.out, "unknown command %q, type help for a list\n", args[0])
	}
}

// requireArgs calls fn(rest...) only if exactly n positional arguments follow
// the command name, matching the reference's fixed-arity command handlers.
func (sh *shell) requireArgs(args []string, n int, fn func([]string)) {
	rest := args[1:]
	if len(rest) != n {
		fmt.Fprintf(sh.out, "%s: expected %d argument(s), got %d\n", args[0], n, len(rest))
		return
	}
	fn(rest)
}

// absolutePath resolves a possibly-relative argument against the current
// directory, per original_source/main.c's absolute_path.
func (sh *shell) absolutePath(p string) string {
	if strings.HasPrefix(p, "/") {
		return path.Clean(p)
	}
	return path.Clean(path.Join(sh.cwd, p))
}

func (sh *shell) printErr(op string, err error) {
	fmt.Fprintf(sh.out, "%s: %v\n", op, err)
}

func parseByteCount(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid byte count %q", s)
	}
	return n, nil
}
