// Command catfs formats and interactively browses a cluster-allocation-table
// filesystem image, the Go rendering of original_source/main.c's "./fs
// file_name [size_in_bytes]" tool.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/catfs/catfs/device/file"
	"github.com/catfs/catfs/fs"
)

var logLevel string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "catfs",
		Short: "Format and browse catfs filesystem images",
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: trace, debug, info, warn, error")
	root.AddCommand(formatCmd(), shellCmd())
	return root
}

func setupLogger() *logrus.Logger {
	log := logrus.New()
	lvl, err := logrus.ParseLevel(logLevel)
	if err != nil {
		lvl = logrus.WarnLevel
	}
	log.SetLevel(lvl)
	return log
}

func formatCmd() *cobra.Command {
	var sectorSize, nameLength int
	cmd := &cobra.Command{
		Use:   "format <image-path> <size-bytes>",
		Short: "Create a new catfs image of the given size",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			size, err := parseSize(args[1])
			if err != nil {
				return err
			}
			dev, err := file.Create(args[0], size)
			if err != nil {
				return fmt.Errorf("creating image file: %w", err)
			}
			log := setupLogger()
			fsys, err := fs.Format(dev, size, fs.WithSectorSize(sectorSize), fs.WithNameLength(nameLength), fs.WithLogger(log))
			if err != nil {
				return fmt.Errorf("formatting image: %w", err)
			}
			defer fsys.Close()
			fmt.Println("File system successfully created.")
			return nil
		},
	}
	cmd.Flags().IntVar(&sectorSize, "sector-size", fs.DefaultSectorSize, "bytes per sector/cluster")
	cmd.Flags().IntVar(&nameLength, "name-length", fs.DefaultNameLength, "maximum directory entry name length")
	return cmd
}

func shellCmd() *cobra.Command {
	var sectorSize, nameLength int
	cmd := &cobra.Command{
		Use:   "shell <image-path>",
		Short: "Open an existing catfs image and browse it interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dev, err := file.Open(args[0], false)
			if err != nil {
				return fmt.Errorf("opening image file: %w", err)
			}
			log := setupLogger()
			fsys, err := fs.Open(dev, fs.WithSectorSize(sectorSize), fs.WithNameLength(nameLength), fs.WithLogger(log))
			if err != nil {
				return fmt.Errorf("opening file system: %w", err)
			}
			defer fsys.Close()
			fmt.Println("File system successfully opened.")
			return runShell(fsys)
		},
	}
	cmd.Flags().IntVar(&sectorSize, "sector-size", fs.DefaultSectorSize, "bytes per sector/cluster, must match the value used at format time")
	cmd.Flags().IntVar(&nameLength, "name-length", fs.DefaultNameLength, "maximum directory entry name length, must match the value used at format time")
	return cmd
}

func parseSize(s string) (int64, error) {
	var n int64
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return n, nil
}
