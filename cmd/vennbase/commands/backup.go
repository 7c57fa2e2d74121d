package commands

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pierrec/lz4/v4"
	"github.com/spf13/cobra"
	"github.com/ulikunitz/xz"
)

var (
	backupPath        string
	backupOut         string
	backupCompression string
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Archive a database directory",
	Long: `backup tars up every file in a database directory (partitions plus the
tag index) and writes the archive to --out, optionally compressed.

Examples:
  vennbase backup --path ./data --out data.tar
  vennbase backup --path ./data --out data.tar.lz4 --compression lz4
  vennbase backup --path ./data --out data.tar.xz --compression xz`,
	RunE: runBackup,
}

func init() {
	backupCmd.Flags().StringVar(&backupPath, "path", "./vennbase-data", "database directory to archive")
	backupCmd.Flags().StringVar(&backupOut, "out", "vennbase-backup.tar", "archive output path")
	backupCmd.Flags().StringVar(&backupCompression, "compression", "none", "compression codec: none, lz4, xz")
}

func runBackup(cmd *cobra.Command, args []string) error {
	out, err := os.Create(backupOut)
	if err != nil {
		return fmt.Errorf("could not create archive %s: %w", backupOut, err)
	}
	defer out.Close()

	w, closeCodec, err := wrapCompressionWriter(out, backupCompression)
	if err != nil {
		return err
	}
	defer closeCodec()

	tw := tar.NewWriter(w)
	defer tw.Close()

	entries, err := os.ReadDir(backupPath)
	if err != nil {
		return fmt.Errorf("could not read database directory %s: %w", backupPath, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := addFileToTar(tw, backupPath, entry.Name()); err != nil {
			return err
		}
	}

	fmt.Printf("backed up %s to %s (%s compression)\n", backupPath, backupOut, backupCompression)
	return nil
}

func addFileToTar(tw *tar.Writer, dir, name string) error {
	path := filepath.Join(dir, name)
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("could not stat %s: %w", path, err)
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("could not build tar header for %s: %w", path, err)
	}
	header.Name = name

	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("could not write tar header for %s: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("could not open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("could not write %s into archive: %w", path, err)
	}
	return nil
}

// wrapCompressionWriter wraps w with the selected compression codec.
// The returned close func must be called (after the tar writer is
// closed) to flush the codec's trailer.
func wrapCompressionWriter(w io.Writer, codec string) (io.Writer, func() error, error) {
	switch codec {
	case "none", "":
		return w, func() error { return nil }, nil
	case "lz4":
		zw := lz4.NewWriter(w)
		return zw, zw.Close, nil
	case "xz":
		zw, err := xz.NewWriter(w)
		if err != nil {
			return nil, nil, fmt.Errorf("could not create xz writer: %w", err)
		}
		return zw, zw.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown compression codec %q (want none, lz4, or xz)", codec)
	}
}
