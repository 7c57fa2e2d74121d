package commands

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pierrec/lz4/v4"
	"github.com/spf13/cobra"
	"github.com/ulikunitz/xz"
)

var (
	restorePath        string
	restoreIn          string
	restoreCompression string
)

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore a database directory from an archive",
	Long: `restore extracts an archive created by "vennbase backup" into --path,
which must not already exist.`,
	RunE: runRestore,
}

func init() {
	restoreCmd.Flags().StringVar(&restorePath, "path", "./vennbase-data", "destination database directory")
	restoreCmd.Flags().StringVar(&restoreIn, "in", "vennbase-backup.tar", "archive input path")
	restoreCmd.Flags().StringVar(&restoreCompression, "compression", "none", "compression codec used to create the archive: none, lz4, xz")
}

func runRestore(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(restorePath); err == nil {
		return fmt.Errorf("destination %s already exists, refusing to overwrite", restorePath)
	}

	in, err := os.Open(restoreIn)
	if err != nil {
		return fmt.Errorf("could not open archive %s: %w", restoreIn, err)
	}
	defer in.Close()

	r, err := wrapDecompressionReader(in, restoreCompression)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(restorePath, 0o755); err != nil {
		return fmt.Errorf("could not create destination directory %s: %w", restorePath, err)
	}

	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("could not read archive entry: %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}

		dest := filepath.Join(restorePath, header.Name)
		destRoot := filepath.Clean(restorePath) + string(os.PathSeparator)
		if !strings.HasPrefix(filepath.Clean(dest)+string(os.PathSeparator), destRoot) {
			return fmt.Errorf("archive entry %q escapes destination directory %s", header.Name, restorePath)
		}

		f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return fmt.Errorf("could not create %s: %w", dest, err)
		}
		if _, err := io.Copy(f, tr); err != nil {
			f.Close()
			return fmt.Errorf("could not write %s: %w", dest, err)
		}
		f.Close()
	}

	fmt.Printf("restored archive %s into %s\n", restoreIn, restorePath)
	return nil
}

func wrapDecompressionReader(r io.Reader, codec string) (io.Reader, error) {
	switch codec {
	case "none", "":
		return r, nil
	case "lz4":
		return lz4.NewReader(r), nil
	case "xz":
		zr, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("could not create xz reader: %w", err)
		}
		return zr, nil
	default:
		return nil, fmt.Errorf("unknown compression codec %q (want none, lz4, or xz)", codec)
	}
}
