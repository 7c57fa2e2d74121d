package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/xattr"
	uuid "github.com/satori/go.uuid"
	"github.com/spf13/cobra"

	"github.com/paoloose/vennbase"
)

var (
	exportPath string
	exportID   string
	exportOut  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Dump one record to a host file",
	Long: `export fetches a record by id and writes its bytes to --out. Its MIME
type and tags are additionally written as extended attributes
(user.vennbase.mime, user.vennbase.tags) on a best-effort basis --
filesystems without xattr support simply don't get them.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportPath, "path", "./vennbase-data", "database directory")
	exportCmd.Flags().StringVar(&exportID, "id", "", "record id to export")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "destination file path")
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportID == "" || exportOut == "" {
		return fmt.Errorf("--id and --out are required")
	}

	id, err := uuid.FromString(exportID)
	if err != nil {
		return fmt.Errorf("invalid record id %q: %w", exportID, err)
	}

	db, err := vennbase.Open(exportPath)
	if err != nil {
		return fmt.Errorf("could not open database: %w", err)
	}

	result, err := db.FetchRecordByID(id, nil)
	if err != nil {
		return fmt.Errorf("could not fetch record %s: %w", id, err)
	}

	f, err := os.Create(exportOut)
	if err != nil {
		return fmt.Errorf("could not create %s: %w", exportOut, err)
	}

	if result.Reader != nil {
		defer result.Reader.Close()
		if _, err := io.Copy(f, result.Reader); err != nil {
			f.Close()
			return fmt.Errorf("could not write %s: %w", exportOut, err)
		}
	} else if _, err := f.Write(result.Bytes); err != nil {
		f.Close()
		return fmt.Errorf("could not write %s: %w", exportOut, err)
	}
	f.Close()

	tags := db.GetTagsForRecord(id)
	if err := xattr.Set(exportOut, "user.vennbase.mime", []byte(result.Mime)); err != nil {
		fmt.Printf("note: could not set mime xattr on %s: %v\n", exportOut, err)
	}
	if err := xattr.Set(exportOut, "user.vennbase.tags", []byte(strings.Join(tags, ","))); err != nil {
		fmt.Printf("note: could not set tags xattr on %s: %v\n", exportOut, err)
	}

	fmt.Printf("exported %s (%s) to %s\n", id, result.Mime, exportOut)
	return nil
}
