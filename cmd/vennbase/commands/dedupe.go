package commands

import (
	"fmt"
	"io"

	"golang.org/x/crypto/blake2b"

	"github.com/spf13/cobra"
	uuid "github.com/satori/go.uuid"

	"github.com/paoloose/vennbase"
	"github.com/paoloose/vennbase/partition"
)

var dedupePath string

var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Report records that store byte-identical content",
	Long: `dedupe hashes every active record's bytes with blake2b and reports ids
(possibly in different partitions) whose content is identical. Record
addressing itself is unaffected -- records stay addressed by UUID.`,
	RunE: runDedupe,
}

func init() {
	dedupeCmd.Flags().StringVar(&dedupePath, "path", "./vennbase-data", "database directory")
}

type dedupeEntry struct {
	mime string
	id   uuid.UUID
}

func runDedupe(cmd *cobra.Command, args []string) error {
	db, err := vennbase.Open(dedupePath)
	if err != nil {
		return fmt.Errorf("could not open database: %w", err)
	}

	byHash := make(map[[blake2b.Size256]byte][]dedupeEntry)
	var hashErr error

	db.WalkActiveRecords(func(mime string, id uuid.UUID, p *partition.Partition) bool {
		reader, found, err := p.FetchRecord(id)
		if err != nil || !found {
			hashErr = fmt.Errorf("could not fetch record %s: %w", id, err)
			return false
		}
		defer reader.Close()

		h, err := blake2b.New256(nil)
		if err != nil {
			hashErr = fmt.Errorf("could not create hasher: %w", err)
			return false
		}
		if _, err := io.Copy(h, reader); err != nil {
			hashErr = fmt.Errorf("could not hash record %s: %w", id, err)
			return false
		}

		var sum [blake2b.Size256]byte
		copy(sum[:], h.Sum(nil))
		byHash[sum] = append(byHash[sum], dedupeEntry{mime: mime, id: id})
		return true
	})
	if hashErr != nil {
		return hashErr
	}

	groups := 0
	for _, entries := range byHash {
		if len(entries) < 2 {
			continue
		}
		groups++
		fmt.Printf("duplicate content (%d copies):\n", len(entries))
		for _, e := range entries {
			fmt.Printf("  %s  %s\n", e.id, e.mime)
		}
	}

	fmt.Printf("dedupe complete: %d duplicate group(s) found\n", groups)
	return nil
}
