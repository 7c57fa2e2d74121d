package commands

import (
	"fmt"
	"time"

	times "gopkg.in/djherbis/times.v1"

	"github.com/spf13/cobra"

	"github.com/paoloose/vennbase"
)

var fsckPath string

var fsckCmd = &cobra.Command{
	Use:   "fsck",
	Short: "Verify a database directory",
	Long: `fsck opens every partition in a database directory and reports any
partition whose on-disk birth time has drifted noticeably from the
created_at timestamp recorded in its header.`,
	RunE: runFsck,
}

func init() {
	fsckCmd.Flags().StringVar(&fsckPath, "path", "./vennbase-data", "database directory")
}

const birthTimeDriftWarning = 24 * time.Hour

func runFsck(cmd *cobra.Command, args []string) error {
	db, err := vennbase.Open(fsckPath)
	if err != nil {
		return fmt.Errorf("could not open database: %w", err)
	}

	warnings := 0
	for _, summary := range db.Partitions() {
		t, err := times.Stat(summary.Path)
		if err != nil {
			fmt.Printf("WARN %-20s: could not stat file: %v\n", summary.Mime, err)
			warnings++
			continue
		}
		if !t.HasBirthTime() {
			continue
		}

		createdAt := time.UnixMilli(summary.CreatedAt)
		drift := t.BirthTime().Sub(createdAt)
		if drift < 0 {
			drift = -drift
		}
		if drift > birthTimeDriftWarning {
			fmt.Printf("WARN %-20s: header created_at %s drifts %s from file birth time %s\n",
				summary.Mime, createdAt, drift, t.BirthTime())
			warnings++
		}
	}

	fmt.Printf("fsck complete: %d partitions checked, %d warnings\n", len(db.Partitions()), warnings)
	return nil
}
