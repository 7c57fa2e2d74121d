package commands

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/paoloose/vennbase"
	"github.com/paoloose/vennbase/wire"
)

var (
	servePath    string
	serveAddr    string
	serveWorkers int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the vennbase TCP server",
	Long: `Run the vennbase TCP server against a database directory, bootstrapping
it on first use.

Examples:
  vennbase serve --path ./data --addr 127.0.0.1:1834
  vennbase serve --path ./data --workers 16`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&servePath, "path", "./vennbase-data", "database directory")
	serveCmd.Flags().StringVar(&serveAddr, "addr", wire.DefaultAddr, "TCP listen address")
	serveCmd.Flags().IntVar(&serveWorkers, "workers", 8, "worker pool size")
}

func runServe(cmd *cobra.Command, args []string) error {
	db, err := vennbase.Open(servePath)
	if err != nil {
		return fmt.Errorf("could not open database: %w", err)
	}

	unlock, err := acquireLock(filepath.Join(servePath, ".lock"))
	if err != nil {
		return fmt.Errorf("could not acquire database lock: %w", err)
	}
	defer unlock()

	server := wire.NewServer(db, serveWorkers, serveWorkers*4)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serveDone := make(chan error, 1)
	go func() {
		serveDone <- server.ListenAndServe(serveAddr)
	}()

	logrus.WithField("addr", serveAddr).Info("vennbase server running, press Ctrl+C to stop")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logrus.Info("shutdown signal received")
		server.Stop()
		return nil
	case err := <-serveDone:
		signal.Stop(sigChan)
		return err
	}
}
