// Command vennbase runs and operates the content-addressed,
// MIME-partitioned blob store.
package main

import (
	"fmt"
	"os"

	"github.com/paoloose/vennbase/cmd/vennbase/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
