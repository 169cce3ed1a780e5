// Command fildex ingests PDF financial filings into a local searchable
// corpus.
package main

import (
	"os"

	"github.com/fildex-labs/fildex-cli/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
