// Command dira is the admin CLI: seed organisations, re-embed reports and check duplicates.
package main

import (
	"os"

	"dira-go/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
