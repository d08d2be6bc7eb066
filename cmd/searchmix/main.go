// Command searchmix indexes Markdown document collections and serves
// ranked, accent-insensitive full-text search over them.
package main

import (
	"os"

	"github.com/searchmix/searchmix/cmd/searchmix/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
