// Command cve_loader fills the CVE catalogue from JSON seed files or a feed URL.
package main

import (
	"fmt"
	"os"

	"github.com/lcalzada-xor/threatcorr/internal/observability"
)

func main() {
	if err := newLoaderCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		observability.Sync()
		os.Exit(1)
	}
	observability.Sync()
}
