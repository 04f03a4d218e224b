// Command diskscope reports and removes what takes up space on disk.
package main

import (
	"fmt"
	"os"

	"github.com/idelchi/diskscope/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := cli.New(version).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "diskscope: %v\n", err)
		os.Exit(1)
	}
}
