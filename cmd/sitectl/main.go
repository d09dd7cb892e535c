// Command sitectl edits and publishes a Tessera site document.
package main

import (
	"fmt"
	"os"

	"github.com/tessera-archive/tessera/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
