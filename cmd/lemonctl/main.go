// lemonctl is a thin CLI client for a running lemon-server daemon, plus a
// "serve" subcommand that runs the daemon itself.
package main

import (
	"fmt"
	"os"

	"github.com/lemonade-sdk/lemon-server/cmd/lemonctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
