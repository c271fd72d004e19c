// Command irdl checks dialect definitions and verifies IR modules against
// them.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/irdl/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	err := cmd.ExecuteContext(context.Background())
	if err != nil {
		// Commands print their own structured output; cobra usage errors
		// and anything unexpected land here.
		fmt.Fprintln(os.Stderr, "irdl:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
