// Command veld compiles .veld components to Go source.
package main

import (
	"fmt"
	"os"

	"github.com/veld-ui/veld/cmd/veld/cmd"
)

func main() {
	root := cmd.NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cmd.GetExitCode(err))
	}
}
