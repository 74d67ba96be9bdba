// Command ringserver runs the dispatcher and its pool of sub-servers.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ringserver",
	Short: "Authoritative session server for the hide-and-survive asymmetric game",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
