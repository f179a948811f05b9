package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/actscript"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of actscript",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "actscript version %s\n", strings.TrimSpace(actscript.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
