package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/actscript/internal/cli"
)

var graphCmd = &cobra.Command{
	Use:   "graph <file|script-id>",
	Short: "Print a Mermaid chart of the act order",
	Long:  `Prints the act order as a Mermaid flowchart. With --session the acts already played are highlighted.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd, false)
		if err != nil {
			return err
		}
		defer rt.Close()

		sessionID, _ := cmd.Flags().GetString("session")
		return cli.Graph(cmd.Context(), rt, args[0], sessionID, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("session", "s", "", "Highlight the progress of this session")
}
