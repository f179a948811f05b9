package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/actscript/internal/cli"
)

var compileCmd = &cobra.Command{
	Use:   "compile <file|script-id>",
	Short: "Print the compiled scenario of a script",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd, false)
		if err != nil {
			return err
		}
		defer rt.Close()

		format, _ := cmd.Flags().GetString("format")
		keys, _ := cmd.Flags().GetBool("keys")
		return cli.Compile(rt, args[0], format, keys, cmd.OutOrStdout())
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <file|script-id>",
	Short: "Check a script for empty acts and ambiguous placeholders",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd, false)
		if err != nil {
			return err
		}
		defer rt.Close()
		return cli.Validate(rt, args[0], cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(validateCmd)
	compileCmd.Flags().String("format", cli.FormatJSON, "Output format: json or yaml")
	compileCmd.Flags().Bool("keys", false, "Include the resolved message keys")
}
