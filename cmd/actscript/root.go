package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/actscript/internal/cli"
)

var rootCmd = &cobra.Command{
	Use:   "actscript",
	Short: "actscript compiles and plays plain-text LLM dialogue scripts",
	Long: `actscript turns plain-text dialogue scripts into acts of role-tagged
messages, fills their placeholders and keeps the conversation history of
each session.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("dir", "", "Session directory (overrides store.dir)")
	rootCmd.PersistentFlags().String("scripts", "", "Script library directory (overrides scripts)")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ./actscript.yaml when present)")
	rootCmd.PersistentFlags().Bool("debug", false, "Log debug output to stderr")
	rootCmd.PersistentFlags().String("log-file", "", "Write a rotating JSON log to this file")
}

// openRuntime builds the runtime from the global flags.
func openRuntime(cmd *cobra.Command, metrics bool) (*cli.Runtime, error) {
	flags := cmd.Flags()
	dir, _ := flags.GetString("dir")
	scripts, _ := flags.GetString("scripts")
	configPath, _ := flags.GetString("config")
	debug, _ := flags.GetBool("debug")
	logFile, _ := flags.GetString("log-file")

	return cli.Open(cli.Options{
		ConfigPath: configPath,
		SessionDir: dir,
		ScriptsDir: scripts,
		Debug:      debug,
		LogFile:    logFile,
		Metrics:    metrics,
	})
}
