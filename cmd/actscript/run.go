package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/aretw0/actscript/internal/cli"
	"github.com/aretw0/actscript/pkg/runner"
)

var runCmd = &cobra.Command{
	Use:   "run <file|script-id>",
	Short: "Play a script interactively",
	Long: `Plays a script act by act. Missing placeholder values are asked for,
the messages of each act are printed and your reply is recorded under the
answer role. With --session the state is persisted after every step and a
later run with the same ID resumes it. Type 'exit' or press Ctrl+D to stop.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd, false)
		if err != nil {
			return err
		}
		defer rt.Close()

		flags := cmd.Flags()
		sessionID, _ := flags.GetString("session")
		pairs, _ := flags.GetStringArray("context")
		answerRole, _ := flags.GetString("answer-role")
		fresh, _ := flags.GetBool("fresh")
		jsonMode, _ := flags.GetBool("json")
		noReplies, _ := flags.GetBool("no-replies")

		actCtx, err := cli.ParseContext(pairs)
		if err != nil {
			return err
		}

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		return cli.RunSession(sigCtx, rt, cli.RunOptions{
			Script:     args[0],
			SessionID:  sessionID,
			Context:    actCtx,
			AnswerRole: answerRole,
			Fresh:      fresh,
			JSON:       jsonMode,
			NoReplies:  noReplies,
			Input:      cmd.InOrStdin(),
			Output:     cmd.OutOrStdout(),
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("session", "s", "", "Session ID to persist and resume")
	runCmd.Flags().StringArrayP("context", "c", nil, "Context value as key=value (repeatable)")
	runCmd.Flags().String("answer-role", runner.DefaultAnswerRole, "Role replies are recorded under")
	runCmd.Flags().Bool("fresh", false, "Discard the stored session first")
	runCmd.Flags().Bool("json", false, "Speak JSON lines on stdin/stdout")
	runCmd.Flags().Bool("no-replies", false, "Play the acts without asking for replies")
}
