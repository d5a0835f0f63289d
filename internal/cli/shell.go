package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/google/shlex"
	"github.com/spf13/cobra"
)

const shellPrompt = "eggbot> "

func (a *App) newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Run device commands interactively over one connection",
		Long: `Read device commands line by line, e.g. "status" or "tables get speak",
and run them over a single serial connection. Quoting follows shell rules.
"exit" or end of input leaves the shell.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.device(); err != nil {
				return err
			}

			scanner := bufio.NewScanner(a.stdin)
			for {
				fmt.Fprint(a.stdout, shellPrompt)
				if !scanner.Scan() {
					fmt.Fprintln(a.stdout)
					return scanner.Err()
				}
				if err := cmd.Context().Err(); err != nil {
					return err
				}

				line := strings.TrimSpace(scanner.Text())
				if line == "" || strings.HasPrefix(line, "#") {
					continue
				}
				if line == "exit" || line == "quit" {
					return nil
				}

				words, err := shlex.Split(line)
				if err != nil {
					fmt.Fprintf(a.stdout, "error: %v\n", err)
					continue
				}
				if err := a.runShellLine(cmd, words); err != nil {
					fmt.Fprintf(a.stdout, "error: %v\n", err)
				}
			}
		},
	}
}

// runShellLine runs one line against a fresh device command tree so flag
// values never leak between lines.
func (a *App) runShellLine(parent *cobra.Command, words []string) error {
	root := &cobra.Command{
		Use:           "device",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(a.deviceCommands()...)
	root.SetArgs(words)
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stdout)

	return root.ExecuteContext(parent.Context())
}
