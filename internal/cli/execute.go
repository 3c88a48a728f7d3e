package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newExecuteCmd(a *app) *cobra.Command {
	var wait bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "execute <owner>/<repo> <number>",
		Short: "Run an execution session for an issue",
		Long:  "Starts a remote agent session that implements the issue on a branch and opens a pull request. By default the command returns immediately; use --wait to block, or 'watch' to follow the session.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, repo, number, err := parseIssueArgs(args)
			if err != nil {
				return err
			}

			if wait {
				fmt.Fprintf(cmd.ErrOrStderr(), "Executing %s/%s#%d, this can take a while...\n", owner, repo, number)
			}

			resp, err := a.api().execute(cmd.Context(), owner, repo, number, wait)
			if err != nil {
				return fmt.Errorf("execute issue: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderExecuteResponse(resp, newStyles()))
			return err
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "Block until the session completes")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}
