package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newScopeCmd(a *app) *cobra.Command {
	var wait bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "scope <owner>/<repo> <number>",
		Short: "Run a scoping session for an issue",
		Long:  "Starts a remote agent session that analyzes the issue and produces a summary, an implementation plan, a risk level, an effort estimate, and a confidence score.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, repo, number, err := parseIssueArgs(args)
			if err != nil {
				return err
			}

			if wait {
				fmt.Fprintf(cmd.ErrOrStderr(), "Scoping %s/%s#%d, this can take a few minutes...\n", owner, repo, number)
			}

			resp, err := a.api().scope(cmd.Context(), owner, repo, number, wait)
			if err != nil {
				return fmt.Errorf("scope issue: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderScopeResponse(resp, newStyles()))
			return err
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", true, "Block until the session completes")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}
