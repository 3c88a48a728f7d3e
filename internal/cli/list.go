package cli

import (
	"encoding/json"
	"fmt"

	"github.com/devtriage/issuepilot/internal/github"
	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	var opts github.ListOptions
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list <owner>/<repo>",
		Short: "List open issues in a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, repo, err := parseRepoArg(args[0])
			if err != nil {
				return err
			}

			issues, err := a.api().listIssues(cmd.Context(), owner, repo, opts)
			if err != nil {
				return fmt.Errorf("list issues: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(issues)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderIssueList(owner, repo, issues, newStyles()))
			return err
		},
	}

	cmd.Flags().StringVar(&opts.Labels, "labels", "", "Comma-separated label filter")
	cmd.Flags().StringVar(&opts.State, "state", "open", "Issue state (open, closed, all)")
	cmd.Flags().StringVar(&opts.Assignee, "assignee", "", "Assignee filter")
	cmd.Flags().IntVar(&opts.PerPage, "limit", 30, "Maximum number of issues to fetch")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}
