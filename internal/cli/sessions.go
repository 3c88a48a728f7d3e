package cli

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

func newSessionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect recorded agent sessions",
	}

	cmd.AddCommand(
		newSessionsListCmd(a),
		newSessionsGetCmd(a),
	)

	return cmd
}

func newSessionsListCmd(a *app) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent session records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := a.api().listSessions(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(list.Sessions)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderSessionList(list, newStyles()))
			return err
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of sessions to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func newSessionsGetCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "get <session-id>",
		Short: "Show a session record with its current remote state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			detail, err := a.api().getSession(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("get session: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(detail)
			}

			s := newStyles()
			lines := make([]string, 0, 4)
			if detail.Record != nil {
				lines = append(lines, renderSessionRecord(detail.Record, s))
			}
			if detail.Remote != nil {
				remote := []string{
					s.header.Render("remote state"),
					fmt.Sprintf("%s  %s", s.header.Render("status:"), s.sessionStatus(detail.Remote.Status)),
				}
				if detail.Remote.URL != "" {
					remote = append(remote, s.meta.Render("url: "+detail.Remote.URL))
				}
				if detail.Remote.HasOutput() {
					remote = append(remote, s.ok.Render("structured output available"))
				}
				lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, remote...)))
			}
			if len(lines) == 0 {
				lines = append(lines, s.empty.Render("No session data."))
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), lipgloss.JoinVertical(lipgloss.Left, lines...))
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}
