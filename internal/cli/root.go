// Package cli implements the issuepilot command line client. Every command
// is a thin HTTP client of a running issuepilot server.
package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func Execute() error {
	return newRootCmd().Execute()
}

type app struct {
	serverURL string
}

func (a *app) api() *apiClient {
	return newAPIClient(strings.TrimRight(a.serverURL, "/"))
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "issuepilot",
		Short:         "Scope and execute GitHub issues through remote coding-agent sessions",
		Long:          "issuepilot talks to an issuepilot server to list GitHub issues, kick off scoping and execution sessions on a remote coding agent, and inspect session records.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVar(&a.serverURL, "url", defaultServerURL(), "issuepilot server URL")

	rootCmd.AddCommand(
		newListCmd(a),
		newScopeCmd(a),
		newExecuteCmd(a),
		newSessionsCmd(a),
		newWatchCmd(a),
	)

	return rootCmd
}

func defaultServerURL() string {
	if url := os.Getenv("ISSUEPILOT_URL"); url != "" {
		return url
	}
	return "http://localhost:8080"
}

// parseIssueArgs accepts either "owner/repo 42" or "owner/repo#42".
func parseIssueArgs(args []string) (owner, repo string, number int, err error) {
	target := args[0]
	numArg := ""
	if len(args) > 1 {
		numArg = args[1]
	} else if i := strings.LastIndex(target, "#"); i > 0 {
		numArg = target[i+1:]
		target = target[:i]
	}

	parts := strings.SplitN(target, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", 0, fmt.Errorf("expected owner/repo, got %q", target)
	}
	if numArg == "" {
		return "", "", 0, fmt.Errorf("missing issue number")
	}

	number, err = strconv.Atoi(numArg)
	if err != nil || number <= 0 {
		return "", "", 0, fmt.Errorf("invalid issue number %q", numArg)
	}

	return parts[0], parts[1], number, nil
}

// parseRepoArg splits an "owner/repo" argument.
func parseRepoArg(arg string) (owner, repo string, err error) {
	parts := strings.SplitN(arg, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("expected owner/repo, got %q", arg)
	}
	return parts[0], parts[1], nil
}
