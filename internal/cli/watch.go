package cli

import (
	"fmt"
	"net/url"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/spf13/cobra"
)

// watchFrame mirrors the status frames the server streams for a watched
// session.
type watchFrame struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	State     string `json:"state"`
	HasOutput bool   `json:"has_output"`
	URL       string `json:"url"`
	Error     string `json:"error"`
}

func newWatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <session-id>",
		Short: "Follow a session's status until it reaches a terminal state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID := args[0]
			wsURL := a.serverURL + "/ws/sessions/" + url.PathEscape(sessionID)

			ctx := cmd.Context()
			ws, _, err := websocket.Dial(ctx, wsURL, nil)
			if err != nil {
				return fmt.Errorf("connect to %s: %w", wsURL, err)
			}
			defer ws.Close(websocket.StatusNormalClosure, "done watching")

			s := newStyles()
			out := cmd.OutOrStdout()

			for {
				var frame watchFrame
				if err := wsjson.Read(ctx, ws, &frame); err != nil {
					// The server closes the socket after the terminal
					// frame, so a close here is the normal exit path.
					if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
						return nil
					}
					return fmt.Errorf("read status update: %w", err)
				}

				if frame.Error != "" {
					return fmt.Errorf("session watch failed: %s", frame.Error)
				}

				line := fmt.Sprintf("%s  %s", s.meta.Render(frame.SessionID), s.sessionStatus(frame.Status))
				if frame.HasOutput {
					line += "  " + s.ok.Render("output ready")
				}
				fmt.Fprintln(out, line)

				switch frame.State {
				case "done":
					fmt.Fprintln(out, s.ok.Render("session completed"))
					return nil
				case "errored":
					return fmt.Errorf("session %s ended with an error", frame.SessionID)
				}
			}
		},
	}

	return cmd
}
