package cli

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/edgemetrics/internal/app"
	"github.com/mesh-intelligence/edgemetrics/internal/sessions"
)

func newSessionsCmd(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage journal trading sessions",
	}
	cmd.AddCommand(newSessionsListCmd(st))
	cmd.AddCommand(&cobra.Command{
		Use:   "add <json>",
		Short: "Append a session",
		Long: `Add validates and appends a session object. "instrument" (letters, digits,
"-", "/", "."; at most 20) and "outcome" (win, loss, breakeven, no-trade) are
required; "pnl" must be a number within +/-1,000,000; "notes" is trimmed,
limited to 5000 characters and HTML-escaped. A session without an "id" gets
a UUIDv7.

Example:
  edgemetrics sessions add '{"instrument":"ES","outcome":"win","pnl":125.5}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return st.withApp(cmd, func(a *app.App) error {
				entry, err := a.Sessions.Add(json.RawMessage(args[0]))
				if errors.Is(err, sessions.ErrInvalidSession) {
					return userError("%w", err)
				}
				if err != nil {
					return storeError("sessions add", "", err)
				}
				return writeJSON(cmd, entry)
			})
		},
	})
	return cmd
}

func newSessionsListCmd(st *state) *cobra.Command {
	var page, pageSize int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print sessions",
		Long: `List prints every session in insertion order. With --page it prints one
page of --page-size sessions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if page < 0 {
				return userError("--page must not be negative")
			}
			return st.withApp(cmd, func(a *app.App) error {
				list, err := a.Sessions.List()
				if err != nil {
					return sysError("list sessions: %w", err)
				}
				if page == 0 {
					if st.flags.jsonMode {
						return writeJSON(cmd, list)
					}
					for _, s := range list {
						writeLine(cmd, "%s", s)
					}
					return nil
				}

				p := sessions.Paginate(list, page, pageSize)
				if st.flags.jsonMode {
					return writeJSON(cmd, p)
				}
				for _, s := range p.Items {
					writeLine(cmd, "%s", s)
				}
				writeLine(cmd, "page %d of %d (%d sessions)", p.CurrentPage, p.TotalPages, p.TotalItems)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "page number to print, starting at 1 (0 prints all)")
	cmd.Flags().IntVar(&pageSize, "page-size", sessions.DefaultPageSize, "sessions per page")
	return cmd
}
