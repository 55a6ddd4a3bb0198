package cli

import (
	"errors"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/edgemetrics/internal/app"
	"github.com/mesh-intelligence/edgemetrics/pkg/types"
)

func newBackupCmd(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create, list, prune and restore backups",
		Long: `Backups snapshot sessions, achievements, theme and accent into a record
keyed by its ISO-8601 timestamp. Only the newest backup.retention records
(default 7) are kept.`,
	}
	cmd.AddCommand(newBackupCreateCmd(st))
	cmd.AddCommand(newBackupListCmd(st))
	cmd.AddCommand(newBackupPruneCmd(st))
	cmd.AddCommand(newBackupRestoreCmd(st))
	return cmd
}

func newBackupCreateCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Take a backup now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return st.withApp(cmd, func(a *app.App) error {
				summary, err := a.Backups.Create(cmd.Context())
				if err != nil {
					return storeError("backup create", "", err)
				}
				if st.flags.jsonMode {
					return writeJSON(cmd, summary)
				}
				writeLine(cmd, "created %s (%d sessions)", summary.Key, summary.SessionCount)
				return nil
			})
		},
	}
}

func newBackupListCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return st.withApp(cmd, func(a *app.App) error {
				list, err := a.Backups.List(cmd.Context())
				if err != nil {
					return sysError("list backups: %w", err)
				}
				if st.flags.jsonMode {
					return writeJSON(cmd, list)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				writeRow(tw, "KEY", "TIMESTAMP", "SESSIONS")
				for _, b := range list {
					writeRow(tw, b.Key, b.Timestamp, b.SessionCount)
				}
				return tw.Flush()
			})
		},
	}
}

func newBackupPruneCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete backups beyond the retention count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return st.withApp(cmd, func(a *app.App) error {
				deleted, err := a.Backups.Prune(cmd.Context())
				if deleted == nil {
					deleted = []string{}
				}
				if st.flags.jsonMode {
					if jerr := writeJSON(cmd, deleted); jerr != nil {
						return jerr
					}
				} else {
					for _, k := range deleted {
						writeLine(cmd, "deleted %s", k)
					}
				}
				if err != nil {
					return sysError("prune backups: %w", err)
				}
				return nil
			})
		},
	}
}

func newBackupRestoreCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <key>",
		Short: "Restore sessions, achievements and theme from a backup",
		Long: `Restore overwrites the live sessions, achievements and theme with the
backup's contents. The accent color is not restored. The key may be given
in full or as the bare timestamp.

Example:
  edgemetrics backup restore 2025-03-14T09:26:53.589Z`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if !types.IsBackupKey(key) {
				key = types.BackupKey(key)
			}
			return st.withApp(cmd, func(a *app.App) error {
				err := a.Backups.Restore(cmd.Context(), key)
				switch {
				case errors.Is(err, types.ErrNotFound), errors.Is(err, types.ErrStorageCorrupt):
					return userError("backup not found: %s", key)
				case err != nil:
					return sysError("restore %s: %w", key, err)
				}
				writeLine(cmd, "restored %s", key)
				return nil
			})
		},
	}
}
