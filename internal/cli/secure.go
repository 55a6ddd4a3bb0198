package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/edgemetrics/internal/app"
	"github.com/mesh-intelligence/edgemetrics/pkg/types"
)

func newSecureCmd(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secure",
		Short: "Read and write obfuscated values",
		Long: `Values written with "secure set" are obfuscated with the locally stored key.
This hides them from casual inspection only; it is not encryption.`,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Decode and print an obfuscated value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return st.withApp(cmd, func(a *app.App) error {
				raw, err := a.Secure.Load(args[0])
				if err != nil {
					return storeError("secure get", args[0], err)
				}
				return writeJSON(cmd, raw)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <json>",
		Short: "Obfuscate and store a JSON value",
		Long: `Example:
  edgemetrics secure set edgemetrics_sessions '[{"id":1}]'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !json.Valid([]byte(args[1])) {
				return userError("value for %q is not valid JSON", args[0])
			}
			return st.withApp(cmd, func(a *app.App) error {
				if err := a.Secure.Save(args[0], json.RawMessage(args[1])); err != nil {
					return storeError("secure set", args[0], err)
				}
				writeLine(cmd, "set %s", args[0])
				return nil
			})
		},
	})
	return cmd
}

func newMigrateCmd(st *state) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Move a plain JSON value into obfuscated storage",
		Long: `Migrate rewrites a legacy plain JSON value through the obfuscated store.
Sessions are migrated automatically on every start; use --from and --to
for other keys. Running it again is a no-op.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if to == "" {
				to = from
			}
			return st.withApp(cmd, func(a *app.App) error {
				migrated, err := a.Secure.MigrateLegacy(from, to)
				if err != nil {
					return storeError("migrate", from, err)
				}
				if st.flags.jsonMode {
					return writeJSON(cmd, map[string]any{"from": from, "to": to, "migrated": migrated})
				}
				if migrated {
					writeLine(cmd, "migrated %s to %s", from, to)
				} else {
					writeLine(cmd, "nothing to migrate for %s", from)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", types.KeySessions, "legacy key holding plain JSON")
	cmd.Flags().StringVar(&to, "to", "", "target key (default: same as --from)")
	return cmd
}
