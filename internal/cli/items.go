package cli

import (
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/edgemetrics/internal/app"
	"github.com/mesh-intelligence/edgemetrics/pkg/types"
)

type itemOutput struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func newGetCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print a plain stored value",
		Long: `Get prints the raw value stored under key. Obfuscated values print as
stored; use "secure get" to decode them.

Example:
  edgemetrics get edgemetrics_theme`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return st.withApp(cmd, func(a *app.App) error {
				value, ok, err := a.Items.GetItem(args[0])
				if err != nil {
					return storeError("get", args[0], err)
				}
				if !ok {
					return userError("key %q not found", args[0])
				}
				if st.flags.jsonMode {
					return writeJSON(cmd, itemOutput{Key: args[0], Value: value})
				}
				writeLine(cmd, "%s", value)
				return nil
			})
		},
	}
}

func newSetCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a plain value",
		Long: `Set stores value under key as plain text.

Example:
  edgemetrics set edgemetrics_theme light`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return st.withApp(cmd, func(a *app.App) error {
				if err := a.Items.SetItem(args[0], args[1]); err != nil {
					return storeError("set", args[0], err)
				}
				if st.flags.jsonMode {
					return writeJSON(cmd, itemOutput{Key: args[0], Value: args[1]})
				}
				writeLine(cmd, "set %s", args[0])
				return nil
			})
		},
	}
}

func newDeleteCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Remove a stored value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return st.withApp(cmd, func(a *app.App) error {
				if err := a.Items.RemoveItem(args[0]); err != nil {
					return storeError("delete", args[0], err)
				}
				writeLine(cmd, "deleted %s", args[0])
				return nil
			})
		},
	}
}

func newKeysCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List stored keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return st.withApp(cmd, func(a *app.App) error {
				keys, err := a.Items.Keys()
				if err != nil {
					return sysError("list keys: %w", err)
				}
				if st.flags.jsonMode {
					return writeJSON(cmd, keys)
				}
				for _, k := range keys {
					writeLine(cmd, "%s", k)
				}
				return nil
			})
		},
	}
}

// storeError classifies a store failure: bad keys, missing values and quota
// overruns are user errors; everything else is a system error.
func storeError(op, key string, err error) error {
	if key != "" {
		op = op + " " + strconv.Quote(key)
	}
	switch {
	case errors.Is(err, types.ErrInvalidKey),
		errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrQuotaExceeded),
		errors.Is(err, types.ErrSerialization):
		return userError("%s: %w", op, err)
	default:
		return sysError("%s: %w", op, err)
	}
}
