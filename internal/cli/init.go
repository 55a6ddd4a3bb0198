package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newInitCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize edgemetrics storage",
		Long: "Create the configuration and data directories, write config.yaml if missing,\n" +
			"and provision the obfuscation key.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, st)
		},
	}
}

func runInit(cmd *cobra.Command, st *state) error {
	dataDir, err := st.dataDir()
	if err != nil {
		return sysError("resolve data directory: %w", err)
	}

	configPath := filepath.Join(st.configDir, configFileExt)

	a, err := st.open(cmd.Context(), nil)
	if err != nil {
		return err
	}
	if err := a.Close(); err != nil {
		return sysError("finalize storage: %w", err)
	}

	if st.flags.jsonMode {
		return writeJSON(cmd, map[string]string{"config_dir": st.configDir, "data_dir": dataDir})
	}
	fmt.Fprintln(cmd.OutOrStdout(), "edgemetrics initialized successfully")
	fmt.Fprintf(cmd.OutOrStdout(), "config: %s\ndata:   %s\n", configPath, dataDir)
	return nil
}
