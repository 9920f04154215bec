package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/nasacl/internal/sqlite"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize nasacl storage",
		Long:  "Create the configuration and data directories, then initialize the store.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.storeConfig()
			if err != nil {
				return sysError(err)
			}
			store := sqlite.NewBackend(a.loggerFactory)
			if err := store.Attach(cfg); err != nil {
				return classify(fmt.Errorf("initialize storage: %w", err))
			}
			if err := store.Detach(); err != nil {
				return sysError(fmt.Errorf("finalize storage: %w", err))
			}
			return a.reportDone(cmd, "nasacl initialized at "+cfg.DataDir)
		},
	}
}
