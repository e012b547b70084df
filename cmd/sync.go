package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xiaoyuanzhu-com/sessionhub/syncer"
)

// NewSyncCommand creates the sync command group
func NewSyncCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one-shot passes against the shared sync folder",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "export",
		Short: "Write every local session to the shared folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openSyncApp()
			if err != nil {
				return err
			}
			defer a.Close()

			result := a.engine.ExportAll(context.Background())
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported: %d\nfailed:   %d\n", result.Exported, result.Failed)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "import",
		Short: "Merge documents from the shared folder into the local store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openSyncApp()
			if err != nil {
				return err
			}
			defer a.Close()

			result := a.engine.ImportAll(context.Background())
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported: %d\nupdated:  %d\nskipped:  %d\nfailed:   %d\n",
				result.Imported, result.Updated, result.Skipped, result.Failed)
			return nil
		},
	})

	return cmd
}

func openSyncApp() (*app, error) {
	a, err := openApp()
	if err != nil {
		return nil, err
	}
	if !a.engine.Enabled() {
		a.Close()
		return nil, fmt.Errorf("%w: set sync.enabled and sync.dir (or SYNC_ENABLED and SYNC_DIR)", syncer.ErrDisabled)
	}
	return a, nil
}
