package commands

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newResetCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the workspace's working folder",
		Long: `Shut down the cached store and delete the workspace's working folder,
forcing the next access to build a fresh database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup()
			if err != nil {
				return err
			}
			defer env.close(cmd.Context())

			folder, ok := env.backend.ResolveWorkingFolder(env.identity)
			if !ok {
				log.Info().Msg("Workspace has no working folder, nothing to reset")
				return nil
			}

			if !force {
				return fmt.Errorf("refusing to delete %s without --force", folder)
			}

			env.manager.Shutdown()
			if err := os.RemoveAll(folder); err != nil {
				return fmt.Errorf("failed to delete working folder: %w", err)
			}

			log.Info().Str("folder", folder).Msg("Working folder deleted")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "actually delete the working folder")

	return cmd
}
