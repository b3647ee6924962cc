package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/workstore/workstore/pkg/storage"
)

func newInfoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show where the workspace's store lives",
		Long: `Resolve and print the working folder and database path for the current
workspace, without opening the store.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup()
			if err != nil {
				return err
			}
			defer env.close(cmd.Context())

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "workspace:      %s\n", env.identity.Root)
			fmt.Fprintf(out, "format version: %s\n", env.identity.Version)

			folder, ok := env.backend.ResolveWorkingFolder(env.identity)
			if !ok {
				fmt.Fprintln(out, "working folder: <none> (no-op store)")
				return nil
			}

			fmt.Fprintf(out, "working folder: %s\n", folder)
			fmt.Fprintf(out, "database:       %s\n", filepath.Join(folder, storage.DatabaseFileName))
			if _, err := os.Stat(folder); os.IsNotExist(err) {
				fmt.Fprintln(out, "status:         not created yet")
			} else {
				fmt.Fprintln(out, "status:         exists")
			}
			return nil
		},
	}

	return cmd
}
