package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/workstore/workstore/pkg/storage"
)

func newCheckCommand() *cobra.Command {
	var (
		scope    string
		project  string
		document string
	)

	cmd := &cobra.Command{
		Use:   "check <name> <checksum>",
		Short: "Check whether a stream's checksum tag matches",
		Long: `Check whether the stream named by <name> exists and is tagged with the
given SHA-256 checksum. Prints "match" or "no match".`,
		Example: `  workstore check symbol-index 9f86d081884c7d65...`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := streamKey(scope, project, document, args[0])
			if err != nil {
				return err
			}
			sum, err := storage.ParseChecksum(args[1])
			if err != nil {
				return err
			}

			env, err := setup()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			defer env.close(ctx)

			ref, err := env.manager.GetStore(ctx, env.identity)
			if err != nil {
				return err
			}
			defer ref.Close()

			match, err := ref.ChecksumMatches(ctx, key, sum)
			if err != nil {
				return err
			}
			if match {
				fmt.Fprintln(cmd.OutOrStdout(), "match")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "no match")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "global", "stream scope (global, project, document)")
	cmd.Flags().StringVar(&project, "project", "", "project for project/document scoped streams")
	cmd.Flags().StringVar(&document, "document", "", "document for document scoped streams")

	return cmd
}
