package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/workstore/workstore/pkg/storage"
)

func newGetCommand() *cobra.Command {
	var (
		scope    string
		project  string
		document string
		verify   string
		outFile  string
	)

	cmd := &cobra.Command{
		Use:   "get <name>",
		Short: "Read a named stream from the workspace store",
		Long: `Read a named stream from the workspace store and write it to stdout
or to --out.

With --verify the stream is only returned when its stored checksum tag
matches; a stale stream reads as absent.`,
		Example: `  # Read a workspace-global stream
  workstore get symbol-index --out index.bin

  # Read a per-project stream only if it is still current
  workstore get --scope project --project api --verify <hex-checksum> diagnostics`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := streamKey(scope, project, document, args[0])
			if err != nil {
				return err
			}

			var checksum *storage.Checksum
			if verify != "" {
				sum, err := storage.ParseChecksum(verify)
				if err != nil {
					return err
				}
				checksum = &sum
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

			reader, err := ref.ReadStream(ctx, key, checksum)
			if err != nil {
				return err
			}
			if reader == nil {
				return fmt.Errorf("stream %s not found", key)
			}
			defer reader.Close()

			out := cmd.OutOrStdout()
			if outFile != "" {
				f, err := os.Create(outFile)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				out = f
			}

			if _, err := io.Copy(out, reader); err != nil {
				return fmt.Errorf("failed to write stream: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "global", "stream scope (global, project, document)")
	cmd.Flags().StringVar(&project, "project", "", "project for project/document scoped streams")
	cmd.Flags().StringVar(&document, "document", "", "document for document scoped streams")
	cmd.Flags().StringVar(&verify, "verify", "", "expected checksum (hex); mismatches read as absent")
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	return cmd
}
