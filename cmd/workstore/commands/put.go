package commands

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/workstore/workstore/pkg/storage"
)

func newPutCommand() *cobra.Command {
	var (
		scope    string
		project  string
		document string
		tag      bool
	)

	cmd := &cobra.Command{
		Use:   "put <name> [file]",
		Short: "Write a named stream to the workspace store",
		Long: `Write a named stream to the workspace store.

The payload is read from the given file, or from stdin when no file is
given. With --tag the stream is tagged with its SHA-256 checksum so later
reads can be validated cheaply.`,
		Example: `  # Store a file as a workspace-global stream
  workstore put symbol-index index.bin

  # Store a per-project stream from stdin, tagged with its checksum
  cat diagnostics.pb | workstore put --scope project --project api --tag diagnostics`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := streamKey(scope, project, document, args[0])
			if err != nil {
				return err
			}

			var payload []byte
			if len(args) == 2 {
				payload, err = os.ReadFile(args[1])
			} else {
				payload, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("failed to read payload: %w", err)
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

			var checksum *storage.Checksum
			if tag {
				sum := storage.ChecksumOf(payload)
				checksum = &sum
			}

			persisted, err := ref.WriteStream(ctx, key, bytes.NewReader(payload), checksum)
			if err != nil {
				return err
			}
			if !persisted {
				log.Warn().Str("stream", key.String()).Msg("Write was not persisted (no backing store)")
				return nil
			}

			log.Info().Str("stream", key.String()).Int("bytes", len(payload)).Msg("Stream written")
			if checksum != nil {
				fmt.Println(checksum.String())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "global", "stream scope (global, project, document)")
	cmd.Flags().StringVar(&project, "project", "", "project for project/document scoped streams")
	cmd.Flags().StringVar(&document, "document", "", "document for document scoped streams")
	cmd.Flags().BoolVar(&tag, "tag", false, "tag the stream with its SHA-256 checksum")

	return cmd
}
