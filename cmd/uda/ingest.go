package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tjfontaine/uda/internal/corpus"
	"github.com/tjfontaine/uda/internal/ingest"
)

// defaultCorpusFile is written when neither --out nor retrieval.corpus_file is set.
const defaultCorpusFile = "data/corpus.yaml"

func newIngestCmd(c *cli) *cobra.Command {
	var (
		out    string
		maxLen int
		tags   []string
	)
	cmd := &cobra.Command{
		Use:   "ingest FILE...",
		Short: "Chunk text files and merge them into the corpus file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = c.cfg.Retrieval.CorpusFile
			}
			if out == "" {
				out = defaultCorpusFile
			}
			if len(tags) == 0 {
				tags = c.cfg.Security.DefaultTags
			}

			blobs := make([][]byte, 0, len(args))
			uris := make([]string, 0, len(args))
			for _, path := range args {
				blob, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("ingest: %w", err)
				}
				abs, err := filepath.Abs(path)
				if err != nil {
					return fmt.Errorf("ingest: %w", err)
				}
				blobs = append(blobs, blob)
				uris = append(uris, "file://"+filepath.ToSlash(abs))
			}

			docs, err := ingest.BatchIngest(blobs, uris)
			if err != nil {
				return err
			}
			added := ingest.Evidence(docs, maxLen, tags)

			existing, err := corpus.LoadFile(out)
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			merged := corpus.Merge(corpus.WithoutSources(existing, uris), added)
			if err := corpus.SaveFile(out, merged); err != nil {
				return err
			}

			c.logger.Info("corpus updated",
				"path", out,
				"documents", len(docs),
				"chunks", len(added),
				"total", len(merged),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "ingested %d chunks from %d files into %s (%d total)\n",
				len(added), len(docs), out, len(merged))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "corpus file to update (default retrieval.corpus_file, then "+defaultCorpusFile+")")
	cmd.Flags().IntVar(&maxLen, "max-len", ingest.DefaultChunkSize, "maximum chunk length in characters")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "security tags for the new chunks (default security.default_tags)")
	return cmd
}
