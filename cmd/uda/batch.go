package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tjfontaine/uda/internal/assistant"
)

func newBatchCmd(c *cli) *cobra.Command {
	var parallel int
	cmd := &cobra.Command{
		Use:   "batch FILE",
		Short: "Answer one question per line of FILE (- for stdin) and print JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("batch: %w", err)
				}
				defer f.Close()
				in = f
			}
			queries, err := readQueries(in)
			if err != nil {
				return fmt.Errorf("batch: %w", err)
			}

			app, err := c.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			results, err := app.Assistant().Batch(cmd.Context(), queries, parallel)
			if err != nil {
				return err
			}

			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
				}
				if err := writeJSONLine(cmd.OutOrStdout(), newAnswerLine(r.Query, r.Result, r.Err)); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("batch: %d of %d queries failed", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&parallel, "parallel", "p", assistant.DefaultParallel, "maximum concurrent runs")
	return cmd
}

// readQueries returns the non-blank lines of r, trimmed.
func readQueries(r io.Reader) ([]string, error) {
	var queries []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if q := strings.TrimSpace(sc.Text()); q != "" {
			queries = append(queries, q)
		}
	}
	return queries, sc.Err()
}
