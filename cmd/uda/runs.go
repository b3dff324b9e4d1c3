package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tjfontaine/uda/internal/core/domain"
	"github.com/tjfontaine/uda/internal/storage"
	"github.com/tjfontaine/uda/internal/storage/sqlite"
)

func newRunsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the run ledger",
	}

	var (
		limit    int
		offset   int
		decision string
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "Print recorded runs as JSON lines, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d := domain.Decision(decision)
			if d != "" && !d.Valid() {
				return fmt.Errorf("invalid --decision %q: must be answer or dlq", decision)
			}
			store, err := c.openLedger()
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), storage.ListOptions{
				Limit:    limit,
				Offset:   offset,
				Decision: d,
			})
			if err != nil {
				return err
			}
			for _, run := range runs {
				if err := writeJSONLine(cmd.OutOrStdout(), run); err != nil {
					return err
				}
			}
			return nil
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", storage.DefaultListLimit, "maximum runs to print")
	list.Flags().IntVar(&offset, "offset", 0, "runs to skip")
	list.Flags().StringVar(&decision, "decision", "", "only runs with this decision (answer or dlq)")

	show := &cobra.Command{
		Use:   "show ID",
		Short: "Print one run, including its audit trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openLedger()
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(run)
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}

// openLedger opens the persistent run ledger. The memory store does not
// outlive the process that wrote it, so there is nothing to inspect.
func (c *cli) openLedger() (storage.RunStore, error) {
	if c.cfg.Storage.Type == "memory" {
		return nil, fmt.Errorf("runs: storage.type is memory; no ledger persists between processes")
	}
	path := c.cfg.Storage.SQLitePath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("runs: create storage dir: %w", err)
	}
	store, err := sqlite.New(path)
	if err != nil {
		return nil, fmt.Errorf("runs: %w", err)
	}
	return store, nil
}
