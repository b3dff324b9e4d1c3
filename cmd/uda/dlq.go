package main

import (
	"github.com/spf13/cobra"

	"github.com/tjfontaine/uda/internal/dlq"
)

func newDLQCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dlq",
		Short: "Inspect the dead-letter queue",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "Print escalated items as JSON lines, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := dlq.Open(c.cfg.Storage.DLQPath())
			if err != nil {
				return err
			}
			defer q.Close()

			items, err := dlq.Collect(cmd.Context(), q, limit)
			if err != nil {
				return err
			}
			for _, item := range items {
				if err := writeJSONLine(cmd.OutOrStdout(), item); err != nil {
					return err
				}
			}
			return nil
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 0, "maximum items to print (0 for all)")

	cmd.AddCommand(list)
	return cmd
}
