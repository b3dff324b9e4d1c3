package main

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tjfontaine/uda/internal/assistant"
	"github.com/tjfontaine/uda/internal/core/domain"
)

// answerLine is one answer as printed by ask and batch.
type answerLine struct {
	Query string `json:"query,omitempty"`
	RunID string `json:"run_id,omitempty"`
	*domain.AnswerPayload
	Error string `json:"error,omitempty"`
}

func newAnswerLine(query string, res assistant.Result, err error) answerLine {
	if err != nil {
		return answerLine{Query: query, Error: err.Error()}
	}
	p := res.Payload
	return answerLine{Query: query, RunID: res.RunID, AnswerPayload: &p}
}

func writeJSONLine(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

func newAskCmd(c *cli) *cobra.Command {
	var backend string
	cmd := &cobra.Command{
		Use:   "ask QUESTION...",
		Short: "Answer one question and print the JSON payload",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if backend != "" {
				c.cfg.Engine.Backend = backend
			}
			app, err := c.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			res, err := app.Assistant().Ask(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			line := newAnswerLine("", res, nil)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(line)
		},
	}
	cmd.Flags().StringVar(&backend, "backend", "", "engine backend: auto, graph or sequential")
	return cmd
}
