// Command uda runs the Universal Data Assistant: an HTTP API, an MCP stdio
// server, and one-shot commands for asking, ingesting and inspecting queues.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tjfontaine/uda/internal/pkg/config"
	"github.com/tjfontaine/uda/internal/runtime"
	"github.com/tjfontaine/uda/internal/telemetry"
)

// version is set at build time via -ldflags.
var version = "dev"

// cli holds what every subcommand needs once flags are parsed.
type cli struct {
	configPath string
	logLevel   string

	cfg      *config.Config
	logger   *slog.Logger
	shutdown func(context.Context) error
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "uda",
		Short: "Universal Data Assistant: cited, uncertainty-aware answers with escalation",
		Long: "uda answers questions from an indexed corpus through a fixed stage pipeline\n" +
			"(router, retriever, ranker, answerer, uncertainty, validator, auditor, supervisor)\n" +
			"and escalates ungrounded answers to a dead-letter queue for human review.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if c.shutdown == nil {
				return nil
			}
			return c.shutdown(context.Background())
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", config.DefaultPath, "path to the YAML config file")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(c),
		newAskCmd(c),
		newBatchCmd(c),
		newIngestCmd(c),
		newDLQCmd(c),
		newRunsCmd(c),
		newMCPCmd(c),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Logging.Level = c.logLevel
	}
	level, err := config.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}

	// stdout carries command output and the MCP protocol; logs go to stderr.
	c.logger = slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(c.logger)
	c.cfg = cfg

	c.shutdown, err = telemetry.InitTracer(telemetry.Config{
		Enabled: cfg.Telemetry.Enabled,
		Writer:  cmd.ErrOrStderr(),
	}, c.logger)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	return nil
}

func (c *cli) openApp(ctx context.Context, opts ...runtime.Option) (*runtime.App, error) {
	base := []runtime.Option{runtime.WithConfig(c.cfg), runtime.WithLogger(c.logger)}
	return runtime.New(ctx, append(base, opts...)...)
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
