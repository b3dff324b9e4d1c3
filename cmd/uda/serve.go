package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
)

func newServeCmd(c *cli) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API (/health, /chat, /dlq, /runs)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := c.openApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			return app.ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.host and server.port")
	cmd.PreRunE = func(cmd *cobra.Command, _ []string) error {
		if addr == "" {
			return nil
		}
		return applyAddr(c, addr)
	}
	return cmd
}

// applyAddr overrides the configured listen address with host:port.
func applyAddr(c *cli, addr string) error {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid --addr %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return fmt.Errorf("invalid --addr %q: bad port", addr)
	}
	if host != "" {
		c.cfg.Server.Host = host
	}
	c.cfg.Server.Port = port
	return nil
}
