package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/soocke/herbscan/bridge"
	"github.com/soocke/herbscan/debug"
)

func newServeCommand(c *cli) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP/WebSocket bridge for the browser dashboard",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				c.cfg.ListenAddr = addr
			}
			if c.cfg.Debug {
				debug.StartGoroutineLogger(5*time.Second, c.logger)
				debug.StartMemLogger(5*time.Second, c.logger)
			}
			host, err := bridge.NewHost(c.cfg, c.cfgPath, c.logger)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return host.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "listen", "", "listen address (overrides listen_addr)")
	return cmd
}
