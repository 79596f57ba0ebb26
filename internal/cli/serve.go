package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rcliao/folio/internal/server"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the effective document read-only over HTTP",
		Long:  "Serve /data.json and a small JSON API. The document reloads whenever another folio session saves.",
		Args:  cobra.NoArgs,
		Run:   runServe,
	}

	cmd.Flags().String("addr", ":8080", "Listen address")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, closeFn := mustSession(cmd)
	defer closeFn()

	srv := server.New(server.Config{Session: sess, Addr: cfg.Addr, Logger: logger})
	if err := srv.Serve(ctx); err != nil && err != context.Canceled {
		exitErr("serve", err)
	}
}
