package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/actscript/internal/cli"
	httpAdapter "github.com/aretw0/actscript/pkg/adapters/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Exposes scripts and sessions as a JSON API over HTTP, with a live WebSocket stream per session.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd, true)
		if err != nil {
			return err
		}
		defer rt.Close()

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = rt.Config.HTTP.Addr
		}

		handler, err := httpAdapter.NewHandler(rt.Engine, rt.Sessions,
			httpAdapter.WithMetrics(rt.Metrics),
			httpAdapter.WithLogger(rt.Logger),
		)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			fmt.Fprintf(cmd.OutOrStdout(), "Starting actscript server on %s\n", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case <-sigCtx.Done():
			fmt.Fprintf(cmd.OutOrStdout(), "\nStart shutdown... Signal: %v\n", sigCtx.Signal())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				_ = srv.Close()
				return fmt.Errorf("graceful shutdown did not complete in %v: %w", 5*time.Second, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "actscript server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (overrides http.addr)")
}
