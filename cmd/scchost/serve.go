package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TheLazyLemur/scchost/internal/bridge"
	"github.com/TheLazyLemur/scchost/internal/store"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(o *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the host bridge over HTTP and websocket",
		Long: `Serve the host bridge. An editor connects to /ws or posts to /api/command
to run commands against one long-lived provider session. Every route except
/healthz needs the configured bridge token, and the bridge refuses all
requests when no token is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, o, addr, nil)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides bridge.addr)")
	return cmd
}

// serve runs the bridge until ctx is done. ready, when set, receives the
// bound address once the listener is up.
func serve(ctx context.Context, o *rootOptions, addr string, ready chan<- string) error {
	hub := bridge.NewHub()
	opts := *o
	opts.wrapLog = func(h slog.Handler) slog.Handler {
		return bridge.NewBroadcastHandler(hub, h)
	}

	a, err := newApp(&opts)
	if err != nil {
		return err
	}
	defer a.Close()

	if addr == "" {
		addr = a.cfg.Bridge.Addr
	}
	if a.cfg.Bridge.Token == "" {
		slog.Warn("bridge token not set, all requests will be refused")
	}

	go hub.Run(ctx)

	if f, ok := a.store.(*store.File); ok {
		go func() {
			err := f.Watch(ctx, func() {
				slog.Info("binding file changed on disk, reloaded", "path", f.Path())
			})
			if err != nil {
				slog.Warn("watching binding file", "path", f.Path(), "error", err)
			}
		}()
	}

	srv := bridge.NewServer(hub, a.dispatcher, a.log, a.registry, a.cfg.Bridge.Token)
	// Runs before a.Close so no command is inside the provider at unload.
	defer srv.Close()
	httpSrv := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", addr)
	}
	slog.Info("bridge listening", "addr", ln.Addr().String(), "pid", os.Getpid())
	if ready != nil {
		ready <- ln.Addr().String()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "serving bridge")
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutting down bridge")
	}
	return nil
}
