package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jaminalder/tictactoe-history/internal/app"
	"github.com/jaminalder/tictactoe-history/internal/config"
	"github.com/jaminalder/tictactoe-history/internal/obslog"
	"github.com/jaminalder/tictactoe-history/internal/term"
	"github.com/jaminalder/tictactoe-history/internal/web"
)

func main() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yml"
	}
	conf, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := obslog.New(conf.LogLevel, conf.LogFormat)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, conf, logger); err != nil {
		logger.Error("run failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, conf *config.Config, logger *zap.Logger) error {
	svc := app.NewService(logger, app.WithMaxGames(conf.MaxGames))

	if conf.Mode == config.ModeTerm {
		loop := term.NewLoop(svc, term.NewRenderer(os.Stdout), os.Stdout, logger)
		return loop.Run(ctx, os.Stdin)
	}

	ln, err := net.Listen("tcp", conf.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	srv := &http.Server{
		Handler:           web.NewServer(svc, logger, web.WithHeartbeat(conf.HeartbeatInterval)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return serve(ctx, srv, ln, logger)
}

// serve runs srv on ln until ctx is done. Request contexts derive from ctx,
// so open event streams end as soon as shutdown starts.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, logger *zap.Logger) error {
	srv.BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
