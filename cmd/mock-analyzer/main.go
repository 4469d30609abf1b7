package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	obs "interview-monitor/internal/infrastructure/observability"
	"interview-monitor/internal/mockanalyzer"
)

func main() {
	addr := pflag.String("addr", ":5002", "listen address")
	alertEvery := pflag.Int("alert-every", 30, "emit a synthetic alert every N frames (0 disables)")
	logLevel := pflag.String("log-level", "info", "log level")
	pretty := pflag.Bool("pretty", false, "human-readable logs")
	pflag.Parse()

	logger := obs.NewLogger(*logLevel, *pretty)
	analyzer := mockanalyzer.New(mockanalyzer.Options{AlertEvery: *alertEvery}, logger)
	go func() {
		if err := analyzer.Serve(); err != nil {
			logger.Error().Err(err).Msg("socket.io loop stopped")
		}
	}()

	// h2c lets health probes use prior-knowledge HTTP/2; socket.io stays on HTTP/1.1.
	srv := &http.Server{
		Addr:              *addr,
		Handler:           h2c.NewHandler(analyzer.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", *addr).Int("alertEvery", *alertEvery).Msg("starting mock-analyzer")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server error")
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
	}
	_ = analyzer.Close()
	logger.Info().Msg("mock-analyzer stopped")
}
