package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"interview-monitor/internal/adapters/encoder/jpeg"
	"interview-monitor/internal/adapters/socketio"
	"interview-monitor/internal/adapters/sources/filesim"
	"interview-monitor/internal/adapters/storage/file"
	"interview-monitor/internal/adapters/storage/memory"
	"interview-monitor/internal/domain"
	cfgpkg "interview-monitor/internal/infrastructure/config"
	httpapi "interview-monitor/internal/infrastructure/httpapi"
	obs "interview-monitor/internal/infrastructure/observability"
	"interview-monitor/internal/usecase"
)

func main() {
	cfg := cfgpkg.FromEnv()

	pflag.StringVar(&cfg.Addr, "addr", cfg.Addr, "operator console listen address")
	pflag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	pflag.StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "settings file (YAML); empty keeps settings in memory")
	pflag.StringSliceVar(&cfg.Sources, "source", cfg.Sources, "video source as name=dir (repeatable)")
	pflag.DurationVar(&cfg.ReconnectDelay, "reconnect-delay", cfg.ReconnectDelay, "delay between reconnection attempts")
	pflag.IntVar(&cfg.EngineIO, "engine-io", cfg.EngineIO, "Engine.IO revision spoken to the backend (3 or 4)")
	pflag.BoolVar(&cfg.DevMode, "dev", cfg.DevMode, "dev mode: pretty logs, no browser")
	pflag.BoolVar(&cfg.InsecureTLS, "insecure-tls", cfg.InsecureTLS, "skip TLS verification towards the backend")
	serverURL := pflag.String("server-url", "", "seed the serverUrl setting")
	authToken := pflag.String("auth-token", "", "seed the authToken setting")
	pflag.Parse()

	logger := obs.NewLogger(cfg.LogLevel, cfg.DevMode)
	logger.Info().Str("addr", cfg.Addr).Strs("sources", cfg.Sources).Msg("starting interview-monitor")

	metrics := obs.NewMetrics()

	store, err := openStore(cfg.ConfigFile)
	if err != nil {
		logger.Error().Err(err).Msg("settings store")
		os.Exit(1)
	}
	seed := map[string]string{cfgpkg.KeyServerURL: *serverURL, cfgpkg.KeyAuthToken: *authToken}
	for _, k := range cfgpkg.Keys {
		if v := seed[k]; v != "" {
			if err := cfgpkg.Validate(k, v); err != nil {
				logger.Error().Err(err).Msg("invalid flag")
				os.Exit(2)
			}
			if err := store.Set(context.Background(), k, v); err != nil {
				logger.Error().Err(err).Str("key", k).Msg("seed setting")
				os.Exit(1)
			}
		}
	}

	sources, err := filesim.ParseSpecs(cfg.Sources)
	if err != nil {
		logger.Error().Err(err).Msg("video sources")
		os.Exit(2)
	}
	host := filesim.NewHost(obs.Component(logger, "host"), sources...)

	hub := httpapi.NewMonitorHub()
	presenter := usecase.Presenters{obs.NewLogPresenter(logger), hub}

	registry := usecase.NewVideoSourceRegistry(host, logger)
	ctrl := usecase.NewSessionController(usecase.Deps{
		Registry:  registry,
		Scheduler: usecase.NewFrameCaptureScheduler(nil, registry, jpeg.New(), logger, metrics),
		Alerts:    usecase.NewAlertSink(presenter, nil, logger, metrics),
		Settings:  cfgpkg.NewProvider(store),
		NewTransport: func(s domain.Settings) usecase.Transport {
			return socketio.NewClient(socketio.Options{
				EngineIO:         cfg.EngineIO,
				ReconnectDelay:   cfg.ReconnectDelay,
				MaxAttempts:      s.MaxReconnectAttempts,
				HandshakeTimeout: cfg.HandshakeTimeout,
				InsecureTLS:      cfg.InsecureTLS,
			}, logger, metrics, nil)
		},
		Presenter: presenter,
		Logger:    logger,
		Metrics:   metrics,
	})

	deps := &httpapi.Deps{Cfg: cfg, Logger: logger, Metrics: metrics, Session: ctrl, Settings: store, Monitor: hub}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewRouter(deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server error")
			os.Exit(1)
		}
	}()

	// Open the console in a browser (best-effort)
	go func() {
		time.Sleep(300 * time.Millisecond)
		if cfg.DevMode {
			return
		}
		addr := cfg.Addr
		if strings.HasPrefix(addr, ":") {
			addr = "http://localhost" + addr
		} else if !strings.HasPrefix(addr, "http") {
			addr = fmt.Sprintf("http://%s", addr)
		}
		_ = openBrowser(addr + "/api/session")
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctrl.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
	}
	logger.Info().Msg("interview-monitor stopped")
}

func openStore(path string) (cfgpkg.Store, error) {
	if path == "" {
		return memory.NewStore(nil), nil
	}
	s, err := file.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return s, nil
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd.Start()
}
