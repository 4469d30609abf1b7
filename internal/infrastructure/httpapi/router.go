package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"interview-monitor/internal/infrastructure/config"
	obs "interview-monitor/internal/infrastructure/observability"
	"interview-monitor/internal/usecase"
)

type Deps struct {
	Cfg      config.Config
	Logger   *zerolog.Logger
	Metrics  *obs.Metrics
	Session  *usecase.SessionController
	Settings config.Store
	Monitor  *MonitorHub
}

// NewRouter returns the operator console handler with CORS applied.
func NewRouter(d *Deps) http.Handler {
	if d.Logger == nil {
		nop := zerolog.Nop()
		d.Logger = &nop
	}
	if d.Metrics == nil {
		d.Metrics = obs.NewMetrics()
	}
	if d.Monitor == nil {
		d.Monitor = NewMonitorHub()
	}
	return withCORS(d.Cfg, buildBaseMux(d))
}

// buildBaseMux constructs the mux with all routes, without wrappers.
func buildBaseMux(d *Deps) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Session == nil {
			writeError(w, http.StatusServiceUnavailable, "NOT_READY", "session controller not initialised", nil)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	mux.Handle("/metrics", promhttp.HandlerFor(d.Metrics.Registry(), promhttp.HandlerOpts{}))

	mux.HandleFunc("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"name":    "interview-monitor",
			"version": obs.Version,
			"commit":  obs.Commit,
			"time":    time.Now().UTC(),
		})
	})

	mux.HandleFunc("/api/session", d.handleSession)
	mux.HandleFunc("/api/session/selection", d.handleSelection)
	mux.HandleFunc("/api/session/target", d.handleTarget)
	mux.HandleFunc("/api/session/start", d.handleStart)
	mux.HandleFunc("/api/session/stop", d.handleStop)
	mux.HandleFunc("/api/sources", d.handleSources)

	mux.HandleFunc("/api/alerts", d.handleAlerts)
	mux.HandleFunc("/api/alerts/", d.handleAlertByID)
	mux.HandleFunc("/api/client-alerts", d.handleClientAlert)
	mux.HandleFunc("/api/scan-requests", d.handleScanRequest)

	mux.HandleFunc("/api/settings", d.handleSettings)

	mux.HandleFunc("/api/monitor/ws", d.Monitor.HandleWS)

	return mux
}

func withCORS(cfg config.Config, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", cfg.CORSAllowOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
