package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	registry           *prometheus.Registry
	SessionState       *prometheus.GaugeVec
	FramesTotal        *prometheus.CounterVec
	AlertsTotal        *prometheus.CounterVec
	ConnectionAttempts *prometheus.CounterVec
	NoticesTotal       *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	r := prometheus.NewRegistry()
	m := &Metrics{
		registry: r,
		SessionState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "interview_monitor",
			Name:      "session_state",
			Help:      "1 for the state the session is currently in",
		}, []string{"state"}),
		FramesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "interview_monitor",
			Name:      "frames_total",
			Help:      "Capture ticks by outcome",
		}, []string{"result"}),
		AlertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "interview_monitor",
			Name:      "alerts_total",
			Help:      "Inbound proctoring alerts by severity",
		}, []string{"severity"}),
		ConnectionAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "interview_monitor",
			Name:      "connection_attempts_total",
			Help:      "Transport connection attempts by result",
		}, []string{"result"}),
		NoticesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "interview_monitor",
			Name:      "notices_total",
			Help:      "User-visible notices by level",
		}, []string{"level"}),
	}
	r.MustRegister(m.SessionState, m.FramesTotal, m.AlertsTotal, m.ConnectionAttempts, m.NoticesTotal)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// SetState marks state as the only active session state.
func (m *Metrics) SetState(state string, all []string) {
	if m == nil {
		return
	}
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1
		}
		m.SessionState.WithLabelValues(s).Set(v)
	}
}

// Frame counts one capture tick outcome: sent, dropped, skipped, encode_error.
func (m *Metrics) Frame(result string) {
	if m == nil {
		return
	}
	m.FramesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) Alert(severity string) {
	if m == nil {
		return
	}
	m.AlertsTotal.WithLabelValues(severity).Inc()
}

func (m *Metrics) Connection(result string) {
	if m == nil {
		return
	}
	m.ConnectionAttempts.WithLabelValues(result).Inc()
}

func (m *Metrics) Notice(level string) {
	if m == nil {
		return
	}
	m.NoticesTotal.WithLabelValues(level).Inc()
}
