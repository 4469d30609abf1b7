package usecase

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"interview-monitor/internal/domain"
	"interview-monitor/internal/infrastructure/clock"
	obs "interview-monitor/internal/infrastructure/observability"
)

// AlertCapacity bounds the visible feed.
const AlertCapacity = 20

// ScanAcknowledged is the response sent when the operator acknowledges a scan request.
const ScanAcknowledged = "acknowledged"

// AlertSink keeps the newest inbound alerts, newest first.
type AlertSink struct {
	mu        sync.Mutex
	alerts    []domain.Alert
	capacity  int
	presenter Presenter
	clock     clock.Clock
	logger    *zerolog.Logger
	metrics   *obs.Metrics
}

func NewAlertSink(p Presenter, clk clock.Clock, logger *zerolog.Logger, metrics *obs.Metrics) *AlertSink {
	if clk == nil {
		clk = clock.Real()
	}
	return &AlertSink{capacity: AlertCapacity, presenter: p, clock: clk, logger: obs.Component(logger, "alerts"), metrics: metrics}
}

// FromMessage builds a feed entry for an inbound proctoring_alert payload.
func (s *AlertSink) FromMessage(msg domain.AlertMessage) domain.Alert {
	kind := msg.Type
	if kind == "" {
		kind = domain.KindNotice
	}
	return domain.Alert{
		ID:             uuid.NewString(),
		Severity:       domain.ClassifySeverity(msg.Alert, kind),
		Title:          msg.Alert,
		Description:    msg.Description,
		Kind:           kind,
		SuspicionScore: msg.SuspicionScore,
		Timestamp:      s.clock.Now(),
	}
}

// Record prepends a and evicts the oldest entries beyond capacity.
func (s *AlertSink) Record(a domain.Alert) {
	s.mu.Lock()
	s.alerts = append([]domain.Alert{a}, s.alerts...)
	var evicted []domain.Alert
	if len(s.alerts) > s.capacity {
		evicted = append(evicted, s.alerts[s.capacity:]...)
		s.alerts = s.alerts[:s.capacity:s.capacity]
	}
	s.mu.Unlock()

	s.metrics.Alert(string(a.Severity))
	s.logger.Info().Str("id", a.ID).Str("severity", string(a.Severity)).Str("kind", a.Kind).Msg(a.Title)
	if s.presenter == nil {
		return
	}
	s.presenter.AlertAdded(a)
	for _, e := range evicted {
		s.presenter.AlertRemoved(e.ID)
	}
}

// Acknowledge dismisses the alert. For scan requests it also tells the
// backend, when a transport is available.
func (s *AlertSink) Acknowledge(id string, t Transport) (domain.Alert, error) {
	s.mu.Lock()
	idx := -1
	for i, a := range s.alerts {
		if a.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return domain.Alert{}, fmt.Errorf("%w: %s", domain.ErrUnknownAlert, id)
	}
	a := s.alerts[idx]
	s.alerts = append(s.alerts[:idx], s.alerts[idx+1:]...)
	s.mu.Unlock()

	if a.NeedsAcknowledgement() && t != nil {
		t.SendClientResponse(domain.ClientResponse{AlertType: a.Kind, Response: ScanAcknowledged})
	}
	s.logger.Info().Str("id", a.ID).Str("kind", a.Kind).Msg("alert acknowledged")
	if s.presenter != nil {
		s.presenter.AlertRemoved(a.ID)
	}
	return a, nil
}

func (s *AlertSink) Clear() {
	s.mu.Lock()
	s.alerts = nil
	s.mu.Unlock()
	if s.presenter != nil {
		s.presenter.AlertsCleared()
	}
}

// List returns a copy of the feed, newest first.
func (s *AlertSink) List() []domain.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Alert, len(s.alerts))
	copy(out, s.alerts)
	return out
}
