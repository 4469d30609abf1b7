package domain

import (
	"strings"
	"time"
)

type Severity string

const (
	SeverityInfo           Severity = "info"
	SeverityLow            Severity = "low"
	SeverityMedium         Severity = "medium"
	SeverityHigh           Severity = "high"
	SeverityActionRequired Severity = "action_required"
)

const (
	// KindNotice is the kind given to alerts the backend did not tag.
	KindNotice = "notice"
	// KindScanRequest asks the candidate for a 360 degree environment scan.
	KindScanRequest = "request_360_scan"
)

// Alert is an inbound proctoring alert as rendered in the feed.
type Alert struct {
	ID             string    `json:"id"`
	Severity       Severity  `json:"severity"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Kind           string    `json:"kind"`
	SuspicionScore *int      `json:"suspicionScore,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// NeedsAcknowledgement reports whether the alert carries an acknowledgement affordance.
func (a Alert) NeedsAcknowledgement() bool { return a.Kind == KindScanRequest }

// AlertMessage is the proctoring_alert payload.
type AlertMessage struct {
	Alert          string `json:"alert"`
	Description    string `json:"description"`
	Type           string `json:"type,omitempty"`
	SuspicionScore *int   `json:"suspicion_score,omitempty"`
}

// ClientAlert is the client_alert payload.
type ClientAlert struct {
	Alert       string `json:"alert"`
	Description string `json:"description"`
}

// ClientResponse is the client_response payload.
type ClientResponse struct {
	AlertType string `json:"alert_type"`
	Response  string `json:"response"`
}

// ManualRequest is the manual_request payload.
type ManualRequest struct {
	Type string `json:"type"`
}

// ClassifySeverity maps the backend's title marker to a severity.
// Scan requests always require action regardless of the title.
func ClassifySeverity(title, kind string) Severity {
	if kind == KindScanRequest {
		return SeverityActionRequired
	}
	t := strings.TrimSpace(title)
	switch {
	case strings.HasPrefix(t, "🔵"), strings.Contains(t, "REQUEST:"):
		return SeverityActionRequired
	case strings.HasPrefix(t, "🔴"), strings.HasPrefix(t, "⚠"),
		strings.Contains(t, "URGENT"), strings.Contains(t, "ALERT:"):
		return SeverityHigh
	case strings.HasPrefix(t, "🟠"), strings.Contains(t, "WARNING"):
		return SeverityMedium
	case strings.HasPrefix(t, "🟡"), strings.Contains(t, "ATTENTION"):
		return SeverityLow
	default:
		return SeverityInfo
	}
}
