package domain

import "time"

// State is the run state of a monitoring session.
type State string

const (
	StateIdle          State = "idle"
	StateSelecting     State = "selecting"
	StateAwaitingStart State = "awaiting_start"
	StateConnecting    State = "connecting"
	StateMonitoring    State = "monitoring"
	StateStopping      State = "stopping"
)

// Session is a point-in-time view of the controller's session.
type Session struct {
	ID                string     `json:"id"`
	State             State      `json:"state"`
	TargetID          string     `json:"targetId,omitempty"`
	Selecting         bool       `json:"selecting"`
	Trying            bool       `json:"trying"`
	ReconnectAttempts uint       `json:"reconnectAttempts"`
	FrameErrorCount   uint       `json:"frameErrorCount"`
	StartedAt         *time.Time `json:"startedAt,omitempty"`
}

// Settings are the per-session values read from the configuration store.
type Settings struct {
	ServerURL            string
	FrameInterval        time.Duration
	MaxReconnectAttempts int
	AuthToken            string
}
