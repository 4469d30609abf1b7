package usecase

import (
	"context"
	"image"

	"interview-monitor/internal/domain"
)

// VideoSource is a video element owned by the host page. The registry never
// controls its lifetime, so every capture re-validates it.
type VideoSource interface {
	ID() string
	IsAttached() bool
	// IsReady reports whether the source is decoding and has a current frame.
	IsReady() bool
	// Size is the rendered size in pixels.
	Size() (width, height int)
	CurrentImage() (image.Image, error)
}

// Host is the page the client is injected into.
type Host interface {
	VideoSources() []VideoSource
	SetMarked(src VideoSource, marked bool)
	ShowSelectionOverlay(candidates []VideoSource)
	HideSelectionOverlay()
}

type FrameEncoder interface {
	Encode(img image.Image) (domain.Frame, error)
}

// Transport is the persistent connection to the analysis backend.
// Outbound calls are fire-and-forget; SendFrame alone reports ErrNotConnected.
type Transport interface {
	Connect(ctx context.Context, serverURL, token string) error
	Events() <-chan domain.TransportEvent
	Connected() bool
	SendFrame(dataURL string) error
	SendClientAlert(a domain.ClientAlert)
	SendClientResponse(r domain.ClientResponse)
	SendManualRequest(r domain.ManualRequest)
	Close()
}

// TransportFactory builds a fresh transport for each session.
type TransportFactory func(settings domain.Settings) Transport

type SettingsProvider interface {
	Settings(ctx context.Context) (domain.Settings, error)
}

// Presenter renders what the operator sees. Calls arrive on the
// controller's timeline and must not call back into the controller.
type Presenter interface {
	Notice(n domain.Notice)
	StateChanged(s domain.Session)
	AlertAdded(a domain.Alert)
	AlertRemoved(id string)
	AlertsCleared()
}

// Presenters fans out to several presenters in order.
type Presenters []Presenter

func (ps Presenters) Notice(n domain.Notice) {
	for _, p := range ps {
		p.Notice(n)
	}
}

func (ps Presenters) StateChanged(s domain.Session) {
	for _, p := range ps {
		p.StateChanged(s)
	}
}

func (ps Presenters) AlertAdded(a domain.Alert) {
	for _, p := range ps {
		p.AlertAdded(a)
	}
}

func (ps Presenters) AlertRemoved(id string) {
	for _, p := range ps {
		p.AlertRemoved(id)
	}
}

func (ps Presenters) AlertsCleared() {
	for _, p := range ps {
		p.AlertsCleared()
	}
}
