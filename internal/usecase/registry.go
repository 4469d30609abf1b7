package usecase

import (
	"fmt"

	"github.com/rs/zerolog"

	"interview-monitor/internal/domain"
	obs "interview-monitor/internal/infrastructure/observability"
)

// Sources smaller than this (rendered pixels) are thumbnails or previews,
// not candidate feeds.
const (
	MinSourceWidth  = 100
	MinSourceHeight = 100
)

type TargetStatus int

const (
	TargetReady TargetStatus = iota
	// TargetNotReady: attached but not decoding; skip the tick.
	TargetNotReady
	// TargetLost: no longer attached to the page.
	TargetLost
)

func (s TargetStatus) String() string {
	switch s {
	case TargetReady:
		return "ready"
	case TargetNotReady:
		return "not_ready"
	default:
		return "lost"
	}
}

// SourceInfo describes a host video source for the operator console.
type SourceInfo struct {
	ID        string `json:"id"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Attached  bool   `json:"attached"`
	Ready     bool   `json:"ready"`
	Candidate bool   `json:"candidate"`
	Selected  bool   `json:"selected"`
}

// VideoSourceRegistry discovers candidate sources and owns the single
// selected target. Not safe for concurrent use; the controller serializes access.
type VideoSourceRegistry struct {
	host      Host
	logger    *zerolog.Logger
	selected  VideoSource
	selecting bool
}

func NewVideoSourceRegistry(host Host, logger *zerolog.Logger) *VideoSourceRegistry {
	return &VideoSourceRegistry{host: host, logger: obs.Component(logger, "registry")}
}

// Discover returns the sources that are attached, decoding and large enough.
func (r *VideoSourceRegistry) Discover() []VideoSource {
	all := r.host.VideoSources()
	out := make([]VideoSource, 0, len(all))
	for _, s := range all {
		if qualifies(s) {
			out = append(out, s)
		}
	}
	return out
}

func qualifies(s VideoSource) bool {
	if s == nil || !s.IsAttached() || !s.IsReady() {
		return false
	}
	w, h := s.Size()
	return w >= MinSourceWidth && h >= MinSourceHeight
}

func (r *VideoSourceRegistry) Describe() []SourceInfo {
	all := r.host.VideoSources()
	out := make([]SourceInfo, 0, len(all))
	for _, s := range all {
		w, h := s.Size()
		out = append(out, SourceInfo{
			ID: s.ID(), Width: w, Height: h,
			Attached: s.IsAttached(), Ready: s.IsReady(),
			Candidate: qualifies(s),
			Selected:  r.selected != nil && r.selected.ID() == s.ID(),
		})
	}
	return out
}

// EnterSelectionMode overlays a selection affordance on every candidate and
// returns them. With no candidates the overlay is not shown.
func (r *VideoSourceRegistry) EnterSelectionMode() []VideoSource {
	candidates := r.Discover()
	if len(candidates) == 0 {
		return nil
	}
	r.host.ShowSelectionOverlay(candidates)
	r.selecting = true
	r.logger.Debug().Int("candidates", len(candidates)).Msg("selection mode entered")
	return candidates
}

// Select commits the candidate with the given id as the target.
func (r *VideoSourceRegistry) Select(id string) (VideoSource, error) {
	for _, s := range r.Discover() {
		if s.ID() == id {
			r.SelectSource(s)
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrUnknownSource, id)
}

// SelectSource commits src, unmarking the previous target first (unless it
// is the same source) and leaving selection mode.
func (r *VideoSourceRegistry) SelectSource(src VideoSource) {
	if r.selected != nil && r.selected.ID() != src.ID() {
		r.host.SetMarked(r.selected, false)
	}
	r.selected = src
	r.host.SetMarked(src, true)
	r.exitSelection()
	r.logger.Info().Str("source", src.ID()).Msg("video target selected")
}

// CancelSelection removes the overlay without touching the target.
func (r *VideoSourceRegistry) CancelSelection() { r.exitSelection() }

func (r *VideoSourceRegistry) exitSelection() {
	if r.selecting {
		r.host.HideSelectionOverlay()
		r.selecting = false
	}
}

func (r *VideoSourceRegistry) Selecting() bool { return r.selecting }

func (r *VideoSourceRegistry) Selected() VideoSource { return r.selected }

// BestGuess picks the largest qualifying source by rendered area (first wins
// ties), the sole candidate, or nil.
func (r *VideoSourceRegistry) BestGuess() VideoSource {
	var best VideoSource
	bestArea := -1
	for _, s := range r.Discover() {
		w, h := s.Size()
		if a := w * h; a > bestArea {
			best, bestArea = s, a
		}
	}
	return best
}

func (r *VideoSourceRegistry) Validate(src VideoSource) TargetStatus {
	if src == nil || !src.IsAttached() {
		return TargetLost
	}
	if !src.IsReady() {
		return TargetNotReady
	}
	return TargetReady
}

// Release unmarks the target, hides any overlay and forgets the selection.
func (r *VideoSourceRegistry) Release() {
	r.exitSelection()
	if r.selected != nil {
		r.host.SetMarked(r.selected, false)
		r.selected = nil
	}
}
