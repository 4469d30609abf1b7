// Package filesim exposes directories of still images as video sources.
// Each directory plays as one looping feed, one file per captured frame.
package filesim

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"interview-monitor/internal/usecase"
)

var framePatterns = []string{"*.jpg", "*.jpeg", "*.png"}

// Source is one image directory playing as a video feed.
type Source struct {
	id  string
	dir string

	mu     sync.Mutex
	frames []string
	next   int
	width  int
	height int
}

// NewSource scans dir for frames. A missing directory yields a detached source.
func NewSource(id, dir string) (*Source, error) {
	s := &Source{id: id, dir: dir}
	if err := s.rescan(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Source) rescan() error {
	frames, err := loadFrames(s.dir)
	if err != nil {
		return err
	}
	w, h := 0, 0
	if len(frames) > 0 {
		if w, h, err = probe(frames[0]); err != nil {
			return fmt.Errorf("probe %s: %w", frames[0], err)
		}
	}
	s.mu.Lock()
	s.frames, s.width, s.height = frames, w, h
	if s.next >= len(frames) {
		s.next = 0
	}
	s.mu.Unlock()
	return nil
}

func (s *Source) ID() string { return s.id }

// IsAttached reports whether the directory still exists.
func (s *Source) IsAttached() bool {
	fi, err := os.Stat(s.dir)
	return err == nil && fi.IsDir()
}

func (s *Source) IsReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames) > 0
}

func (s *Source) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// CurrentImage decodes the next frame, looping at the end.
func (s *Source) CurrentImage() (image.Image, error) {
	s.mu.Lock()
	if len(s.frames) == 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("source %s has no frames", s.id)
	}
	path := s.frames[s.next]
	s.next = (s.next + 1) % len(s.frames)
	s.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// loadFrames returns the sorted frame paths in dir. A missing dir is empty.
func loadFrames(dir string) ([]string, error) {
	var out []string
	for _, p := range framePatterns {
		matches, err := filepath.Glob(filepath.Join(dir, p))
		if err != nil {
			return nil, err
		}
		out = append(out, matches...)
	}
	sort.Strings(out)
	return out, nil
}

func probe(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

// Host is a page made of image-directory sources. Marking and the selection
// overlay are recorded so the console can show them.
type Host struct {
	logger *zerolog.Logger

	mu      sync.Mutex
	sources []*Source
	marked  map[string]bool
	overlay []string
}

func NewHost(logger *zerolog.Logger, sources ...*Source) *Host {
	if logger == nil {
		l := zerolog.Nop()
		logger = &l
	}
	return &Host{logger: logger, sources: sources, marked: map[string]bool{}}
}

// ParseSpecs builds sources from "name=dir" entries. A bare dir is named after its base.
func ParseSpecs(specs []string) ([]*Source, error) {
	var out []*Source
	seen := map[string]bool{}
	for _, spec := range specs {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		name, dir, ok := strings.Cut(spec, "=")
		if !ok {
			dir = name
			name = filepath.Base(filepath.Clean(dir))
		}
		name, dir = strings.TrimSpace(name), strings.TrimSpace(dir)
		if name == "" || dir == "" {
			return nil, fmt.Errorf("invalid source %q", spec)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate source name %q", name)
		}
		seen[name] = true
		src, err := NewSource(name, dir)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", name, err)
		}
		out = append(out, src)
	}
	return out, nil
}

// VideoSources rescans every directory and returns the sources in declaration order.
func (h *Host) VideoSources() []usecase.VideoSource {
	h.mu.Lock()
	sources := append([]*Source(nil), h.sources...)
	h.mu.Unlock()
	out := make([]usecase.VideoSource, 0, len(sources))
	for _, s := range sources {
		if err := s.rescan(); err != nil {
			h.logger.Warn().Err(err).Str("source", s.id).Msg("rescan failed")
		}
		out = append(out, s)
	}
	return out
}

func (h *Host) SetMarked(src usecase.VideoSource, marked bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if marked {
		h.marked[src.ID()] = true
	} else {
		delete(h.marked, src.ID())
	}
	h.logger.Debug().Str("source", src.ID()).Bool("marked", marked).Msg("target marking")
}

func (h *Host) ShowSelectionOverlay(candidates []usecase.VideoSource) {
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ID())
	}
	h.mu.Lock()
	h.overlay = ids
	h.mu.Unlock()
}

func (h *Host) HideSelectionOverlay() {
	h.mu.Lock()
	h.overlay = nil
	h.mu.Unlock()
}

// Marked returns the ids of marked sources, sorted.
func (h *Host) Marked() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.marked))
	for id := range h.marked {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Overlay returns the ids currently showing the selection affordance.
func (h *Host) Overlay() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.overlay...)
}
