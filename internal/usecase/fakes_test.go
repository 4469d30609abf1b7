package usecase

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"interview-monitor/internal/domain"
	"interview-monitor/internal/infrastructure/clock"
)

type fakeSource struct {
	mu       sync.Mutex
	id       string
	w, h     int
	attached bool
	ready    bool
}

func newSource(id string, w, h int) *fakeSource {
	return &fakeSource{id: id, w: w, h: h, attached: true, ready: true}
}

func (s *fakeSource) ID() string { return s.id }

func (s *fakeSource) IsAttached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attached
}

func (s *fakeSource) IsReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *fakeSource) Size() (int, int) { return s.w, s.h }

func (s *fakeSource) CurrentImage() (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, s.w, s.h)), nil
}

func (s *fakeSource) detach() {
	s.mu.Lock()
	s.attached = false
	s.mu.Unlock()
}

func (s *fakeSource) setReady(v bool) {
	s.mu.Lock()
	s.ready = v
	s.mu.Unlock()
}

type markCall struct {
	id     string
	marked bool
}

type fakeHost struct {
	mu      sync.Mutex
	sources []VideoSource
	marks   []markCall
	marked  map[string]bool
	overlay []string
}

func newFakeHost(srcs ...*fakeSource) *fakeHost {
	h := &fakeHost{marked: map[string]bool{}}
	for _, s := range srcs {
		h.sources = append(h.sources, s)
	}
	return h
}

func (h *fakeHost) VideoSources() []VideoSource {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]VideoSource(nil), h.sources...)
}

func (h *fakeHost) SetMarked(src VideoSource, marked bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.marks = append(h.marks, markCall{src.ID(), marked})
	if marked {
		h.marked[src.ID()] = true
	} else {
		delete(h.marked, src.ID())
	}
}

func (h *fakeHost) ShowSelectionOverlay(c []VideoSource) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.overlay = nil
	for _, s := range c {
		h.overlay = append(h.overlay, s.ID())
	}
}

func (h *fakeHost) HideSelectionOverlay() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.overlay = nil
}

func (h *fakeHost) markedIDs() map[string]bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := map[string]bool{}
	for k := range h.marked {
		out[k] = true
	}
	return out
}

func (h *fakeHost) unmarkCalls(id string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, m := range h.marks {
		if m.id == id && !m.marked {
			n++
		}
	}
	return n
}

type fakeEncoder struct {
	mu    sync.Mutex
	fail  bool
	calls int
}

func (e *fakeEncoder) Encode(img image.Image) (domain.Frame, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.fail {
		return domain.Frame{}, errors.New("encode failed")
	}
	b := img.Bounds()
	return domain.Frame{Data: []byte{0xff, 0xd8}, MimeType: "image/jpeg", Width: b.Dx(), Height: b.Dy()}, nil
}

func (e *fakeEncoder) setFail(v bool) {
	e.mu.Lock()
	e.fail = v
	e.mu.Unlock()
}

func (e *fakeEncoder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

type fakeTransport struct {
	events chan domain.TransportEvent

	mu         sync.Mutex
	connected  bool
	closed     bool
	connectURL string
	token      string
	frames     []string
	responses  []domain.ClientResponse
	clientAlts []domain.ClientAlert
	manual     []domain.ManualRequest
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{events: make(chan domain.TransportEvent, 32)}
}

func (t *fakeTransport) Connect(_ context.Context, url, token string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connectURL, t.token = url, token
	return nil
}

func (t *fakeTransport) Events() <-chan domain.TransportEvent { return t.events }

func (t *fakeTransport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

func (t *fakeTransport) SendFrame(dataURL string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.connected {
		return domain.ErrNotConnected
	}
	t.frames = append(t.frames, dataURL)
	return nil
}

func (t *fakeTransport) SendClientAlert(a domain.ClientAlert) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.connected {
		t.clientAlts = append(t.clientAlts, a)
	}
}

func (t *fakeTransport) SendClientResponse(r domain.ClientResponse) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.connected {
		t.responses = append(t.responses, r)
	}
}

func (t *fakeTransport) SendManualRequest(r domain.ManualRequest) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.connected {
		t.manual = append(t.manual, r)
	}
}

func (t *fakeTransport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	t.connected = false
	close(t.events)
}

// emit delivers ev like the real client: Connected flips the link up, drops flip it down.
func (t *fakeTransport) emit(ev domain.TransportEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	switch ev.(type) {
	case domain.Connected:
		t.connected = true
	case domain.Disconnected, domain.ConnectionFailed:
		t.connected = false
	}
	t.events <- ev
}

func (t *fakeTransport) frameCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.frames)
}

func (t *fakeTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

type staticSettings struct {
	s   domain.Settings
	err error
}

func (p staticSettings) Settings(context.Context) (domain.Settings, error) { return p.s, p.err }

type recorder struct {
	mu       sync.Mutex
	notices  []domain.Notice
	states   []domain.State
	added    []domain.Alert
	removed  []string
	clearedN int
}

func (r *recorder) Notice(n domain.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recorder) StateChanged(s domain.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s.State)
}

func (r *recorder) AlertAdded(a domain.Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.added = append(r.added, a)
}

func (r *recorder) AlertRemoved(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, id)
}

func (r *recorder) AlertsCleared() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearedN++
}

func (r *recorder) noticesAt(level domain.NoticeLevel) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.notices {
		if n.Level == level {
			out = append(out, n.Message)
		}
	}
	return out
}

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

const testInterval = time.Second

type harness struct {
	t          *testing.T
	clk        *clock.Fake
	host       *fakeHost
	enc        *fakeEncoder
	rec        *recorder
	ctrl       *SessionController
	mu         sync.Mutex
	transports []*fakeTransport
}

func newHarness(t *testing.T, settingsErr error, srcs ...*fakeSource) *harness {
	t.Helper()
	h := &harness{
		t:    t,
		clk:  clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		host: newFakeHost(srcs...),
		enc:  &fakeEncoder{},
		rec:  &recorder{},
	}
	reg := NewVideoSourceRegistry(h.host, nopLogger())
	sched := NewFrameCaptureScheduler(h.clk, reg, h.enc, nopLogger(), nil)
	h.ctrl = NewSessionController(Deps{
		Registry:  reg,
		Scheduler: sched,
		Alerts:    NewAlertSink(h.rec, h.clk, nopLogger(), nil),
		Settings: staticSettings{s: domain.Settings{
			ServerURL:            "http://analyzer.test:5002",
			FrameInterval:        testInterval,
			MaxReconnectAttempts: 5,
			AuthToken:            "tok",
		}, err: settingsErr},
		NewTransport: func(domain.Settings) Transport {
			ft := newFakeTransport()
			h.mu.Lock()
			h.transports = append(h.transports, ft)
			h.mu.Unlock()
			return ft
		},
		Presenter: h.rec,
		Clock:     h.clk,
		Logger:    nopLogger(),
	})
	t.Cleanup(h.ctrl.Close)
	return h
}

func (h *harness) transport() *fakeTransport {
	h.mu.Lock()
	defer h.mu.Unlock()
	require.NotEmpty(h.t, h.transports)
	return h.transports[len(h.transports)-1]
}

func (h *harness) waitState(want domain.State) {
	h.t.Helper()
	require.Eventually(h.t, func() bool { return h.ctrl.Snapshot().State == want },
		2*time.Second, 5*time.Millisecond, "state never reached %s (now %s)", want, h.ctrl.Snapshot().State)
}

// startMonitoring selects id, starts and completes the handshake.
func (h *harness) startMonitoring(id string) *fakeTransport {
	h.t.Helper()
	require.NoError(h.t, h.ctrl.Select(id))
	require.NoError(h.t, h.ctrl.Start(context.Background()))
	ft := h.transport()
	ft.emit(domain.Connected{})
	h.waitState(domain.StateMonitoring)
	return ft
}

// tick advances one interval and waits until the capture ran.
func (h *harness) tick() {
	h.t.Helper()
	before := h.enc.callCount()
	h.clk.Advance(testInterval)
	require.Eventually(h.t, func() bool {
		_ = h.ctrl.Snapshot()
		return h.enc.callCount() > before
	}, 2*time.Second, 2*time.Millisecond)
	_ = h.ctrl.Snapshot()
}
