package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"interview-monitor/internal/domain"
	"interview-monitor/internal/infrastructure/clock"
	obs "interview-monitor/internal/infrastructure/observability"
)

var allStates = []string{
	string(domain.StateIdle), string(domain.StateSelecting), string(domain.StateAwaitingStart),
	string(domain.StateConnecting), string(domain.StateMonitoring), string(domain.StateStopping),
}

// Deps are the collaborators of a SessionController.
type Deps struct {
	Registry  *VideoSourceRegistry
	Scheduler *FrameCaptureScheduler
	Alerts    *AlertSink
	Settings  SettingsProvider
	// NewTransport may be nil when no transport is available; Start then fails.
	NewTransport TransportFactory
	Presenter    Presenter
	Clock        clock.Clock
	Logger       *zerolog.Logger
	Metrics      *obs.Metrics
}

// SessionController owns the session state machine. Every command, capture
// tick and transport event runs under mu, so handlers never interleave.
type SessionController struct {
	mu sync.Mutex

	registry     *VideoSourceRegistry
	scheduler    *FrameCaptureScheduler
	alerts       *AlertSink
	settingsProv SettingsProvider
	newTransport TransportFactory
	presenter    Presenter
	clock        clock.Clock
	logger       *zerolog.Logger
	metrics      *obs.Metrics

	ctx    context.Context
	cancel context.CancelFunc

	state             domain.State
	sessionID         string
	startedAt         *time.Time
	settings          domain.Settings
	transport         Transport
	trying            bool
	reconnectAttempts uint
	closed            bool
}

func NewSessionController(d Deps) *SessionController {
	clk := d.Clock
	if clk == nil {
		clk = clock.Real()
	}
	p := d.Presenter
	if p == nil {
		p = Presenters(nil)
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &SessionController{
		registry:     d.Registry,
		scheduler:    d.Scheduler,
		alerts:       d.Alerts,
		settingsProv: d.Settings,
		newTransport: d.NewTransport,
		presenter:    p,
		clock:        clk,
		logger:       obs.Component(d.Logger, "session"),
		metrics:      d.Metrics,
		ctx:          ctx,
		cancel:       cancel,
		state:        domain.StateIdle,
	}
	c.metrics.SetState(string(domain.StateIdle), allStates)
	return c
}

func (c *SessionController) exec(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn()
}

func (c *SessionController) Snapshot() domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *SessionController) snapshotLocked() domain.Session {
	s := domain.Session{
		ID:                c.sessionID,
		State:             c.state,
		Selecting:         c.registry.Selecting(),
		Trying:            c.trying,
		ReconnectAttempts: c.reconnectAttempts,
		FrameErrorCount:   c.scheduler.ErrorCount(),
		StartedAt:         c.startedAt,
	}
	if t := c.registry.Selected(); t != nil {
		s.TargetID = t.ID()
	}
	return s
}

// Sources lists every video source the host exposes.
func (c *SessionController) Sources() []SourceInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.Describe()
}

func (c *SessionController) Alerts() []domain.Alert { return c.alerts.List() }

// RequestSelection shows the selection overlay on every candidate.
func (c *SessionController) RequestSelection() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.idleGuardLocked(); err != nil {
		return err
	}
	if len(c.registry.EnterSelectionMode()) == 0 {
		c.noticeLocked(domain.NoticeWarn, "No suitable video found on this page")
		return fmt.Errorf("%w: no qualifying video sources", domain.ErrNoTarget)
	}
	c.setStateLocked(domain.StateSelecting)
	c.noticeLocked(domain.NoticeInfo, "Click a video to select it")
	return nil
}

// Select commits the candidate with the given id.
func (c *SessionController) Select(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.idleGuardLocked(); err != nil {
		return err
	}
	src, err := c.registry.Select(id)
	if err != nil {
		c.noticeLocked(domain.NoticeWarn, "Video not available: "+id)
		return err
	}
	c.setStateLocked(domain.StateAwaitingStart)
	c.noticeLocked(domain.NoticeInfo, "Video selected: "+src.ID())
	return nil
}

// AutoSelect commits the registry's best guess and returns its id.
func (c *SessionController) AutoSelect() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.idleGuardLocked(); err != nil {
		return "", err
	}
	src := c.registry.BestGuess()
	if src == nil {
		c.noticeLocked(domain.NoticeWarn, "No suitable video found on this page")
		return "", fmt.Errorf("%w: no qualifying video sources", domain.ErrNoTarget)
	}
	c.registry.SelectSource(src)
	c.setStateLocked(domain.StateAwaitingStart)
	c.noticeLocked(domain.NoticeInfo, "Video selected: "+src.ID())
	return src.ID(), nil
}

func (c *SessionController) CancelSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != domain.StateSelecting {
		return
	}
	c.registry.CancelSelection()
	if c.registry.Selected() != nil {
		c.setStateLocked(domain.StateAwaitingStart)
	} else {
		c.setStateLocked(domain.StateIdle)
	}
}

// idleGuardLocked rejects selection changes while a session is live.
func (c *SessionController) idleGuardLocked() error {
	if c.closed {
		return domain.ErrClosed
	}
	if c.activeLocked() {
		c.noticeLocked(domain.NoticeWarn, "Monitoring is already active")
		return domain.ErrAlreadyActive
	}
	return nil
}

func (c *SessionController) activeLocked() bool {
	switch c.state {
	case domain.StateConnecting, domain.StateMonitoring, domain.StateStopping:
		return true
	}
	return c.trying
}

// Start loads settings, opens the transport and waits for it asynchronously.
func (c *SessionController) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.ErrClosed
	}
	if c.activeLocked() {
		c.noticeLocked(domain.NoticeWarn, "Monitoring is already active")
		return domain.ErrAlreadyActive
	}
	if c.registry.Selected() == nil {
		c.noticeLocked(domain.NoticeWarn, "Select a video first")
		return domain.ErrNoTarget
	}
	if c.newTransport == nil {
		c.noticeLocked(domain.NoticeError, "Connection library not available")
		return domain.ErrTransportUnavailable
	}
	settings, err := c.settingsProv.Settings(ctx)
	if err != nil {
		c.releaseLocked()
		c.noticeLocked(domain.NoticeError, "Failed to start monitoring: "+err.Error())
		return fmt.Errorf("load settings: %w", err)
	}
	t := c.newTransport(settings)
	if t == nil {
		c.noticeLocked(domain.NoticeError, "Connection library not available")
		return domain.ErrTransportUnavailable
	}

	c.registry.CancelSelection()
	c.sessionID = uuid.NewString()
	c.settings = settings
	c.transport = t
	c.reconnectAttempts = 0
	c.setStateLocked(domain.StateConnecting)
	c.noticeLocked(domain.NoticeInfo, "Connecting to "+settings.ServerURL)
	c.logger.Info().Str("session", c.sessionID).Str("server", settings.ServerURL).
		Dur("interval", settings.FrameInterval).Int("maxAttempts", settings.MaxReconnectAttempts).
		Msg("interview-monitor: session starting")

	if err := t.Connect(c.ctx, settings.ServerURL, settings.AuthToken); err != nil {
		c.releaseLocked()
		c.noticeLocked(domain.NoticeError, "Failed to start monitoring: "+err.Error())
		return fmt.Errorf("connect: %w", err)
	}
	go c.pump(t)
	return nil
}

// pump forwards transport events onto the controller timeline. Events from
// a transport that is no longer current are dropped.
func (c *SessionController) pump(t Transport) {
	for ev := range t.Events() {
		c.exec(func() {
			if c.transport != t {
				return
			}
			c.handleEventLocked(ev)
		})
	}
}

func (c *SessionController) handleEventLocked(ev domain.TransportEvent) {
	switch e := ev.(type) {
	case domain.Connected:
		c.metrics.Connection("connected")
		reconnected := c.startedAt != nil
		c.trying = false
		c.reconnectAttempts = 0
		if c.startedAt == nil {
			now := c.clock.Now()
			c.startedAt = &now
		}
		c.setStateLocked(domain.StateMonitoring)
		c.scheduler.Start(CaptureRun{
			Interval:     c.settings.FrameInterval,
			Transport:    c.transport,
			Exec:         c.exec,
			OnTargetLost: c.targetLostLocked,
			OnFatal:      c.captureFatalLocked,
		})
		if reconnected {
			c.noticeLocked(domain.NoticeInfo, "Reconnected. Monitoring resumed")
		} else {
			c.noticeLocked(domain.NoticeInfo, "Connected. Monitoring started")
		}

	case domain.ConnectionError:
		c.metrics.Connection("error")
		c.trying = true
		c.reconnectAttempts = uint(e.Attempt)
		if c.state == domain.StateConnecting {
			c.setStateLocked(domain.StateAwaitingStart)
		}
		c.logger.Warn().Err(e.Err).Int("attempt", e.Attempt).Msg("connection attempt failed")
		c.noticeLocked(domain.NoticeWarn, fmt.Sprintf("Connection failed (attempt %d of %d), retrying",
			e.Attempt, c.settings.MaxReconnectAttempts))

	case domain.ConnectionFailed:
		c.metrics.Connection("failed")
		msg := fmt.Sprintf("Could not connect to analysis server after %d attempts", e.Attempts)
		if e.Rejected {
			msg = "Connection rejected by server"
			if e.Err != nil {
				msg += ": " + e.Err.Error()
			}
		}
		c.logger.Error().Err(e.Err).Int("attempts", e.Attempts).Bool("rejected", e.Rejected).Msg("connection failed")
		c.stopLocked(domain.NoticeError, msg)

	case domain.Disconnected:
		if e.Terminal {
			c.logger.Info().Str("reason", e.Reason).Msg("disconnected")
			c.stopLocked(domain.NoticeWarn, "Disconnected from analysis server ("+e.Reason+")")
			return
		}
		c.scheduler.Cancel()
		c.trying = true
		c.setStateLocked(domain.StateConnecting)
		c.logger.Warn().Str("reason", e.Reason).Msg("connection lost")
		c.noticeLocked(domain.NoticeWarn, "Connection lost ("+e.Reason+"), reconnecting")

	case domain.ProctoringAlert:
		c.alerts.Record(c.alerts.FromMessage(e.Message))

	case domain.TransportError:
		c.logger.Warn().Err(e.Err).Msg("transport error")
	}
}

// targetLostLocked tries to reacquire a target; without one the session ends.
func (c *SessionController) targetLostLocked() {
	if c.state != domain.StateMonitoring {
		return
	}
	prev := c.registry.Selected()
	if next := c.registry.BestGuess(); next != nil && (prev == nil || next.ID() != prev.ID()) {
		c.registry.SelectSource(next)
		c.noticeLocked(domain.NoticeWarn, "Video target lost, switched to "+next.ID())
		return
	}
	c.logger.Warn().Err(domain.ErrTargetLost).Msg("no replacement video")
	c.stopLocked(domain.NoticeError, "Video target lost. Monitoring stopped")
}

func (c *SessionController) captureFatalLocked(err error) {
	c.logger.Error().Err(err).Msg("capture failed repeatedly")
	c.stopLocked(domain.NoticeError, "Frame capture failed repeatedly. Monitoring stopped")
}

// Stop ends the session. Idempotent.
func (c *SessionController) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == domain.StateIdle && c.transport == nil && c.registry.Selected() == nil && !c.registry.Selecting() {
		return
	}
	c.stopLocked(domain.NoticeInfo, "Monitoring stopped")
}

// Close stops the session and refuses further commands.
func (c *SessionController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.releaseLocked()
	c.closed = true
	c.cancel()
	c.logger.Info().Msg("interview-monitor: session controller closed")
}

// stopLocked is the single exit path for user, terminal and fatal stops.
func (c *SessionController) stopLocked(level domain.NoticeLevel, msg string) {
	c.releaseLocked()
	c.noticeLocked(level, msg)
}

func (c *SessionController) releaseLocked() {
	if c.state != domain.StateIdle {
		c.setStateLocked(domain.StateStopping)
	}
	c.scheduler.Cancel()
	c.scheduler.ResetErrors()
	if t := c.transport; t != nil {
		c.transport = nil
		t.Close()
	}
	c.registry.Release()
	c.trying = false
	c.reconnectAttempts = 0
	if c.sessionID != "" {
		c.logger.Info().Str("session", c.sessionID).Msg("interview-monitor: session stopped")
	}
	c.sessionID = ""
	c.startedAt = nil
	c.setStateLocked(domain.StateIdle)
}

// ReportClientAlert forwards an interviewer-side alert to the backend.
func (c *SessionController) ReportClientAlert(title, description string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, err := c.connectedLocked()
	if err != nil {
		return err
	}
	t.SendClientAlert(domain.ClientAlert{Alert: title, Description: description})
	return nil
}

// RequestScan asks the backend to prompt the candidate for an environment scan.
func (c *SessionController) RequestScan() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, err := c.connectedLocked()
	if err != nil {
		return err
	}
	t.SendManualRequest(domain.ManualRequest{Type: domain.KindScanRequest})
	c.noticeLocked(domain.NoticeInfo, "Environment scan requested")
	return nil
}

func (c *SessionController) connectedLocked() (Transport, error) {
	if c.closed {
		return nil, domain.ErrClosed
	}
	if c.transport == nil || !c.transport.Connected() {
		return nil, domain.ErrNotConnected
	}
	return c.transport, nil
}

// Acknowledge dismisses an alert, replying to scan requests when connected.
func (c *SessionController) Acknowledge(id string) error {
	c.mu.Lock()
	var t Transport
	if c.transport != nil && c.transport.Connected() {
		t = c.transport
	}
	_, err := c.alerts.Acknowledge(id, t)
	c.mu.Unlock()
	return err
}

func (c *SessionController) ClearAlerts() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts.Clear()
}

func (c *SessionController) setStateLocked(s domain.State) {
	if c.state == s {
		return
	}
	from := c.state
	c.state = s
	c.metrics.SetState(string(s), allStates)
	c.logger.Debug().Str("from", string(from)).Str("to", string(s)).Msg("state changed")
	c.presenter.StateChanged(c.snapshotLocked())
}

func (c *SessionController) noticeLocked(level domain.NoticeLevel, msg string) {
	n := domain.Notice{Level: level, Message: msg, Timestamp: c.clock.Now()}
	c.metrics.Notice(string(level))
	c.presenter.Notice(n)
}
