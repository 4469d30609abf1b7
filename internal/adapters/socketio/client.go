// Package socketio is a minimal Socket.IO client over the websocket
// transport. It speaks Engine.IO v4 (and v3 for older servers), reconnects
// with a fixed delay up to a bounded number of attempts, and reports
// everything that happens as domain.TransportEvent values.
package socketio

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"interview-monitor/internal/domain"
	"interview-monitor/internal/infrastructure/clock"
	obs "interview-monitor/internal/infrastructure/observability"
	"interview-monitor/pkg/shared/redact"
)

// Wire event names shared with the analysis backend.
const (
	EventVideoFrame      = "video_frame"
	EventClientAlert     = "client_alert"
	EventClientResponse  = "client_response"
	EventManualRequest   = "manual_request"
	EventProctoringAlert = "proctoring_alert"
)

// Disconnect reasons, named as socket.io clients report them.
const (
	ReasonServerDisconnect = "io server disconnect"
	ReasonClientDisconnect = "io client disconnect"
	ReasonServerClose      = "server closed connection"
	ReasonTransportClose   = "transport close"
	ReasonTransportError   = "transport error"
	ReasonPingTimeout      = "ping timeout"
)

const (
	defaultPingInterval = 25 * time.Second
	defaultPingTimeout  = 20 * time.Second
	writeTimeout        = 5 * time.Second
	eventBuffer         = 64
)

type Options struct {
	// EngineIO is the protocol revision, 3 or 4.
	EngineIO int
	// Path of the socket.io endpoint when the server URL has none.
	Path             string
	ReconnectDelay   time.Duration
	MaxAttempts      int
	HandshakeTimeout time.Duration
	InsecureTLS      bool
}

func (o Options) withDefaults() Options {
	if o.EngineIO != 3 {
		o.EngineIO = 4
	}
	if o.Path == "" {
		o.Path = "/socket.io/"
	}
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = 2 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 1
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = 10 * time.Second
	}
	return o
}

// RejectedError is returned when the server refuses the CONNECT packet.
// Rejections are not retried.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string { return "socketio: connection rejected: " + e.Message }

// Client is a single-use connection: Connect once, Close once.
type Client struct {
	opts    Options
	logger  *zerolog.Logger
	metrics *obs.Metrics
	clock   clock.Clock
	dialer  websocket.Dialer

	events chan domain.TransportEvent
	done   chan struct{}

	mu      sync.Mutex
	conn    *websocket.Conn
	started bool
	closed  bool
	cancel  context.CancelFunc

	// gorilla/websocket supports one concurrent writer
	writeMu   sync.Mutex
	closeOnce sync.Once
}

func NewClient(opts Options, logger *zerolog.Logger, metrics *obs.Metrics, clk clock.Clock) *Client {
	opts = opts.withDefaults()
	if clk == nil {
		clk = clock.Real()
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: opts.HandshakeTimeout,
		NetDialContext:   (&net.Dialer{Timeout: opts.HandshakeTimeout}).DialContext,
	}
	if opts.InsecureTLS {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &Client{
		opts:    opts,
		logger:  obs.Component(logger, "transport"),
		metrics: metrics,
		clock:   clk,
		dialer:  dialer,
		events:  make(chan domain.TransportEvent, eventBuffer),
		done:    make(chan struct{}),
	}
}

// Events delivers transport events. The channel is closed once the
// connection goroutine exits.
func (c *Client) Events() <-chan domain.TransportEvent { return c.events }

// Connect validates the server URL and starts connecting in the background.
// The outcome is reported on Events.
func (c *Client) Connect(ctx context.Context, serverURL, token string) error {
	endpoint, err := EndpointURL(serverURL, c.opts.EngineIO, c.opts.Path)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.ErrClosed
	}
	if c.started {
		return errors.New("socketio: already connecting")
	}
	c.started = true
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.logger.Info().Str("endpoint", endpoint).Bool("auth", token != "").Int("maxAttempts", c.opts.MaxAttempts).Msg("interview-monitor: connecting to analysis backend")
	go c.run(runCtx, endpoint, token)
	return nil
}

// Connected reports whether the handshake has completed and the socket is open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// SendFrame emits video_frame. Unlike the other senders it reports
// ErrNotConnected so the capture scheduler can count drops.
func (c *Client) SendFrame(dataURL string) error {
	return c.emitEvent(EventVideoFrame, dataURL)
}

func (c *Client) SendClientAlert(a domain.ClientAlert) {
	c.bestEffort(EventClientAlert, a)
}

func (c *Client) SendClientResponse(r domain.ClientResponse) {
	c.bestEffort(EventClientResponse, r)
}

func (c *Client) SendManualRequest(r domain.ManualRequest) {
	c.bestEffort(EventManualRequest, r)
}

func (c *Client) bestEffort(event string, payload any) {
	if err := c.emitEvent(event, payload); err != nil && !errors.Is(err, domain.ErrNotConnected) {
		c.logger.Warn().Err(err).Str("event", event).Msg("interview-monitor: emit failed")
	}
}

func (c *Client) emitEvent(event string, payload any) error {
	pkt, err := encodeEvent(event, payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return domain.ErrNotConnected
	}
	return c.writeText(conn, pkt)
}

// Close disconnects (sending a socket.io DISCONNECT when open) and waits for
// the connection goroutine to exit. No event is delivered after Close returns.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		conn := c.conn
		c.conn = nil
		started := c.started
		cancel := c.cancel
		c.mu.Unlock()

		if conn != nil {
			_ = c.writeText(conn, "41")
			c.writeMu.Lock()
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ReasonClientDisconnect),
				time.Now().Add(time.Second))
			c.writeMu.Unlock()
		}
		if cancel != nil {
			cancel()
		}
		if conn != nil {
			_ = conn.Close()
		}
		if !started {
			close(c.events)
			close(c.done)
			return
		}
		<-c.done
		for range c.events {
		}
		c.logger.Info().Msg("interview-monitor: transport closed")
	})
}

func (c *Client) run(ctx context.Context, endpoint, token string) {
	defer close(c.done)
	defer close(c.events)

	policy := c.newBackOff()
	attempt := 0
	for {
		conn, op, err := c.handshake(ctx, endpoint, token)
		if ctx.Err() != nil {
			if conn != nil {
				_ = conn.Close()
			}
			return
		}
		if err != nil {
			attempt++
			var rej *RejectedError
			if errors.As(err, &rej) {
				c.metrics.Connection("rejected")
				c.logger.Warn().Err(err).Int("attempt", attempt).Msg("interview-monitor: backend rejected handshake")
				c.emit(ctx, domain.ConnectionFailed{Attempts: attempt, Err: err, Rejected: true})
				return
			}
			c.metrics.Connection("error")
			delay := policy.NextBackOff()
			if delay == backoff.Stop {
				c.logger.Error().Err(err).Int("attempts", attempt).Msg("interview-monitor: reconnect attempts exhausted")
				c.emit(ctx, domain.ConnectionFailed{Attempts: attempt, Err: err})
				return
			}
			c.logger.Warn().Err(err).Int("attempt", attempt).Int("maxAttempts", c.opts.MaxAttempts).Dur("delay", delay).Msg("interview-monitor: connection attempt failed")
			c.emit(ctx, domain.ConnectionError{Attempt: attempt, Err: err})
			if !c.sleep(ctx, delay) {
				return
			}
			continue
		}

		attempt = 0
		policy.Reset()
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = conn.Close()
			return
		}
		c.conn = conn
		c.mu.Unlock()
		c.metrics.Connection("ok")
		c.logger.Info().Str("sid", op.SID).Msg("interview-monitor: connected to analysis backend")
		c.emit(ctx, domain.Connected{})

		reason, terminal := c.readLoop(ctx, conn, op)

		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		c.logger.Warn().Str("reason", reason).Bool("terminal", terminal).Msg("interview-monitor: disconnected")
		c.emit(ctx, domain.Disconnected{Reason: reason, Terminal: terminal})
		if terminal {
			return
		}
		if !c.sleep(ctx, c.opts.ReconnectDelay) {
			return
		}
	}
}

// newBackOff allows MaxAttempts connection attempts in total, spaced by the
// fixed reconnect delay.
func (c *Client) newBackOff() backoff.BackOff {
	retries := c.opts.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(c.opts.ReconnectDelay), uint64(retries))
}

func (c *Client) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-c.clock.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Client) emit(ctx context.Context, ev domain.TransportEvent) {
	select {
	case c.events <- ev:
	case <-ctx.Done():
	}
}

// handshake dials the endpoint, reads the Engine.IO open packet, sends the
// socket.io CONNECT (with auth on v4) and waits for the server's reply.
func (c *Client) handshake(ctx context.Context, endpoint, token string) (*websocket.Conn, openPacket, error) {
	var op openPacket
	hctx, cancel := context.WithTimeout(ctx, c.opts.HandshakeTimeout)
	defer cancel()
	conn, resp, err := c.dialer.DialContext(hctx, endpoint, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, op, fmt.Errorf("dial: %s: %w", resp.Status, err)
		}
		return nil, op, fmt.Errorf("dial: %w", err)
	}
	// unblock reads below if the caller gives up mid-handshake
	stop := context.AfterFunc(hctx, func() { _ = conn.Close() })
	defer stop()

	fail := func(err error) (*websocket.Conn, openPacket, error) {
		_ = conn.Close()
		return nil, op, err
	}
	_ = conn.SetReadDeadline(time.Now().Add(c.opts.HandshakeTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return fail(fmt.Errorf("read open packet: %w", err))
	}
	if op, err = parseOpen(string(data)); err != nil {
		return fail(err)
	}
	if c.opts.EngineIO == 4 {
		var auth any
		if token != "" {
			auth = map[string]string{"token": token}
		}
		pkt, err := encodeConnect(auth)
		if err != nil {
			return fail(err)
		}
		c.logger.Debug().Str("packet", redact.Packet(pkt)).Msg("sending connect")
		if err := c.writeText(conn, pkt); err != nil {
			return fail(fmt.Errorf("send connect: %w", err))
		}
	}
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fail(fmt.Errorf("await connect: %w", err))
		}
		s := string(data)
		switch {
		case s == string(enginePing):
			_ = c.writeText(conn, string(enginePong))
		case strings.HasPrefix(s, "40"):
			_ = conn.SetReadDeadline(time.Time{})
			return conn, op, nil
		case strings.HasPrefix(s, "44"):
			return fail(&RejectedError{Message: connectErrorMessage(s)})
		case len(s) > 0 && s[0] == engineClose:
			return fail(errors.New("server closed during handshake"))
		}
	}
}

// readLoop pumps inbound packets until the connection ends and classifies
// why it ended.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, op openPacket) (string, bool) {
	interval := time.Duration(op.PingInterval) * time.Millisecond
	if interval <= 0 {
		interval = defaultPingInterval
	}
	timeout := time.Duration(op.PingTimeout) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if c.opts.EngineIO == 3 {
		go c.pingLoop(loopCtx, conn, interval)
	}

	for {
		_ = conn.SetReadDeadline(time.Now().Add(interval + timeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ReasonClientDisconnect, true
			}
			return classifyReadError(err)
		}
		s := string(data)
		if s == "" {
			continue
		}
		switch s[0] {
		case enginePing:
			_ = c.writeText(conn, string(enginePong)+s[1:])
		case engineClose:
			return ReasonTransportClose, false
		case engineMessage:
			if len(s) < 2 {
				continue
			}
			switch s[1] {
			case sioDisconnect:
				return ReasonServerDisconnect, true
			case sioEvent:
				c.handleEvent(ctx, s)
			case sioConnectError:
				c.emit(ctx, domain.TransportError{Err: errors.New(connectErrorMessage(s))})
			}
		}
	}
}

func (c *Client) handleEvent(ctx context.Context, raw string) {
	nsp, ev, args, ok := ParseEvent(raw)
	if !ok || (nsp != "" && nsp != "/") {
		c.logger.Debug().Str("prefix", prefix(raw)).Msg("interview-monitor: ignoring packet")
		return
	}
	if ev != EventProctoringAlert {
		c.logger.Debug().Str("event", ev).Msg("interview-monitor: ignoring event")
		return
	}
	var msg domain.AlertMessage
	if err := eventArg(args, 0, &msg); err != nil {
		c.emit(ctx, domain.TransportError{Err: fmt.Errorf("decode %s: %w", ev, err)})
		return
	}
	c.emit(ctx, domain.ProctoringAlert{Message: msg})
}

// pingLoop drives the client-initiated heartbeat of Engine.IO v3.
func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn, interval time.Duration) {
	t := c.clock.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := c.writeText(conn, string(enginePing)); err != nil {
				return
			}
		}
	}
}

func (c *Client) writeText(conn *websocket.Conn, s string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, []byte(s))
}

// classifyReadError decides whether a broken connection is worth retrying.
// A normal close from the server is terminal; everything else is a drop.
func classifyReadError(err error) (string, bool) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		if ce.Code == websocket.CloseNormalClosure {
			return ReasonServerClose, true
		}
		return ReasonTransportClose, false
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ReasonPingTimeout, false
	}
	return ReasonTransportError, false
}

// EndpointURL turns the configured server URL into the socket.io websocket
// endpoint, e.g. http://host:5002 -> ws://host:5002/socket.io/?EIO=4&transport=websocket
func EndpointURL(serverURL string, eio int, path string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(serverURL))
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid server url %q", serverURL)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid server url scheme %q", u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = path
	}
	q := u.Query()
	q.Set("EIO", strconv.Itoa(eio))
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func prefix(s string) string {
	if len(s) > 6 {
		return s[:6]
	}
	return s
}
