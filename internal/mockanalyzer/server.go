// Package mockanalyzer is a stand-in for the remote analysis backend. It
// accepts frames over Socket.IO (Engine.IO v3) and answers with synthetic
// proctoring alerts so the client can be exercised without the real models.
package mockanalyzer

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	"net/http"
	"strings"
	"sync"
	"time"

	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/zerolog"

	sioclient "interview-monitor/internal/adapters/socketio"
	"interview-monitor/internal/domain"
)

type Options struct {
	// AlertEvery emits one synthetic alert per this many accepted frames. Zero disables.
	AlertEvery int
}

var samples = []domain.AlertMessage{
	{Alert: "🟡 ATTENTION: Looking Away", Description: "Candidate gaze has been off screen for a while."},
	{Alert: "🟠 WARNING: Face Not Detected", Description: "No face visible in the frame."},
	{Alert: "🔴 ALERT: Multiple People Detected", Description: "Detected 2 people in the frame. Only the candidate should be present."},
}

type clientState struct {
	frames int
	errors int
}

type Server struct {
	opts   Options
	logger *zerolog.Logger
	sio    *socketio.Server

	mu      sync.Mutex
	clients map[string]*clientState
	started time.Time
}

func New(opts Options, logger *zerolog.Logger) *Server {
	if logger == nil {
		l := zerolog.Nop()
		logger = &l
	}
	s := &Server{
		opts:    opts,
		logger:  logger,
		sio:     socketio.NewServer(nil),
		clients: make(map[string]*clientState),
		started: time.Now(),
	}
	s.sio.OnConnect("/", s.onConnect)
	s.sio.OnDisconnect("/", s.onDisconnect)
	s.sio.OnError("/", func(c socketio.Conn, err error) {
		s.logger.Warn().Err(err).Msg("socket.io error")
	})
	s.sio.OnEvent("/", sioclient.EventVideoFrame, s.onFrame)
	s.sio.OnEvent("/", sioclient.EventManualRequest, s.onManualRequest)
	s.sio.OnEvent("/", sioclient.EventClientResponse, func(c socketio.Conn, msg map[string]any) {
		s.logger.Info().Str("sid", c.ID()).Interface("response", msg).Msg("client response")
	})
	s.sio.OnEvent("/", sioclient.EventClientAlert, s.onClientAlert)
	return s
}

// Serve runs the socket.io event loop until Close.
func (s *Server) Serve() error { return s.sio.Serve() }

func (s *Server) Close() error { return s.sio.Close() }

// Handler serves /socket.io/ and /health.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/socket.io/", s.sio)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":             "healthy",
		"active_connections": s.Connections(),
		"uptime_seconds":     int(time.Since(s.started).Seconds()),
	})
}

func (s *Server) onConnect(c socketio.Conn) error {
	s.mu.Lock()
	s.clients[c.ID()] = &clientState{}
	s.mu.Unlock()
	s.logger.Info().Str("sid", c.ID()).Str("remote", fmt.Sprint(c.RemoteAddr())).Msg("interviewer client connected")
	c.Emit(sioclient.EventProctoringAlert, domain.AlertMessage{
		Alert:       "🟢 System Connected",
		Description: "AI proctor is ready.",
	})
	return nil
}

func (s *Server) onDisconnect(c socketio.Conn, reason string) {
	s.mu.Lock()
	delete(s.clients, c.ID())
	s.mu.Unlock()
	s.logger.Info().Str("sid", c.ID()).Str("reason", reason).Msg("interviewer client disconnected")
}

func (s *Server) onFrame(c socketio.Conn, data string) {
	s.mu.Lock()
	st, ok := s.clients[c.ID()]
	if !ok {
		s.mu.Unlock()
		s.logger.Warn().Str("sid", c.ID()).Msg("frame from unknown session")
		return
	}
	st.frames++
	frames := st.frames
	err := checkFrame(data)
	if err != nil {
		st.errors++
	}
	errs := st.errors
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn().Err(err).Str("sid", c.ID()).Msg("bad frame")
		if errs > 10 && errs%10 == 0 {
			c.Emit(sioclient.EventProctoringAlert, domain.AlertMessage{
				Alert:       "⚠️ Processing Errors",
				Description: fmt.Sprintf("Encountered %d errors processing frames. Check video quality.", errs),
			})
		}
		return
	}
	if frames%100 == 0 {
		s.logger.Info().Str("sid", c.ID()).Int("frames", frames).Int("errors", errs).Msg("frames processed")
	}
	if s.opts.AlertEvery > 0 && frames%s.opts.AlertEvery == 0 {
		msg := samples[(frames/s.opts.AlertEvery-1)%len(samples)]
		score := 20 * (1 + (frames/s.opts.AlertEvery-1)%len(samples))
		msg.SuspicionScore = &score
		c.Emit(sioclient.EventProctoringAlert, msg)
	}
}

// checkFrame validates a data URL carrying an encoded image.
func checkFrame(data string) error {
	_, payload, ok := strings.Cut(data, ",")
	if !ok {
		return fmt.Errorf("invalid frame data format")
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return fmt.Errorf("decode base64: %w", err)
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("decode image: %w", err)
	}
	return nil
}

func (s *Server) onManualRequest(c socketio.Conn, req domain.ManualRequest) {
	s.logger.Info().Str("sid", c.ID()).Str("type", req.Type).Msg("manual request")
	if req.Type != domain.KindScanRequest {
		return
	}
	c.Emit(sioclient.EventProctoringAlert, domain.AlertMessage{
		Alert:       "🔵 REQUEST: 360° Environmental Scan",
		Description: "Proctor has manually requested a 360-degree scan of your surroundings.",
		Type:        domain.KindScanRequest,
	})
}

// onClientAlert echoes interviewer-side alerts back into the feed.
func (s *Server) onClientAlert(c socketio.Conn, a domain.ClientAlert) {
	s.logger.Info().Str("sid", c.ID()).Str("alert", a.Alert).Msg("client-side alert")
	c.Emit(sioclient.EventProctoringAlert, domain.AlertMessage{Alert: a.Alert, Description: a.Description})
}
