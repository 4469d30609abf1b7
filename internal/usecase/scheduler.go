package usecase

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"interview-monitor/internal/domain"
	"interview-monitor/internal/infrastructure/clock"
	obs "interview-monitor/internal/infrastructure/observability"
)

// MaxFrameErrors is the number of consecutive capture failures that ends a session.
const MaxFrameErrors = 10

// Executor runs fn on the owner's serialized timeline.
type Executor func(fn func())

// CaptureRun wires one capture loop to its session.
type CaptureRun struct {
	Interval  time.Duration
	Transport Transport
	Exec      Executor
	// OnTargetLost runs when the target is gone from the page.
	OnTargetLost func()
	// OnFatal runs once when the error ceiling is reached.
	OnFatal func(err error)
}

type cancelToken struct{ cancelled atomic.Bool }

// FrameCaptureScheduler samples the selected target on a fixed interval.
// Start, Cancel and every tick run on the owner's executor; a tick queued
// before Cancel sees its token cancelled and does nothing.
type FrameCaptureScheduler struct {
	clock    clock.Clock
	registry *VideoSourceRegistry
	encoder  FrameEncoder
	logger   *zerolog.Logger
	metrics  *obs.Metrics

	run      CaptureRun
	token    *cancelToken
	ticker   *clock.Ticker
	done     chan struct{}
	errCount uint
}

func NewFrameCaptureScheduler(clk clock.Clock, registry *VideoSourceRegistry, enc FrameEncoder, logger *zerolog.Logger, metrics *obs.Metrics) *FrameCaptureScheduler {
	if clk == nil {
		clk = clock.Real()
	}
	return &FrameCaptureScheduler{
		clock:    clk,
		registry: registry,
		encoder:  enc,
		logger:   obs.Component(logger, "capture"),
		metrics:  metrics,
	}
}

// Start cancels any previous loop and begins a new one. The error counter restarts at zero.
func (s *FrameCaptureScheduler) Start(run CaptureRun) {
	s.Cancel()
	tok := &cancelToken{}
	ticker := s.clock.NewTicker(run.Interval)
	done := make(chan struct{})
	s.run, s.token, s.ticker, s.done = run, tok, ticker, done
	s.errCount = 0
	s.logger.Debug().Dur("interval", run.Interval).Msg("capture loop started")

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				run.Exec(func() {
					if tok.cancelled.Load() {
						return
					}
					s.tick()
				})
			}
		}
	}()
}

// Cancel stops the loop. Idempotent; it does not wait for the goroutine.
func (s *FrameCaptureScheduler) Cancel() {
	if s.token == nil {
		return
	}
	s.token.cancelled.Store(true)
	s.ticker.Stop()
	close(s.done)
	s.token, s.ticker, s.done = nil, nil, nil
	s.run = CaptureRun{}
	s.logger.Debug().Msg("capture loop cancelled")
}

func (s *FrameCaptureScheduler) Running() bool { return s.token != nil }

// ErrorCount is the current number of consecutive capture failures.
func (s *FrameCaptureScheduler) ErrorCount() uint { return s.errCount }

func (s *FrameCaptureScheduler) ResetErrors() { s.errCount = 0 }

func (s *FrameCaptureScheduler) tick() {
	run := s.run
	target := s.registry.Selected()
	switch s.registry.Validate(target) {
	case TargetLost:
		s.metrics.Frame("target_lost")
		if run.OnTargetLost != nil {
			run.OnTargetLost()
		}
		return
	case TargetNotReady:
		s.metrics.Frame("skipped")
		return
	}

	frame, err := s.capture(target)
	if err != nil {
		s.errCount++
		s.metrics.Frame("capture_error")
		s.logger.Warn().Err(err).Uint("consecutive", s.errCount).Str("source", target.ID()).Msg("frame capture failed")
		if s.errCount == MaxFrameErrors && run.OnFatal != nil {
			run.OnFatal(fmt.Errorf("%w: %d consecutive failures: %v", domain.ErrCaptureFailed, s.errCount, err))
		}
		return
	}
	if run.Transport == nil || !run.Transport.Connected() {
		s.metrics.Frame("dropped")
		return
	}
	if err := run.Transport.SendFrame(frame.DataURL()); err != nil {
		s.metrics.Frame("dropped")
		s.logger.Debug().Err(err).Msg("frame dropped")
		return
	}
	s.errCount = 0
	s.metrics.Frame("sent")
}

func (s *FrameCaptureScheduler) capture(src VideoSource) (domain.Frame, error) {
	img, err := src.CurrentImage()
	if err != nil {
		return domain.Frame{}, err
	}
	return s.encoder.Encode(img)
}
