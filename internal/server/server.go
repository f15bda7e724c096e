// Package server exposes voice activity detection over a websocket
// streaming API.
//
// A client opens /v1/stream, sends a JSON start message describing the
// stream (sample rate, frame size, mode, debounce durations, codec) and
// then sends one binary message per audio frame. The server answers each
// frame with a JSON result carrying the raw speech decision and, when the
// debouncer fires, a speech_detected or noise_detected event. Each
// connection owns its own detector; frames within a connection are
// processed serially, connections are independent.
//
// Alongside the stream endpoint the server serves /metrics (Prometheus),
// /healthz and /readyz.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/voxgate/internal/config"
	"github.com/MrWong99/voxgate/internal/health"
	"github.com/MrWong99/voxgate/internal/observe"
	"github.com/MrWong99/voxgate/pkg/vad"
	"github.com/MrWong99/voxgate/pkg/vad/webrtc"
)

// shutdownTimeout bounds graceful shutdown once the run context is
// cancelled.
const shutdownTimeout = 10 * time.Second

// Server serves the streaming VAD API.
type Server struct {
	cfg     *config.Config
	log     *slog.Logger
	metrics *observe.Metrics
	health  *health.Handler
}

// New creates a Server from cfg. The metrics argument may be nil, in which
// case frame and event metrics are not recorded.
func New(cfg *config.Config, log *slog.Logger, metrics *observe.Metrics) *Server {
	s := &Server{
		cfg:     cfg,
		log:     log,
		metrics: metrics,
	}
	s.health = health.New(health.Checker{
		Name:  "detector",
		Check: s.checkDetector,
	})
	return s
}

// checkDetector verifies that the configured detector engine can be
// constructed. It backs the /readyz probe.
func (s *Server) checkDetector(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	vc, err := s.cfg.Detector.VADConfig()
	if err != nil {
		return err
	}
	det, err := webrtc.New(vc)
	if err != nil {
		return err
	}
	return det.Close()
}

// Handler returns the full route table of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/stream", s.handleStream)
	if s.cfg.Metrics.Enabled {
		mux.Handle("GET /metrics", promhttp.Handler())
	}
	s.health.Register(mux)
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:     s.cfg.Server.ListenAddr,
		Handler:  s.Handler(),
		ErrorLog: slog.NewLogLogger(s.log.Handler(), slog.LevelWarn),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info("listening", "addr", s.cfg.Server.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil {
			return fmt.Errorf("server: shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// detectorConfig merges the start message with the server's configured
// defaults: zero-valued start fields fall back to the detector section of
// the config file.
func (s *Server) detectorConfig(start *startMessage) (vad.Config, error) {
	d := s.cfg.Detector
	if start.SampleRate != 0 {
		d.SampleRate = start.SampleRate
	}
	if start.FrameSize != 0 {
		d.FrameSize = start.FrameSize
	}
	if start.Mode != "" {
		d.Mode = start.Mode
	}
	if start.SpeechDurationMs != 0 {
		d.SpeechDurationMs = start.SpeechDurationMs
	}
	if start.SilenceDurationMs != 0 {
		d.SilenceDurationMs = start.SilenceDurationMs
	}
	if start.LevelTriggered != nil {
		d.LevelTriggered = *start.LevelTriggered
	}
	return d.VADConfig()
}
