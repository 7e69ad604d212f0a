// Package server exposes the voice command core over HTTP and a websocket
// speech gateway.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"voice-agent/internal/models"
	"voice-agent/internal/voice/dispatcher"
	"voice-agent/internal/voice/feedback"
	"voice-agent/internal/voice/speech"
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// CommandProcessor handles one transcript.
type CommandProcessor interface {
	ProcessCommand(ctx context.Context, transcript string) models.CommandOutcome
}

// SearchRunner runs the multi-agent search pipeline.
type SearchRunner interface {
	Run(ctx context.Context, query string, agents []string) models.PipelineResult
}

// VoiceSession is the per-connection voice stack of the speech gateway.
type VoiceSession struct {
	Recognizer *speech.StreamRecognizer
	Adapter    *speech.Adapter
	Dispatcher *dispatcher.Dispatcher
	Sink       *feedback.Sink
}

// SessionFactory builds a voice session that speaks through synth.
type SessionFactory func(synth feedback.Synthesizer) *VoiceSession

// ReadinessCheck reports whether a backing service is reachable.
type ReadinessCheck func(ctx context.Context) error

type Config struct {
	Port            int
	ShutdownTimeout time.Duration
}

type Dependencies struct {
	Commands CommandProcessor
	Search   SearchRunner
	Sessions SessionFactory
	Checks   map[string]ReadinessCheck
	Metrics  http.Handler
}

type Server struct {
	config *Config
	deps   Dependencies
	srv    *http.Server
	logger Logger
}

func New(config *Config, deps Dependencies, log Logger) *Server {
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 30 * time.Second
	}

	s := &Server{
		config: config,
		deps:   deps,
		logger: log.With(map[string]interface{}{
			"component": "server",
		}),
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", config.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.logger.Info("HTTP server starting", map[string]interface{}{
		"address": s.srv.Addr,
	})

	go func() {
		<-ctx.Done()
		s.logger.Info("shutting down HTTP server", nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("HTTP server shutdown error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}
