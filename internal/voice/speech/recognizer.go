// Package speech owns the speech capture session and turns finalized
// recognition results into transcript events.
package speech

import (
	"context"
	"errors"
	"sync"
)

var ErrCaptureUnavailable = errors.New("CAPTURE_UNAVAILABLE")

// Result is one recognition event. Interim results have IsFinal unset.
type Result struct {
	Transcript string `json:"transcript"`
	IsFinal    bool   `json:"isFinal"`
}

// Session is a running capture session. Results is closed when the session
// ends, whether by Stop or by the recognizer.
type Session interface {
	Results() <-chan Result
	Stop() error
}

// Recognizer is the speech capture capability.
type Recognizer interface {
	// Available reports whether capture can work in this environment.
	Available() bool
	Start(ctx context.Context, locale string) (Session, error)
}

// StreamRecognizer is fed by the caller, typically a connection that
// receives results from a browser recognizer.
type StreamRecognizer struct {
	mu      sync.Mutex
	session *streamSession
}

func NewStreamRecognizer() *StreamRecognizer {
	return &StreamRecognizer{}
}

func (r *StreamRecognizer) Available() bool { return true }

func (r *StreamRecognizer) Start(ctx context.Context, locale string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != nil {
		r.session.Stop()
	}
	r.session = &streamSession{results: make(chan Result, 32)}
	return r.session, nil
}

// Push hands a result to the active session. It returns false when no
// session is running or its buffer is full.
func (r *StreamRecognizer) Push(res Result) bool {
	r.mu.Lock()
	s := r.session
	r.mu.Unlock()

	if s == nil {
		return false
	}
	return s.push(res)
}

// Close ends the active session, as a dropped connection would.
func (r *StreamRecognizer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != nil {
		r.session.Stop()
		r.session = nil
	}
}

type streamSession struct {
	mu      sync.Mutex
	closed  bool
	results chan Result
}

func (s *streamSession) Results() <-chan Result { return s.results }

func (s *streamSession) push(res Result) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	select {
	case s.results <- res:
		return true
	default:
		return false
	}
}

func (s *streamSession) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.results)
	}
	return nil
}
