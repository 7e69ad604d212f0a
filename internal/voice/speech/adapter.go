package speech

import (
	"context"
	"strings"
	"sync"

	"voice-agent/internal/common/metrics"
	"voice-agent/internal/models"
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Handler receives finalized transcripts. Handlers run on the adapter's
// delivery goroutine, one at a time in finalization order, and must not
// call Stop.
type Handler func(models.Transcript)

type Config struct {
	Locale string
}

type subscriber struct {
	id      int
	handler Handler
}

// Adapter owns the listening state and at most one capture session.
type Adapter struct {
	config     *Config
	recognizer Recognizer
	logger     Logger

	mu        sync.Mutex
	listening bool
	session   Session
	cancel    context.CancelFunc
	done      chan struct{}

	subMu  sync.RWMutex
	subs   []subscriber
	nextID int
}

func NewAdapter(config *Config, recognizer Recognizer, log Logger) *Adapter {
	return &Adapter{
		config:     config,
		recognizer: recognizer,
		logger: log.With(map[string]interface{}{
			"component": "speech",
			"locale":    config.Locale,
		}),
	}
}

// Subscribe registers h for transcript events and returns a function that
// removes it.
func (a *Adapter) Subscribe(h Handler) func() {
	a.subMu.Lock()
	defer a.subMu.Unlock()

	a.nextID++
	id := a.nextID
	a.subs = append(a.subs, subscriber{id: id, handler: h})

	return func() {
		a.subMu.Lock()
		defer a.subMu.Unlock()
		for i, s := range a.subs {
			if s.id == id {
				a.subs = append(a.subs[:i], a.subs[i+1:]...)
				return
			}
		}
	}
}

// Available is the capture capability probe.
func (a *Adapter) Available() bool {
	return a.recognizer != nil && a.recognizer.Available()
}

// IsListening reports whether a capture session is running.
func (a *Adapter) IsListening() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.listening
}

// Start opens a capture session. It is a no-op while already listening and
// returns ErrCaptureUnavailable when capture is not supported.
func (a *Adapter) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.listening {
		return nil
	}
	if !a.Available() {
		return ErrCaptureUnavailable
	}

	session, err := a.recognizer.Start(ctx, a.config.Locale)
	if err != nil {
		a.logger.Error("failed to start capture", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}

	pumpCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	a.listening = true
	a.session = session
	a.cancel = cancel
	a.done = done

	metrics.SpeechSessionsActive.Inc()
	go a.pump(pumpCtx, session, done)

	a.logger.Info("listening started", nil)
	return nil
}

// Stop ends the capture session. Results not yet finalized are discarded
// and no transcript is delivered once Stop returns. It is a no-op when not
// listening.
func (a *Adapter) Stop() error {
	a.mu.Lock()
	if !a.listening {
		a.mu.Unlock()
		return nil
	}
	session, cancel, done := a.session, a.cancel, a.done
	a.listening = false
	a.session = nil
	a.cancel = nil
	a.done = nil
	a.mu.Unlock()

	cancel()
	err := session.Stop()
	<-done

	a.logger.Info("listening stopped", nil)
	return err
}

func (a *Adapter) pump(ctx context.Context, session Session, done chan struct{}) {
	defer close(done)
	defer metrics.SpeechSessionsActive.Dec()

	results := session.Results()
	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-results:
			if !ok {
				a.sessionEnded(session)
				return
			}
			if !res.IsFinal {
				continue
			}
			text := strings.TrimSpace(res.Transcript)
			if text == "" {
				continue
			}
			// a result racing with Stop is dropped
			if ctx.Err() != nil {
				return
			}
			a.deliver(models.Transcript(text))
		}
	}
}

// sessionEnded clears the listening state when the recognizer closed the
// session on its own.
func (a *Adapter) sessionEnded(session Session) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.session != session {
		return
	}
	a.listening = false
	a.session = nil
	a.cancel()
	a.cancel = nil
	a.done = nil

	a.logger.Warn("capture session ended by recognizer", nil)
}

func (a *Adapter) deliver(t models.Transcript) {
	a.subMu.RLock()
	subs := make([]subscriber, len(a.subs))
	copy(subs, a.subs)
	a.subMu.RUnlock()

	for _, s := range subs {
		s.handler(t)
	}
}
