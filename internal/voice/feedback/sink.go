// Package feedback speaks short confirmations back to the operator.
package feedback

import (
	"context"
	"sync"
	"time"
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Utterance is one line of synthesized speech.
type Utterance struct {
	Type   string  `json:"type"`
	Text   string  `json:"text"`
	Locale string  `json:"locale"`
	Rate   float64 `json:"rate"`
}

// Synthesizer is the speech output capability.
type Synthesizer interface {
	Available() bool
	Speak(ctx context.Context, u Utterance) error
}

type Config struct {
	Locale    string
	Rate      float64
	Timeout   time.Duration
	QueueSize int
}

// Sink queues utterances and plays them in order on one goroutine. Speak
// never blocks and never fails.
type Sink struct {
	config *Config
	synth  Synthesizer
	logger Logger

	queue     chan Utterance
	done      chan struct{}
	closeOnce sync.Once
}

// NewSink starts the playback goroutine. synth may be nil, in which case
// every Speak is a no-op.
func NewSink(config *Config, synth Synthesizer, log Logger) *Sink {
	if config.QueueSize <= 0 {
		config.QueueSize = 16
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	s := &Sink{
		config: config,
		synth:  synth,
		logger: log.With(map[string]interface{}{
			"component": "feedback",
		}),
		queue: make(chan Utterance, config.QueueSize),
		done:  make(chan struct{}),
	}
	go s.run()
	return s
}

// Speak queues text for synthesis.
func (s *Sink) Speak(text string) {
	if text == "" || s.synth == nil || !s.synth.Available() {
		return
	}

	u := Utterance{Type: "speak", Text: text, Locale: s.config.Locale, Rate: s.config.Rate}
	select {
	case <-s.done:
	case s.queue <- u:
	default:
		s.logger.Warn("speech queue full, dropping utterance", map[string]interface{}{
			"text": text,
		})
	}
}

// Close stops playback. Queued utterances that have not started are dropped.
func (s *Sink) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *Sink) run() {
	for {
		select {
		case <-s.done:
			return
		case u := <-s.queue:
			ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
			if err := s.synth.Speak(ctx, u); err != nil {
				s.logger.Warn("speech synthesis failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
			cancel()
		}
	}
}
