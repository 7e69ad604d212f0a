package speech

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-agent/internal/models"
)

// ==========================
// Test Logger Implementation
// ==========================

type TestLogger struct {
	t *testing.T
}

func (l *TestLogger) Info(msg string, fields map[string]interface{}) {
	l.t.Logf("INFO: %s %v", msg, fields)
}

func (l *TestLogger) Warn(msg string, fields map[string]interface{}) {
	l.t.Logf("WARN: %s %v", msg, fields)
}

func (l *TestLogger) Error(msg string, fields map[string]interface{}) {
	l.t.Logf("ERROR: %s %v", msg, fields)
}

func (l *TestLogger) With(fields map[string]interface{}) Logger { return l }

// ==========================
// Test Helper Functions
// ==========================

type countingRecognizer struct {
	*StreamRecognizer
	mu     sync.Mutex
	starts int
	avail  bool
}

func newCountingRecognizer() *countingRecognizer {
	return &countingRecognizer{StreamRecognizer: NewStreamRecognizer(), avail: true}
}

func (r *countingRecognizer) Available() bool { return r.avail }

func (r *countingRecognizer) Start(ctx context.Context, locale string) (Session, error) {
	r.mu.Lock()
	r.starts++
	r.mu.Unlock()
	return r.StreamRecognizer.Start(ctx, locale)
}

func (r *countingRecognizer) startCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.starts
}

type transcriptSink struct {
	mu   sync.Mutex
	got  []models.Transcript
	seen chan struct{}
}

func newTranscriptSink() *transcriptSink {
	return &transcriptSink{seen: make(chan struct{}, 64)}
}

func (s *transcriptSink) handle(t models.Transcript) {
	s.mu.Lock()
	s.got = append(s.got, t)
	s.mu.Unlock()
	s.seen <- struct{}{}
}

func (s *transcriptSink) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-s.seen:
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for transcript %d", i+1)
		}
	}
}

func (s *transcriptSink) transcripts() []models.Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Transcript(nil), s.got...)
}

func newTestAdapter(t *testing.T, rec Recognizer) *Adapter {
	return NewAdapter(&Config{Locale: "en-IN"}, rec, &TestLogger{t: t})
}

// ==========================
// Adapter Tests
// ==========================

func TestAdapter_DeliversFinalResultsInOrder(t *testing.T) {
	rec := newCountingRecognizer()
	adapter := newTestAdapter(t, rec)
	sink := newTranscriptSink()
	adapter.Subscribe(sink.handle)

	require.NoError(t, adapter.Start(context.Background()))
	defer adapter.Stop()

	rec.Push(Result{Transcript: "search for", IsFinal: false})
	rec.Push(Result{Transcript: "search for brake system fault", IsFinal: true})
	rec.Push(Result{Transcript: "   ", IsFinal: true})
	rec.Push(Result{Transcript: "open admin", IsFinal: true})

	sink.wait(t, 2)
	assert.Equal(t, []models.Transcript{"search for brake system fault", "open admin"}, sink.transcripts())
}

func TestAdapter_StartIsIdempotent(t *testing.T) {
	rec := newCountingRecognizer()
	adapter := newTestAdapter(t, rec)

	require.NoError(t, adapter.Start(context.Background()))
	require.NoError(t, adapter.Start(context.Background()))
	defer adapter.Stop()

	assert.Equal(t, 1, rec.startCount())
	assert.True(t, adapter.IsListening())
}

func TestAdapter_StopIsIdempotent(t *testing.T) {
	adapter := newTestAdapter(t, newCountingRecognizer())

	assert.NoError(t, adapter.Stop())

	require.NoError(t, adapter.Start(context.Background()))
	assert.NoError(t, adapter.Stop())
	assert.NoError(t, adapter.Stop())
	assert.False(t, adapter.IsListening())
}

func TestAdapter_NoDeliveryAfterStop(t *testing.T) {
	rec := newCountingRecognizer()
	adapter := newTestAdapter(t, rec)
	sink := newTranscriptSink()
	adapter.Subscribe(sink.handle)

	require.NoError(t, adapter.Start(context.Background()))
	rec.Push(Result{Transcript: "open dashboard", IsFinal: true})
	sink.wait(t, 1)

	require.NoError(t, adapter.Stop())
	assert.False(t, rec.Push(Result{Transcript: "open admin", IsFinal: true}))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []models.Transcript{"open dashboard"}, sink.transcripts())
}

func TestAdapter_RestartAfterStop(t *testing.T) {
	rec := newCountingRecognizer()
	adapter := newTestAdapter(t, rec)
	sink := newTranscriptSink()
	adapter.Subscribe(sink.handle)

	require.NoError(t, adapter.Start(context.Background()))
	require.NoError(t, adapter.Stop())
	require.NoError(t, adapter.Start(context.Background()))
	defer adapter.Stop()

	rec.Push(Result{Transcript: "go to my entries", IsFinal: true})
	sink.wait(t, 1)

	assert.Equal(t, 2, rec.startCount())
	assert.Equal(t, []models.Transcript{"go to my entries"}, sink.transcripts())
}

func TestAdapter_CaptureUnavailable(t *testing.T) {
	rec := newCountingRecognizer()
	rec.avail = false
	adapter := newTestAdapter(t, rec)

	err := adapter.Start(context.Background())

	assert.True(t, errors.Is(err, ErrCaptureUnavailable))
	assert.False(t, adapter.IsListening())
	assert.Equal(t, 0, rec.startCount())
}

func TestAdapter_NilRecognizerIsUnavailable(t *testing.T) {
	adapter := newTestAdapter(t, nil)
	assert.False(t, adapter.Available())
	assert.True(t, errors.Is(adapter.Start(context.Background()), ErrCaptureUnavailable))
}

func TestAdapter_SessionEndedByRecognizer(t *testing.T) {
	rec := newCountingRecognizer()
	adapter := newTestAdapter(t, rec)

	require.NoError(t, adapter.Start(context.Background()))
	rec.Close()

	assert.Eventually(t, func() bool { return !adapter.IsListening() }, time.Second, 10*time.Millisecond)
	assert.NoError(t, adapter.Stop())
}

func TestAdapter_Unsubscribe(t *testing.T) {
	rec := newCountingRecognizer()
	adapter := newTestAdapter(t, rec)

	first := newTranscriptSink()
	second := newTranscriptSink()
	unsubscribe := adapter.Subscribe(first.handle)
	adapter.Subscribe(second.handle)

	require.NoError(t, adapter.Start(context.Background()))
	defer adapter.Stop()

	rec.Push(Result{Transcript: "open admin", IsFinal: true})
	first.wait(t, 1)
	second.wait(t, 1)

	unsubscribe()
	rec.Push(Result{Transcript: "open dashboard", IsFinal: true})
	second.wait(t, 1)

	assert.Len(t, first.transcripts(), 1)
	assert.Len(t, second.transcripts(), 2)
}

func TestAdapter_IndependentInstances(t *testing.T) {
	recA, recB := newCountingRecognizer(), newCountingRecognizer()
	a, b := newTestAdapter(t, recA), newTestAdapter(t, recB)
	sinkA, sinkB := newTranscriptSink(), newTranscriptSink()
	a.Subscribe(sinkA.handle)
	b.Subscribe(sinkB.handle)

	require.NoError(t, a.Start(context.Background()))
	require.NoError(t, b.Start(context.Background()))
	defer a.Stop()
	defer b.Stop()

	recA.Push(Result{Transcript: "open admin", IsFinal: true})
	sinkA.wait(t, 1)

	assert.Empty(t, sinkB.transcripts())
}
