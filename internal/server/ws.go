package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	apperrors "voice-agent/internal/common/errors"
	"voice-agent/internal/models"
	"voice-agent/internal/voice/feedback"
	"voice-agent/internal/voice/speech"
)

const outcomeWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// speechFrame is sent by the browser or edge recognizer. Type is "result"
// (the default), "start" or "stop".
type speechFrame struct {
	Type       string `json:"type"`
	Transcript string `json:"transcript"`
	IsFinal    bool   `json:"isFinal"`
}

type outcomeFrame struct {
	Type    string                `json:"type"`
	Outcome models.CommandOutcome `json:"outcome"`
}

type errorFrame struct {
	Type  string              `json:"type"`
	Code  apperrors.ErrorCode `json:"code"`
	Error string              `json:"error"`
}

// handleSpeech runs one voice session per connection: recognition results
// arrive as frames, outcomes and utterances go back on the same socket.
func (s *Server) handleSpeech(w http.ResponseWriter, r *http.Request) {
	if s.deps.Sessions == nil {
		http.Error(w, "speech gateway disabled", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	defer conn.Close()

	q := r.URL.Query()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if q.Get("sessionId") != "" || q.Get("employeeId") != "" {
		ctx = models.WithSession(ctx, &models.Session{
			ID:           q.Get("sessionId"),
			EmployeeID:   q.Get("employeeId"),
			Role:         models.Role(q.Get("role")),
			LastActivity: time.Now(),
		})
	}

	log := s.logger.With(map[string]interface{}{
		"remote":    r.RemoteAddr,
		"sessionId": q.Get("sessionId"),
	})

	synth := feedback.NewWebsocketSynthesizer(conn)
	vs := s.deps.Sessions(synth)
	defer func() {
		_ = vs.Adapter.Stop()
		vs.Sink.Close()
		synth.Close()
	}()

	stream := vs.Dispatcher.Subscribe(ctx, vs.Adapter)
	listening := make(chan struct{})
	go func() {
		defer close(listening)
		stream.Run(ctx, func(o models.CommandOutcome) {
			wctx, wcancel := context.WithTimeout(ctx, outcomeWriteTimeout)
			defer wcancel()
			if err := synth.WriteJSON(wctx, outcomeFrame{Type: "outcome", Outcome: o}); err != nil {
				log.Warn("failed to send outcome", map[string]interface{}{
					"commandId": o.CommandID,
					"error":     err.Error(),
				})
			}
		})
	}()
	defer func() {
		cancel()
		<-listening
	}()

	if err := vs.Adapter.Start(ctx); err != nil {
		log.Error("failed to start capture", map[string]interface{}{
			"error": err.Error(),
		})
		s.sendError(ctx, synth, err)
		return
	}

	log.Info("speech session opened", nil)
	defer log.Info("speech session closed", nil)

	for {
		var frame speechFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if !isClosed(err) {
				log.Warn("speech session read failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
			return
		}

		switch frame.Type {
		case "start":
			if err := vs.Adapter.Start(ctx); err != nil {
				s.sendError(ctx, synth, err)
			}
		case "stop":
			_ = vs.Adapter.Stop()
		default:
			vs.Recognizer.Push(speech.Result{Transcript: frame.Transcript, IsFinal: frame.IsFinal})
		}
	}
}

func (s *Server) sendError(ctx context.Context, synth *feedback.WebsocketSynthesizer, err error) {
	wctx, cancel := context.WithTimeout(ctx, outcomeWriteTimeout)
	defer cancel()
	code := apperrors.ErrCodeInternal
	if errors.Is(err, speech.ErrCaptureUnavailable) {
		code = apperrors.ErrCodeCaptureUnavailable
	}
	_ = synth.WriteJSON(wctx, errorFrame{Type: "error", Code: code, Error: err.Error()})
}

func isClosed(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure) || errors.Is(err, net.ErrClosed)
}
