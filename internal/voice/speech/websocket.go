package speech

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// control frames sent to the recognition gateway
type controlFrame struct {
	Type           string `json:"type"`
	Locale         string `json:"locale,omitempty"`
	Continuous     bool   `json:"continuous,omitempty"`
	InterimResults bool   `json:"interimResults"`
}

// WebsocketRecognizer streams recognition results from a speech gateway.
type WebsocketRecognizer struct {
	url    string
	dialer *websocket.Dialer
	logger Logger
}

func NewWebsocketRecognizer(url string, log Logger) *WebsocketRecognizer {
	return &WebsocketRecognizer{
		url: url,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		logger: log.With(map[string]interface{}{
			"component": "ws-recognizer",
		}),
	}
}

func (r *WebsocketRecognizer) Available() bool {
	return r.url != ""
}

func (r *WebsocketRecognizer) Start(ctx context.Context, locale string) (Session, error) {
	if !r.Available() {
		return nil, ErrCaptureUnavailable
	}

	conn, _, err := r.dialer.DialContext(ctx, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrCaptureUnavailable, r.url, err)
	}

	start := controlFrame{Type: "start", Locale: locale, Continuous: true}
	if err := conn.WriteJSON(start); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: start: %v", ErrCaptureUnavailable, err)
	}

	s := &wsSession{
		conn:    conn,
		results: make(chan Result, 32),
		done:    make(chan struct{}),
		logger:  r.logger,
	}
	go s.readLoop()
	return s, nil
}

type wsSession struct {
	conn     *websocket.Conn
	results  chan Result
	done     chan struct{}
	logger   Logger
	stopOnce sync.Once
}

func (s *wsSession) Results() <-chan Result { return s.results }

func (s *wsSession) readLoop() {
	defer close(s.results)
	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if !isClosed(err) {
				s.logger.Warn("recognizer read failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
			return
		}

		var res Result
		if err := json.Unmarshal(msg, &res); err != nil {
			s.logger.Warn("ignoring malformed recognizer frame", map[string]interface{}{
				"error": err.Error(),
			})
			continue
		}
		select {
		case s.results <- res:
		case <-s.done:
			return
		}
	}
}

func (s *wsSession) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.done)
		_ = s.conn.WriteJSON(controlFrame{Type: "stop"})
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = s.conn.Close()
	})
	return err
}

func isClosed(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure) || errors.Is(err, net.ErrClosed)
}
