package feedback

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var ErrSynthesizerClosed = errors.New("SYNTHESIZER_CLOSED")

// WebsocketSynthesizer sends utterances as JSON frames to a websocket peer
// that plays them. It also carries any other JSON frames written through it,
// since a connection allows only one concurrent writer.
type WebsocketSynthesizer struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	owned  bool
	closed bool
}

func NewWebsocketSynthesizer(conn *websocket.Conn) *WebsocketSynthesizer {
	return &WebsocketSynthesizer{conn: conn}
}

// DialWebsocketSynthesizer connects to a speech gateway.
func DialWebsocketSynthesizer(ctx context.Context, url string) (*WebsocketSynthesizer, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	w := NewWebsocketSynthesizer(conn)
	w.owned = true
	return w, nil
}

func (w *WebsocketSynthesizer) Available() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn != nil && !w.closed
}

func (w *WebsocketSynthesizer) Speak(ctx context.Context, u Utterance) error {
	return w.WriteJSON(ctx, u)
}

// WriteJSON writes one frame, honouring the context deadline.
func (w *WebsocketSynthesizer) WriteJSON(ctx context.Context, v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil || w.closed {
		return ErrSynthesizerClosed
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = w.conn.SetWriteDeadline(deadline)
		defer w.conn.SetWriteDeadline(time.Time{})
	}
	return w.conn.WriteJSON(v)
}

// Close marks the synthesizer closed. The connection itself belongs to the
// caller unless it was dialed here.
func (w *WebsocketSynthesizer) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	if w.owned && w.conn != nil {
		w.conn.Close()
	}
}
