package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"nhooyr.io/websocket"
)

// WebSocket is a Channel over a wss endpoint. The zero value is not usable;
// construct with NewWebSocket. Open may be called again after Close to dial
// a fresh connection (reconnects reuse the same Channel value).
type WebSocket struct {
	url   string
	token string

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func NewWebSocket(url, token string) *WebSocket {
	return &WebSocket{url: url, token: token}
}

func (w *WebSocket) Open(ctx context.Context) error {
	headers := http.Header{}
	if w.token != "" {
		headers.Set("Authorization", "Bearer "+w.token)
	}

	conn, _, err := websocket.Dial(ctx, w.url, &websocket.DialOptions{HTTPHeader: headers})
	if err != nil {
		return &ConnectError{URL: w.url, Err: err}
	}
	// Audio sessions stream many small frames; the default 32 KiB read
	// limit is fine for chunked PCM but not for batched captions.
	conn.SetReadLimit(1 << 20)

	w.mu.Lock()
	w.conn = conn
	w.closed = false
	w.mu.Unlock()
	return nil
}

func (w *WebSocket) Send(ctx context.Context, data []byte) error {
	w.mu.Lock()
	conn := w.conn
	w.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("send: %w", ErrClosed)
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("send: %w: %v", ErrClosed, err)
	}
	return nil
}

func (w *WebSocket) Receive(ctx context.Context) ([]byte, error) {
	w.mu.Lock()
	conn := w.conn
	w.mu.Unlock()
	if conn == nil {
		return nil, fmt.Errorf("receive: %w", ErrClosed)
	}
	_, data, err := conn.Read(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("receive: %w: %v", ErrClosed, err)
	}
	return data, nil
}

func (w *WebSocket) Close() error {
	w.mu.Lock()
	conn := w.conn
	w.conn = nil
	alreadyClosed := w.closed
	w.closed = true
	w.mu.Unlock()

	if conn == nil || alreadyClosed {
		return nil
	}
	return conn.Close(websocket.StatusNormalClosure, "")
}
