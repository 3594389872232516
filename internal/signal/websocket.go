package signal

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/opsdeck/opsdeck/internal/retry"
)

// envelope is the on-wire frame: the target user plus the signal itself.
type envelope struct {
	To     string `json:"to"`
	Signal Signal `json:"signal"`
}

// WebsocketTransport speaks the console's push channel over a single
// websocket connection. Reads reconnect with backoff; writes fail fast
// so the caller's error handling applies.
type WebsocketTransport struct {
	url    string
	token  string
	logger *zap.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func NewWebsocketTransport(url, token string, logger *zap.Logger) *WebsocketTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebsocketTransport{
		url:    url,
		token:  token,
		logger: logger,
	}
}

func (t *WebsocketTransport) dial(ctx context.Context) (*websocket.Conn, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, fmt.Errorf("transport closed")
	}
	if t.conn != nil {
		conn := t.conn
		t.mu.Unlock()
		return conn, nil
	}
	t.mu.Unlock()

	header := http.Header{}
	if t.token != "" {
		header.Set("Authorization", "Bearer "+t.token)
	}
	conn, _, err := websocket.Dial(ctx, t.url, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		return nil, fmt.Errorf("dial signal channel: %w", err)
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "")
		return nil, fmt.Errorf("transport closed")
	}
	t.conn = conn
	t.mu.Unlock()
	return conn, nil
}

func (t *WebsocketTransport) drop(conn *websocket.Conn) {
	t.mu.Lock()
	if t.conn == conn {
		t.conn = nil
	}
	t.mu.Unlock()
	_ = conn.Close(websocket.StatusInternalError, "")
}

func (t *WebsocketTransport) Publish(ctx context.Context, userID string, sig Signal) error {
	conn, err := t.dial(ctx)
	if err != nil {
		return err
	}
	if err := wsjson.Write(ctx, conn, envelope{To: userID, Signal: sig}); err != nil {
		t.drop(conn)
		return fmt.Errorf("publish signal: %w", err)
	}
	return nil
}

// Subscribe reads inbound envelopes until the context is cancelled,
// reconnecting with jittered backoff after read failures. Malformed
// frames are skipped.
func (t *WebsocketTransport) Subscribe(ctx context.Context, userID string, handler func(Signal)) error {
	cfg := retry.DefaultConfig()
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var conn *websocket.Conn
		err := retry.WithBackoff(ctx, cfg, func() error {
			var dialErr error
			conn, dialErr = t.dial(ctx)
			return dialErr
		})
		if err != nil {
			return err
		}

		for {
			var env envelope
			if err := wsjson.Read(ctx, conn, &env); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				t.logger.Debug("signal read failed, reconnecting", zap.Error(err))
				t.drop(conn)
				break
			}
			if env.Signal.Event == "" {
				t.logger.Debug("skipping malformed signal frame")
				continue
			}
			if env.To != "" && env.To != userID {
				continue
			}
			handler(env.Signal)
		}
	}
}

func (t *WebsocketTransport) Close() error {
	t.mu.Lock()
	t.closed = true
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()

	if conn != nil {
		return conn.Close(websocket.StatusNormalClosure, "client shutdown")
	}
	return nil
}
