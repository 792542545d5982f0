package stream

import (
	"context"
	"fmt"
	"net/http"

	ws "github.com/coder/websocket"
)

// WSTransport dials the WebSocket variant of the stream endpoint. Messages
// carry the same JSON events as SSE, one event per websocket message.
type WSTransport struct {
	HTTPClient *http.Client
	Header     http.Header
}

func (t *WSTransport) Dial(ctx context.Context, url string) (Conn, error) {
	conn, _, err := ws.Dial(ctx, url, &ws.DialOptions{
		HTTPClient: t.HTTPClient,
		HTTPHeader: t.Header,
	})
	if err != nil {
		return nil, fmt.Errorf("dial websocket: %w", err)
	}
	return &wsConn{conn: conn, ctx: ctx}, nil
}

type wsConn struct {
	conn *ws.Conn
	ctx  context.Context
}

func (c *wsConn) Recv() ([]byte, error) {
	_, data, err := c.conn.Read(c.ctx)
	return data, err
}

func (c *wsConn) Close() error {
	return c.conn.Close(ws.StatusNormalClosure, "")
}
