package stream

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Transport dials one physical stream connection. Implementations must
// return a Conn whose Recv unblocks when ctx is canceled or Close is called.
type Transport interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Conn is one open stream. Recv blocks until the next complete message.
type Conn interface {
	Recv() ([]byte, error)
	Close() error
}

// SSETransport reads text/event-stream responses over plain HTTP. The zero
// value is usable; Header carries auth (cookie or bearer token) to the dial.
type SSETransport struct {
	Client *http.Client
	Header http.Header
}

func (t *SSETransport) Dial(ctx context.Context, url string) (Conn, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build stream request: %w", err)
	}
	for k, vs := range t.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	client := t.Client
	if client == nil {
		// The default client carries no timeout, which is what a
		// long-lived stream needs; cancellation comes from ctx.
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dial stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("dial stream: unexpected status %d", resp.StatusCode)
	}
	return &sseConn{body: resp.Body, r: bufio.NewReader(resp.Body)}, nil
}

type sseConn struct {
	body io.ReadCloser
	r    *bufio.Reader
}

// Recv assembles the next event-stream message: the concatenated payloads of
// its data fields, terminated by a blank line. Comment lines and fields other
// than data are skipped.
func (c *sseConn) Recv() ([]byte, error) {
	var data []byte
	for {
		line, err := c.r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if len(data) > 0 {
				return data, nil
			}
			continue
		}
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " ")
		if len(data) > 0 {
			data = append(data, '\n')
		}
		data = append(data, payload...)
	}
}

func (c *sseConn) Close() error {
	return c.body.Close()
}
