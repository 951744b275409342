package stream

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// Event is one server-sent event as delivered on the wire.
type Event struct {
	Name string
	Data string
}

// Conn is an open event-stream connection. Events() is closed when the
// transport fails or the connection is closed; Err() then reports the read
// error, if any.
type Conn interface {
	Events() <-chan Event
	Err() error
	Close() error
}

// Dialer opens event-stream connections.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// TokenSource yields the current bearer token, or "".
type TokenSource func() string

// HTTPDialer dials a long-lived SSE endpoint over plain HTTP. The client
// must not carry a timeout: the connection is expected to stay open.
type HTTPDialer struct {
	Client *http.Client
	URL    string
	Token  TokenSource
}

func (d *HTTPDialer) Dial(ctx context.Context) (Conn, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if d.Token != nil {
		if token := d.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()

		return nil, fmt.Errorf("stream: unexpected status %d", resp.StatusCode)
	}

	c := &httpConn{
		body:   resp.Body,
		events: make(chan Event),
		closed: make(chan struct{}),
	}
	go c.read()

	return c, nil
}

type httpConn struct {
	body   io.ReadCloser
	events chan Event

	mu  sync.Mutex
	err error

	closeOnce sync.Once
	closed    chan struct{}
}

func (c *httpConn) Events() <-chan Event {
	return c.events
}

func (c *httpConn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.err
}

func (c *httpConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
	})

	return c.body.Close()
}

// read parses the SSE framing: field lines accumulate into an event, a blank
// line dispatches it. Comment lines and fields the client does not use
// (id, retry) are skipped.
func (c *httpConn) read() {
	defer close(c.events)

	scanner := bufio.NewScanner(c.body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var name string
	var data []string

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if len(data) > 0 {
				ev := Event{Name: name, Data: strings.Join(data, "\n")}
				select {
				case c.events <- ev:
				case <-c.closed:
					return
				}
			}
			name = ""
			data = nil
		case strings.HasPrefix(line, ":"):
			// keep-alive comment
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}

	c.mu.Lock()
	c.err = scanner.Err()
	c.mu.Unlock()
}
