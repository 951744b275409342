package stream

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveSSE(t *testing.T, body string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, body)
	}))
}

func collect(t *testing.T, conn Conn) []Event {
	t.Helper()

	var events []Event
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-conn.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("timed out draining events")
		}
	}
}

func TestDialParsesEvents(t *testing.T) {
	body := ": connected\n\n" +
		"event: ORDER_UPDATED\n" +
		"data: {\"id\":1}\n\n" +
		"event: ORDER_UPDATED\n" +
		"data: {\"id\":2}\n\n"
	ts := serveSSE(t, body)
	defer ts.Close()

	d := &HTTPDialer{URL: ts.URL}
	conn, err := d.Dial(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	events := collect(t, conn)

	require.Len(t, events, 2)
	assert.Equal(t, Event{Name: "ORDER_UPDATED", Data: `{"id":1}`}, events[0])
	assert.Equal(t, Event{Name: "ORDER_UPDATED", Data: `{"id":2}`}, events[1])
}

func TestDialJoinsMultiLineData(t *testing.T) {
	body := "event: ORDER_UPDATED\n" +
		"data: {\"id\":1,\n" +
		"data: \"status\":\"Placed\"}\n\n"
	ts := serveSSE(t, body)
	defer ts.Close()

	d := &HTTPDialer{URL: ts.URL}
	conn, err := d.Dial(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	events := collect(t, conn)

	require.Len(t, events, 1)
	assert.Equal(t, "{\"id\":1,\n\"status\":\"Placed\"}", events[0].Data)
}

func TestDialSkipsCommentsAndUnknownFields(t *testing.T) {
	body := ": keep-alive\n\n" +
		"id: 17\n" +
		"retry: 1000\n" +
		"event: ORDER_UPDATED\n" +
		"data: {\"id\":5}\n\n"
	ts := serveSSE(t, body)
	defer ts.Close()

	d := &HTTPDialer{URL: ts.URL}
	conn, err := d.Dial(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	events := collect(t, conn)

	require.Len(t, events, 1)
	assert.Equal(t, `{"id":5}`, events[0].Data)
}

func TestDialSendsBearerToken(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	d := &HTTPDialer{URL: ts.URL, Token: func() string { return "secret" }}
	conn, err := d.Dial(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	collect(t, conn)
	assert.Equal(t, "Bearer secret", gotAuth)
}

func TestDialRejectsNonOKStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	d := &HTTPDialer{URL: ts.URL}
	_, err := d.Dial(context.Background())
	require.Error(t, err)
}

func TestCloseStopsDelivery(t *testing.T) {
	// The server keeps the connection open; Close must end the event stream
	// without waiting for the server.
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer ts.Close()

	d := &HTTPDialer{URL: ts.URL}
	conn, err := d.Dial(context.Background())
	require.NoError(t, err)

	require.NoError(t, conn.Close())

	select {
	case _, ok := <-conn.Events():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("events channel not closed after Close")
	}
}
