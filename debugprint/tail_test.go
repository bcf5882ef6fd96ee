package debugprint

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct{ lines []string }

func (s *fakeSink) Log(line string) { s.lines = append(s.lines, line) }

func TestTailPublishMirrorsToSinkAndClients(t *testing.T) {
	sink := &fakeSink{}
	tail := NewTail(sink)
	srv := httptest.NewServer(http.HandlerFunc(tail.Handler))
	defer srv.Close()

	url := "ws" + srv.URL[len("http"):] + "/"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the server goroutine a moment to register the connection.
	time.Sleep(10 * time.Millisecond)
	tail.Publish("line one")

	assert.Equal(t, []string{"line one"}, sink.lines)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "line one", string(data))
}
