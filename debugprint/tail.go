package debugprint

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// LineSink receives collected lines for durable storage; satisfied by
// kneeboard.Troubleshooting's Log method.
type LineSink interface {
	Log(line string)
}

// Tail is an optional loopback websocket server a troubleshooting
// window can attach to for a live tail of collected debug print
// lines, mirroring the teacher's use of gorilla/websocket for
// dev-mode live reload (cogentcore.org/core base/websocket).
type Tail struct {
	upgrader websocket.Upgrader
	sink     LineSink

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewTail builds a Tail that mirrors every line it's given to sink
// (if non-nil) and to every connected websocket client.
func NewTail(sink LineSink) *Tail {
	return &Tail{
		sink:    sink,
		clients: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			// Loopback-only per spec: the handler is expected to be
			// served on localhost, so origin checking is unnecessary.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler upgrades the HTTP request to a websocket connection and
// registers it to receive subsequent Publish calls until it
// disconnects.
func (t *Tail) Handler(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	t.mu.Lock()
	t.clients[conn] = struct{}{}
	t.mu.Unlock()

	// Drain (and discard) client->server frames until the connection
	// closes, then deregister. This tail is write-only from the
	// server's perspective.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				t.mu.Lock()
				delete(t.clients, conn)
				t.mu.Unlock()
				conn.Close()
				return
			}
		}
	}()
}

// Publish records line in the sink and broadcasts it to every
// connected websocket client, dropping any client whose write fails.
func (t *Tail) Publish(line string) {
	if t.sink != nil {
		t.sink.Log(line)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for conn := range t.clients {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
			delete(t.clients, conn)
			conn.Close()
		}
	}
}

// ListenAndServe attaches a Collector's Lines event to Publish and
// serves the tail endpoint on addr until the process exits; callers
// that need graceful shutdown should build their own http.Server
// around Handler instead.
func (t *Tail) ListenAndServe(addr string, c *Collector) error {
	c.Lines.AddHandler(t, func(ev LineReceived) { t.Publish(ev.Line) })
	mux := http.NewServeMux()
	mux.HandleFunc("/tail", t.Handler)
	return http.ListenAndServe(addr, mux)
}
