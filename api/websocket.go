package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/hive2hive/h2h/modules/process"
)

// Event is one pipeline's terminal notification, pushed to every
// attached websocket client.
type Event struct {
	Operation string    `json:"operation"`
	State     string    `json:"state"`
	Error     string    `json:"error,omitempty"`
	Time      time.Time `json:"time"`
}

// eventHub fans an Event out to every currently-attached websocket
// connection. Each connection owns a small buffered channel so a slow
// reader cannot stall the pipeline goroutine that reports the event.
type eventHub struct {
	mu      sync.Mutex
	clients map[chan Event]struct{}
	closed  bool
}

func newEventHub() *eventHub {
	return &eventHub{clients: make(map[chan Event]struct{})}
}

func (h *eventHub) subscribe() chan Event {
	ch := make(chan Event, 32)
	h.mu.Lock()
	if !h.closed {
		h.clients[ch] = struct{}{}
	}
	h.mu.Unlock()
	return ch
}

func (h *eventHub) unsubscribe(ch chan Event) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
}

// broadcast is an operations.EventHandler: it is called once per
// pipeline invocation when that pipeline reaches a terminal state.
func (h *eventHub) broadcast(op string, state process.State, reason error) {
	e := Event{Operation: op, State: state.String(), Time: timeNow()}
	if reason != nil {
		e.Error = reason.Error()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- e:
		default:
			// slow client; drop rather than block the reporting pipeline
		}
	}
}

func (h *eventHub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for ch := range h.clients {
		close(ch)
	}
	h.clients = make(map[chan Event]struct{})
}

// timeNow is a seam so event timestamps can be stubbed in tests.
var timeNow = time.Now

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// eventsHandler upgrades to a websocket and streams Events as JSON
// until the client disconnects.
func (srv *Server) eventsHandler(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ch := srv.hub.subscribe()
	defer srv.hub.unsubscribe(ch)

	for e := range ch {
		data, err := json.Marshal(e)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}
