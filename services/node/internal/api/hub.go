package api

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Hub fans committed events out to websocket subscribers. It implements
// events.Sink; Publish never blocks on a slow client, it drops them.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan envelope
}

type envelope struct {
	Event string       `json:"event"`
	Data  events.Event `json:"data"`
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

func (h *Hub) Publish(ev events.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- envelope{Event: ev.EventName(), Data: ev}:
		default:
			close(c.send)
			delete(h.clients, c)
		}
	}
}

// ServeHTTP upgrades the connection and streams events until the peer
// goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{conn: conn, send: make(chan envelope, 64)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go func() {
		defer conn.Close()
		for ev := range c.send {
			if err := conn.WriteJSON(ev); err != nil {
				break
			}
		}
	}()

	// Reads are discarded; the socket is a one-way feed. Read errors
	// detect disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		close(c.send)
		delete(h.clients, c)
	}
	h.mu.Unlock()
}
