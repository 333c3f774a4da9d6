package viewer

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/roboticeyes/arpreview/event"
)

const (
	writeTimeout = 5 * time.Second
	sendBuffer   = 16
)

// client is a connected page. Snapshots are queued on send and written by
// the client's own goroutine.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub pushes the snapshots of one viewer to all connected pages
type Hub struct {
	viewer   *Viewer
	upgrader websocket.Upgrader
	clients  map[*client]bool
	last     uint64 // revision of the last broadcast snapshot
	mutex    sync.Mutex
}

// NewHub creates a hub and subscribes it to the viewer
func NewHub(v *Viewer) *Hub {
	h := &Hub{
		viewer:  v,
		clients: make(map[*client]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // pages may be served from a different origin
			},
		},
	}
	v.Subscribe(h.Broadcast)
	return h
}

// Clients returns the number of connected pages
func (h *Hub) Clients() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// Broadcast queues the snapshot for all connected pages. Snapshots older than
// the last one sent are dropped. Broadcast never waits for a page; a page
// which does not keep up is disconnected.
func (h *Hub) Broadcast(s Snapshot) {
	data, err := json.Marshal(s)
	if err != nil {
		log.Error("Cannot marshal snapshot: ", err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	if s.Revision <= h.last {
		return
	}
	h.last = s.Revision

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			log.WithFields(event.Fields{
				"variant": h.viewer.Variant(),
			}).Debug("WebSocket client too slow, dropping client")
			h.remove(c)
		}
	}
}

// remove must be called with the mutex held
func (h *Hub) remove(c *client) {
	if !h.clients[c] {
		return
	}
	delete(h.clients, c)
	close(c.send)
	c.conn.Close()
}

// ServeHTTP upgrades the request and keeps the connection until the page
// goes away. The current snapshot is sent right after connecting.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug("WebSocket upgrade error: ", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mutex.Lock()
	if data, err := json.Marshal(h.viewer.Snapshot()); err == nil {
		c.send <- data
	}
	h.clients[c] = true
	h.mutex.Unlock()

	go h.write(c)

	log.WithFields(event.Fields{
		"variant": h.viewer.Variant(),
	}).Debug("WebSocket client connected")

	defer func() {
		h.mutex.Lock()
		h.remove(c)
		h.mutex.Unlock()
		log.WithFields(event.Fields{
			"variant": h.viewer.Variant(),
		}).Debug("WebSocket client disconnected")
	}()

	// pages do not send anything, reading detects the disconnect
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *Hub) write(c *client) {
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.WithFields(event.Fields{
				"variant": h.viewer.Variant(),
				"error":   err.Error(),
			}).Debug("WebSocket write error")
			// closing makes the read loop end and remove the client
			c.conn.Close()
			return
		}
	}
}
