package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CycleEvent is one capture state transition pushed to status clients.
type CycleEvent struct {
	Cycle     int    `json:"cycle"`
	Directory string `json:"directory"`
	State     string `json:"state"`
	Status    int    `json:"status"`
	Timestamp string `json:"timestamp"`
}

type feedClient struct {
	conn *websocket.Conn
	send chan CycleEvent
}

// writePump pumps events to the websocket connection.
func (c *feedClient) writePump() {
	defer c.conn.Close()
	for ev := range c.send {
		if err := c.conn.WriteJSON(ev); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// StatusFeed broadcasts capture cycle events to websocket clients while
// monitoring. It is optional: without a status port the controller runs
// with no feed at all.
type StatusFeed struct {
	mu       sync.RWMutex
	clients  map[*feedClient]bool
	last     CycleEvent
	haveLast bool
}

func NewStatusFeed() *StatusFeed {
	return &StatusFeed{clients: make(map[*feedClient]bool)}
}

// Broadcast fans an event out to all connected clients without blocking
// the capture loop: a client with a full buffer is dropped.
func (f *StatusFeed) Broadcast(ev CycleEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = ev
	f.haveLast = true
	for c := range f.clients {
		select {
		case c.send <- ev:
		default:
			delete(f.clients, c)
			close(c.send)
		}
	}
}

func (f *StatusFeed) addClient(c *feedClient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clients[c] = true
	if f.haveLast {
		c.send <- f.last
	}
}

func (f *StatusFeed) removeClient(c *feedClient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clients[c] {
		delete(f.clients, c)
		close(c.send)
	}
}

// lastEvent returns the most recent event, if any.
func (f *StatusFeed) lastEvent() (CycleEvent, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.last, f.haveLast
}

// serveStatus runs the status endpoint: /ws for the live event feed,
// /api/state for the most recent event, /metrics for Prometheus.
func serveStatus(port int, feed *StatusFeed) {
	upgrader := websocket.Upgrader{
		CheckOrigin:     func(r *http.Request) bool { return true },
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("ws upgrade failed: %v", err)
			return
		}
		client := &feedClient{conn: conn, send: make(chan CycleEvent, 16)}
		feed.addClient(client)
		go client.writePump()

		// Reader only detects disconnects; the feed is one-way.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					feed.removeClient(client)
					return
				}
			}
		}()
	})

	mux.HandleFunc("/api/state", func(w http.ResponseWriter, r *http.Request) {
		last, have := feed.lastEvent()
		w.Header().Set("Content-Type", "application/json")
		if !have {
			w.Write([]byte("{}\n"))
			return
		}
		json.NewEncoder(w).Encode(last)
	})

	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	log.Printf("Status server listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("Status server stopped: %v", err)
	}
}
