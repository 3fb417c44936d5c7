package services

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/conosleague/roster-optimizer/internal/models"
)

// ProgressHub fans optimization progress out to websocket clients, one
// event per team as its search finishes.
type ProgressHub struct {
	clients    map[*ProgressClient]bool
	broadcast  chan []byte
	register   chan *ProgressClient
	unregister chan *ProgressClient
	mu         sync.RWMutex
}

type ProgressClient struct {
	hub  *ProgressHub
	conn *websocket.Conn
	send chan []byte
}

// ProgressEvent mirrors the original UI's "Optimizing roster for {team}
// ({current}/{total})" spinner.
type ProgressEvent struct {
	RunID     string              `json:"run_id"`
	TeamID    string              `json:"team_id"`
	Current   int                 `json:"current"`
	Total     int                 `json:"total"`
	Status    models.ResultStatus `json:"status"`
	Timestamp time.Time           `json:"timestamp"`
}

func NewProgressHub() *ProgressHub {
	return &ProgressHub{
		clients:    make(map[*ProgressClient]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *ProgressClient),
		unregister: make(chan *ProgressClient),
	}
}

func (h *ProgressHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			logrus.Debug("Progress client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client's send channel is full, close it
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish broadcasts a progress event to every connected client.
func (h *ProgressHub) Publish(event ProgressEvent) {
	event.Timestamp = time.Now().UTC()
	data, err := json.Marshal(event)
	if err != nil {
		logrus.Errorf("Failed to marshal progress event: %v", err)
		return
	}

	select {
	case h.broadcast <- data:
	default:
		logrus.Warn("Progress broadcast channel full, dropping event")
	}
}

// NewProgressClient wires an accepted websocket connection into the hub.
func (h *ProgressHub) NewProgressClient(conn *websocket.Conn) *ProgressClient {
	client := &ProgressClient{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 16),
	}
	h.register <- client
	return client
}

// WritePump pushes hub messages to the connection until it closes.
func (c *ProgressClient) WritePump() {
	defer c.conn.Close()
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			c.hub.unregister <- c
			return
		}
	}
}

// ReadPump drains the connection so pings are handled; inbound messages
// are ignored, progress is one-way.
func (c *ProgressClient) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
