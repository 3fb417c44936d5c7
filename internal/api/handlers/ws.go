package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/conosleague/roster-optimizer/internal/services"
)

type ProgressHandler struct {
	hub      *services.ProgressHub
	upgrader websocket.Upgrader
}

func NewProgressHandler(hub *services.ProgressHub, allowedOrigins []string) *ProgressHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}

	return &ProgressHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed[origin]
			},
		},
	}
}

// HandleProgress upgrades the connection and streams optimization progress
// events until the client disconnects.
func (h *ProgressHandler) HandleProgress(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.Warnf("Websocket upgrade failed: %v", err)
		return
	}

	client := h.hub.NewProgressClient(conn)
	go client.WritePump()
	go client.ReadPump()
}
