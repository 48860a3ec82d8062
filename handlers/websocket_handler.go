package handlers

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/markovtsev/ladder-system/brackets"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict to the club frontend origin once it has a fixed host.
		return true
	},
}

type WebSocketHandler struct {
	hub *brackets.Hub
}

func NewWebSocketHandler(hub *brackets.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// ServeWs subscribes the caller to live ladder and bracket events for a
// season. Clients connect to /ws/seasons/{seasonID}.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	seasonID, err := getIDParam(r, "seasonID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		log.Printf("failed to upgrade connection for season %d: %v", seasonID, err)
		return
	}

	client := &brackets.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: brackets.SeasonRoom(seasonID),
	}
	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
