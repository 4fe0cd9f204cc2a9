package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Aitbek01/arena-gauntlet/brackets"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict Origin to the deployed frontend host.
		return true
	},
}

type WebSocketHandler struct {
	hub    *brackets.Hub
	logger *slog.Logger
}

func NewWebSocketHandler(hub *brackets.Hub, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, logger: logger}
}

// ServeRun streams one run's events: /ws/runs/{runID}.
func (h *WebSocketHandler) ServeRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if runID == "" {
		http.Error(w, "missing runID", http.StatusBadRequest)
		return
	}
	h.serve(w, r, "run:"+runID)
}

// ServeGlobal streams all run lifecycle events: /ws.
func (h *WebSocketHandler) ServeGlobal(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, brackets.RoomGlobal)
}

func (h *WebSocketHandler) serve(w http.ResponseWriter, r *http.Request, room string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("room", room), slog.Any("error", err))
		return
	}

	client := &brackets.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: room,
	}
	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()

	h.logger.Info("websocket client registered", slog.String("room", room))
}
