package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/brdc/darts-league/brackets"
	"github.com/brdc/darts-league/services"
	"github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	hub            *brackets.Hub
	bracketService services.BracketService
	upgrader       websocket.Upgrader
}

// NewWebSocketHandler accepts connections from allowedOrigins; "*" allows
// any origin.
func NewWebSocketHandler(hub *brackets.Hub, bracketService services.BracketService, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		hub:            hub,
		bracketService: bracketService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// ServeWs обрабатывает WebSocket запросы для конкретного турнира.
// Клиент должен подключаться к /ws/tournaments/{tournamentID}
// @Summary Подписка на обновления сетки
// @Tags brackets
// @Description Первым сообщением приходит BRACKET_SNAPSHOT (если сетка есть), затем события матчей.
// @Param tournamentID path int true "ID турнира"
// @Success 101 {string} string "Switching Protocols"
// @Failure 400 {object} map[string]string "Некорректный ID"
// @Router /ws/tournaments/{tournamentID} [get]
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	// The current bracket, if any, is the first frame a spectator receives.
	var snapshot []byte
	bracket, err := h.bracketService.GetBracket(r.Context(), tournamentID)
	switch {
	case err == nil:
		snapshot, err = json.Marshal(brackets.WebSocketMessage{
			Type:    brackets.MessageBracketSnapshot,
			Payload: bracket,
			RoomID:  brackets.TournamentRoom(tournamentID),
		})
		if err != nil {
			serverErrorResponse(w, r, err)
			return
		}
	case errors.Is(err, services.ErrBracketNotFound):
	default:
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		log.Printf("Failed to upgrade connection for tournament %d: %v", tournamentID, err)
		return
	}

	client := &brackets.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: brackets.TournamentRoom(tournamentID),
	}
	if snapshot != nil {
		client.Send <- snapshot
	}
	if !h.hub.Join(client) {
		log.Printf("Hub stopped, rejecting WebSocket client for tournament %d", tournamentID)
		_ = conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
