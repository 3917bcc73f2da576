package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bomber-royal/internal/game"
)

// handleCreateRoom allocates a room and returns its join code. The
// creator then connects over WebSocket with the code to take a seat.
func (h *routerHandlers) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.rooms.CreateRoom()
	if err != nil {
		if errors.Is(err, game.ErrTooManyRooms) {
			writeError(w, "Room limit reached, try again later", http.StatusServiceUnavailable)
			return
		}
		writeError(w, "Could not create room", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]string{"roomCode": room.Code})
}

// handleGetRoom returns the lobby roster, used by join screens to
// validate a code before opening the WebSocket.
func (h *routerHandlers) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	room, err := h.rooms.Room(code)
	if err != nil {
		writeError(w, "Room not found", http.StatusNotFound)
		return
	}
	writeJSON(w, room.Lobby())
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	rooms := h.rooms.Rooms()
	players := 0
	for _, room := range rooms {
		players += room.PlayerCount()
	}
	writeJSON(w, map[string]interface{}{
		"roomCount":   len(rooms),
		"playerCount": players,
	})
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
