package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"bomber-royal/internal/game"
)

const (
	// MaxWSConnectionsTotal caps WebSocket connections server-wide.
	MaxWSConnectionsTotal = 2000

	// MaxWSConnectionsPerIP caps WebSocket connections per IP.
	MaxWSConnectionsPerIP = 10

	// MaxDisplayNameLen truncates absurd display names.
	MaxDisplayNameLen = 20

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if IsAllowedOrigin(origin) {
			return true
		}
		log.Printf("⚠️ WebSocket connection rejected from origin: %s", origin)
		RecordConnectionRejected("origin")
		return false
	},
}

// wsClient is one player's live connection.
type wsClient struct {
	conn     *websocket.Conn
	send     chan []byte
	ip       string
	roomCode string
	playerID string
}

// clientMessage is the inbound action envelope. Only the fields the
// named type uses are read.
type clientMessage struct {
	Type      string `json:"type"`
	Ready     bool   `json:"ready"`
	Direction string `json:"direction"`
	AbilityID string `json:"abilityId"`
	BotCount  int    `json:"count"`
}

// Hub owns every live connection, keyed by room and player, and
// implements the engine's Broadcaster. Delivery is non-blocking: a
// client that cannot drain its send buffer loses frames, not the room.
type Hub struct {
	rooms  *game.RoomManager
	engine *game.Engine

	mu      sync.RWMutex
	clients map[string]map[string]*wsClient // roomCode -> playerID -> client

	wsLimiter *WebSocketRateLimiter
}

// NewHub creates the connection hub.
func NewHub(rooms *game.RoomManager, engine *game.Engine) *Hub {
	return &Hub{
		rooms:     rooms,
		engine:    engine,
		clients:   make(map[string]map[string]*wsClient),
		wsLimiter: NewWebSocketRateLimiter(MaxWSConnectionsPerIP),
	}
}

// ToPlayer sends a message to one player. Implements game.Broadcaster.
func (h *Hub) ToPlayer(roomCode, playerID string, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.mu.RLock()
	c := h.clients[roomCode][playerID]
	h.mu.RUnlock()
	if c == nil {
		return
	}
	select {
	case c.send <- data:
		IncrementWSMessages()
	default:
		// Client can't keep up; drop this frame.
	}
}

// ToRoom sends a message to every connected player in the room.
func (h *Hub) ToRoom(roomCode string, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.mu.RLock()
	for _, c := range h.clients[roomCode] {
		select {
		case c.send <- data:
			IncrementWSMessages()
		default:
		}
	}
	h.mu.RUnlock()
}

// ClientCount returns the number of live connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, room := range h.clients {
		n += len(room)
	}
	return n
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	if h.clients[c.roomCode] == nil {
		h.clients[c.roomCode] = make(map[string]*wsClient)
	}
	h.clients[c.roomCode][c.playerID] = c
	h.mu.Unlock()

	count := h.ClientCount()
	log.Printf("📱 Player %s connected to room %s from %s (%d total)", c.playerID, c.roomCode, c.ip, count)
	UpdateWSConnections(count)
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	if room, ok := h.clients[c.roomCode]; ok {
		if room[c.playerID] == c {
			delete(room, c.playerID)
			if len(room) == 0 {
				delete(h.clients, c.roomCode)
			}
		}
	}
	h.mu.Unlock()

	h.wsLimiter.Release(c.ip)
	close(c.send)

	count := h.ClientCount()
	log.Printf("📱 Player %s disconnected from room %s (%d total)", c.playerID, c.roomCode, count)
	UpdateWSConnections(count)
}

// HandleWebSocket upgrades a connection and joins the player to a
// room. The client supplies ?room=CODE&name=NAME.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	if h.ClientCount() >= MaxWSConnectionsTotal {
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}
	if !h.wsLimiter.Allow(ip) {
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	code := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("room")))
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		name = "Player"
	}
	if len(name) > MaxDisplayNameLen {
		name = name[:MaxDisplayNameLen]
	}

	room, err := h.rooms.Room(code)
	if err != nil {
		h.wsLimiter.Release(ip)
		writeError(w, "Room not found", http.StatusNotFound)
		return
	}

	playerID := uuid.NewString()
	if _, err := room.AddPlayer(playerID, name); err != nil {
		h.wsLimiter.Release(ip)
		writeError(w, err.Error(), http.StatusConflict)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		h.wsLimiter.Release(ip)
		room.RemovePlayer(playerID)
		return
	}

	c := &wsClient{
		conn:     conn,
		send:     make(chan []byte, 64),
		ip:       ip,
		roomCode: code,
		playerID: playerID,
	}
	h.register(c)
	go c.writePump()

	h.ToPlayer(code, playerID, map[string]interface{}{
		"type":     "joined",
		"playerId": playerID,
		"roomCode": code,
	})
	h.ToRoom(code, room.Lobby())

	h.readPump(c, room)
}

// readPump consumes the client's action messages until disconnect,
// then tears the player down.
func (h *Hub) readPump(c *wsClient, room *game.Room) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
		h.handleLeave(c, room)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		if msg.Type == "leave" {
			return
		}
		h.dispatch(c, room, &msg)
	}
}

// writePump owns all writes to the connection.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch routes one inbound action. In-round action rejections are
// silent no-ops inside the engine; lobby failures go back to the
// sender as error messages.
func (h *Hub) dispatch(c *wsClient, room *game.Room, msg *clientMessage) {
	now := time.Now()

	switch msg.Type {
	case "ready":
		if err := room.SetReady(c.playerID, msg.Ready); err == nil {
			h.ToRoom(c.roomCode, room.Lobby())
		}

	case "start_game":
		if err := room.StartGame(c.playerID); err != nil {
			h.sendError(c, err.Error())
			return
		}
		h.engine.StartRound(room)
		RecordRoundStarted()
		h.ToRoom(c.roomCode, room.Lobby())

	case "move":
		if dir, ok := game.ParseDirection(msg.Direction); ok {
			h.engine.ApplyMove(room, c.playerID, dir)
		}

	case "place_bomb":
		h.engine.ApplyBomb(room, c.playerID, now)

	case "stop_action":
		h.engine.ApplyStop(room, c.playerID)

	case "remote_detonate":
		h.engine.ApplyDetonate(room, c.playerID, now)

	case "choose_powerup":
		if id, ok := game.ParseAbilityID(msg.AbilityID); ok {
			h.engine.ApplyPowerUpChoice(room, c.playerID, id)
		}

	case "play_again":
		if err := room.PlayAgain(c.playerID); err != nil {
			h.sendError(c, err.Error())
			return
		}
		h.ToRoom(c.roomCode, room.Lobby())

	case "add_bots":
		if _, err := room.AddBots(c.playerID, msg.BotCount); err != nil {
			h.sendError(c, err.Error())
			return
		}
		h.ToRoom(c.roomCode, room.Lobby())

	case "remove_bots":
		if err := room.RemoveBots(c.playerID); err != nil {
			h.sendError(c, err.Error())
			return
		}
		h.ToRoom(c.roomCode, room.Lobby())
	}
}

// handleLeave removes a disconnected player from the room, force-ends
// a round left with at most one live player, and reaps empty rooms.
func (h *Hub) handleLeave(c *wsClient, room *game.Room) {
	newHost := room.RemovePlayer(c.playerID)
	h.engine.ForceEndIfDecided(room)

	if room.HumanCount() == 0 {
		h.engine.StopRound(room)
		h.rooms.RemoveRoom(c.roomCode)
		return
	}
	if newHost != "" {
		log.Printf("👑 Room %s: host reassigned to %s", c.roomCode, newHost)
	}
	h.ToRoom(c.roomCode, room.Lobby())
}

func (h *Hub) sendError(c *wsClient, message string) {
	h.ToPlayer(c.roomCode, c.playerID, map[string]string{
		"type":  "error",
		"error": message,
	})
}
