package game

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"bomber-royal/internal/config"
)

// Room error values returned to the boundary layer. Boundary-facing
// failures are real errors; in-round action rejections stay silent.
var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomFull      = errors.New("room is full")
	ErrRoomInGame    = errors.New("game already in progress")
	ErrNotHost       = errors.New("only the host can do that")
	ErrNotEnough     = errors.New("need at least 2 players")
	ErrTooManyRooms  = errors.New("room limit reached")
	ErrAlreadyJoined = errors.New("player already in room")
)

const roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const roomCodeLength = 6

// pendingChoice is an unresolved power-up pickup: the player stands on
// the drop and must pick one of the offered upgrades before collecting
// another.
type pendingChoice struct {
	DropID  string
	Choices []AbilityID
}

// Room is one independent game session. All mutable state is guarded
// by mu; the tick loop and the websocket handlers both go through it.
type Room struct {
	mu sync.Mutex

	Code      string
	HostID    string
	Phase     GamePhase
	CreatedAt time.Time

	players    map[string]*Player
	joinOrder  []string
	grid       Grid
	bombs      map[string]*Bomb
	explosions map[string]*Explosion
	powerUps   map[string]*PowerUpDrop
	pending    map[string]*pendingChoice
	explored   map[string]ExploredMemory
	shrink     *ShrinkZone

	startedAt  time.Time
	lastTick   time.Time
	lastActive time.Time
	winnerID   string
	tick       uint64

	cfg      config.GameConfig
	registry *AbilityRegistry
	rng      *rand.Rand
	bots     BotDriver

	stopChan chan struct{}
	running  bool
}

// NewRoom builds an empty lobby-phase room. The rng is owned by the
// room and must only be touched while holding mu.
func NewRoom(code string, cfg config.GameConfig, registry *AbilityRegistry, rng *rand.Rand, bots BotDriver) *Room {
	now := time.Now()
	return &Room{
		Code:       code,
		Phase:      PhaseLobby,
		CreatedAt:  now,
		lastActive: now,
		players:    make(map[string]*Player),
		bombs:      make(map[string]*Bomb),
		explosions: make(map[string]*Explosion),
		powerUps:   make(map[string]*PowerUpDrop),
		pending:    make(map[string]*pendingChoice),
		explored:   make(map[string]ExploredMemory),
		cfg:        cfg,
		registry:   registry,
		rng:        rng,
		bots:       bots,
	}
}

func (r *Room) touch() { r.lastActive = time.Now() }

// IdleSince reports how long the room has gone without activity.
func (r *Room) IdleSince(now time.Time) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return now.Sub(r.lastActive)
}

// AddPlayer joins a human player to the lobby. The first player to
// join becomes host.
func (r *Room) AddPlayer(id, displayName string) (*Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Phase != PhaseLobby {
		return nil, ErrRoomInGame
	}
	if len(r.players) >= r.cfg.MaxPlayers {
		return nil, ErrRoomFull
	}
	if _, ok := r.players[id]; ok {
		return nil, ErrAlreadyJoined
	}

	p := NewPlayer(id, displayName, r.nextFreeColor(), false)
	r.players[id] = p
	r.joinOrder = append(r.joinOrder, id)
	r.explored[id] = make(ExploredMemory)

	if r.HostID == "" {
		r.HostID = id
	}
	r.touch()
	return p, nil
}

// nextFreeColor returns the first room color no seated player wears,
// so colors freed by leavers are reissued. Must be called with mu held.
func (r *Room) nextFreeColor() PlayerColor {
	used := make(map[PlayerColor]bool, len(r.players))
	for _, p := range r.players {
		used[p.Color] = true
	}
	for _, c := range PlayerColors {
		if !used[c] {
			return c
		}
	}
	return PlayerColors[0]
}

// botRotation is the personality assignment order for added bots.
var botRotation = [...]string{"blitz", "demoman", "rat"}

// AddBots fills up to count lobby seats with bots, rotating
// personalities so consecutive bots differ. Only the host may add
// bots, and only in the lobby.
func (r *Room) AddBots(requesterID string, count int) ([]*Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if requesterID != r.HostID {
		return nil, ErrNotHost
	}
	if r.Phase != PhaseLobby {
		return nil, ErrRoomInGame
	}

	existing := 0
	for _, p := range r.players {
		if p.IsBot {
			existing++
		}
	}

	var added []*Player
	for i := 0; i < count; i++ {
		if len(r.players) >= r.cfg.MaxPlayers {
			break
		}
		pers := botRotation[(existing+i)%len(botRotation)]
		id := "bot-" + uuid.NewString()
		if err := r.bots.Register(id, pers); err != nil {
			return added, err
		}
		name := fmt.Sprintf("%s Bot", botDisplayName(pers))
		p := NewPlayer(id, name, r.nextFreeColor(), true)
		p.IsBot = true
		p.BotPersonality = pers
		r.players[id] = p
		r.joinOrder = append(r.joinOrder, id)
		r.explored[id] = make(ExploredMemory)
		added = append(added, p)
	}
	r.touch()
	return added, nil
}

func botDisplayName(personality string) string {
	switch personality {
	case "blitz":
		return "Blitz"
	case "demoman":
		return "Demoman"
	case "rat":
		return "Rat"
	default:
		return "Blitz"
	}
}

// RemoveBots drops all bots from the lobby. Host only.
func (r *Room) RemoveBots(requesterID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if requesterID != r.HostID {
		return ErrNotHost
	}
	if r.Phase != PhaseLobby {
		return ErrRoomInGame
	}

	kept := r.joinOrder[:0]
	for _, id := range r.joinOrder {
		p := r.players[id]
		if p != nil && p.IsBot {
			delete(r.players, id)
			delete(r.explored, id)
			r.bots.Unregister(id)
			continue
		}
		kept = append(kept, id)
	}
	r.joinOrder = kept
	r.touch()
	return nil
}

// RemovePlayer takes a player out of the room. If the host leaves, the
// longest-present remaining human becomes host. Returns the new host
// ID ("" if unchanged or the room emptied of humans).
func (r *Room) RemovePlayer(id string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[id]
	if !ok {
		return ""
	}

	if r.Phase == PhasePlaying {
		// Leaving mid-round counts as elimination.
		p.Alive = false
	}
	delete(r.players, id)
	delete(r.explored, id)
	delete(r.pending, id)
	if p.IsBot {
		r.bots.Unregister(id)
	}
	for i, oid := range r.joinOrder {
		if oid == id {
			r.joinOrder = append(r.joinOrder[:i], r.joinOrder[i+1:]...)
			break
		}
	}

	newHost := ""
	if id == r.HostID {
		r.HostID = ""
		for _, oid := range r.joinOrder {
			if q := r.players[oid]; q != nil && !q.IsBot {
				r.HostID = oid
				newHost = oid
				break
			}
		}
	}
	r.touch()
	return newHost
}

// SetReady flips a player's lobby ready flag.
func (r *Room) SetReady(id string, ready bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[id]
	if !ok {
		return ErrRoomNotFound
	}
	p.Ready = ready
	r.touch()
	return nil
}

// HumanCount returns the number of non-bot participants.
func (r *Room) HumanCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.players {
		if !p.IsBot {
			n++
		}
	}
	return n
}

// StartGame moves the room into the pre-round countdown. Host only;
// needs at least two participants, all humans ready. The engine runs
// the countdown and calls FinishCountdown when it elapses.
func (r *Room) StartGame(requesterID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if requesterID != r.HostID {
		return ErrNotHost
	}
	if r.Phase != PhaseLobby {
		return ErrRoomInGame
	}
	if len(r.players) < 2 {
		return ErrNotEnough
	}
	for _, p := range r.players {
		if !p.IsBot && !p.Ready {
			return fmt.Errorf("player %s is not ready", p.DisplayName)
		}
	}

	r.Phase = PhaseCountdown
	r.touch()
	log.Printf("⏳ Room %s: countdown started", r.Code)
	return nil
}

// FinishCountdown moves a counted-down room into play: generates
// terrain, places players on their spawn corners, and arms the shrink
// zone. Reports false if the room left the countdown phase meanwhile.
func (r *Room) FinishCountdown(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Phase != PhaseCountdown {
		return false
	}
	r.beginRound(now)
	return true
}

// beginRound must be called with mu held.
func (r *Room) beginRound(now time.Time) {
	r.grid = GenerateGrid(r.cfg.GridWidth, r.cfg.GridHeight, r.rng)
	spawns := SpawnPositions(r.cfg.GridWidth, r.cfg.GridHeight)
	for i, id := range r.joinOrder {
		p := r.players[id]
		p.ResetForNewGame(p.Ready)
		p.Position = spawns[i%len(spawns)]
		r.explored[id] = make(ExploredMemory)
	}

	r.bombs = make(map[string]*Bomb)
	r.explosions = make(map[string]*Explosion)
	r.powerUps = make(map[string]*PowerUpDrop)
	r.pending = make(map[string]*pendingChoice)
	zone := NewShrinkZone(r.cfg.GridWidth, r.cfg.GridHeight,
		r.cfg.ShrinkStartDelay, r.cfg.ShrinkInterval, r.cfg.ShrinkAmount)
	r.shrink = &zone
	r.startedAt = now
	r.lastTick = now
	r.winnerID = ""
	r.tick = 0
	r.Phase = PhasePlaying
	r.touch()

	log.Printf("🎮 Room %s: round started with %d players", r.Code, len(r.players))
}

// PlayAgain returns a finished room to the lobby so the same group can
// queue up another round. Everyone's readiness resets.
func (r *Room) PlayAgain(requesterID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if requesterID != r.HostID {
		return ErrNotHost
	}
	if r.Phase != PhaseGameOver {
		return ErrRoomInGame
	}

	for _, p := range r.players {
		p.ResetForNewGame(p.IsBot)
	}
	r.grid = nil
	r.bombs = make(map[string]*Bomb)
	r.explosions = make(map[string]*Explosion)
	r.powerUps = make(map[string]*PowerUpDrop)
	r.pending = make(map[string]*pendingChoice)
	r.shrink = nil
	r.winnerID = ""
	r.Phase = PhaseLobby
	r.touch()
	return nil
}

// Player returns the player with the given ID, or nil.
func (r *Room) Player(id string) *Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.players[id]
}

// PlayerCount returns the current number of participants.
func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// playersInOrder must be called with mu held.
func (r *Room) playersInOrder() []*Player {
	out := make([]*Player, 0, len(r.joinOrder))
	for _, id := range r.joinOrder {
		if p := r.players[id]; p != nil {
			out = append(out, p)
		}
	}
	return out
}

// BotDriverFactory builds a bot driver for a new room, sharing the
// room's rng so decisions stay reproducible under a fixed seed.
type BotDriverFactory func(rng *rand.Rand) BotDriver

// RoomManager owns every live room and hands out join codes.
type RoomManager struct {
	mu       sync.Mutex
	rooms    map[string]*Room
	maxRooms int
	cfg      config.GameConfig
	registry *AbilityRegistry
	newBots  BotDriverFactory
	seedSrc  *rand.Rand
}

func NewRoomManager(cfg config.GameConfig, srv config.ServerConfig, registry *AbilityRegistry, newBots BotDriverFactory) *RoomManager {
	return &RoomManager{
		rooms:    make(map[string]*Room),
		maxRooms: srv.MaxRooms,
		cfg:      cfg,
		registry: registry,
		newBots:  newBots,
		seedSrc:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateRoom allocates a room with a fresh unique join code.
func (m *RoomManager) CreateRoom() (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.rooms) >= m.maxRooms {
		return nil, ErrTooManyRooms
	}

	var code string
	for {
		code = m.generateCode()
		if _, taken := m.rooms[code]; !taken {
			break
		}
	}

	rng := rand.New(rand.NewSource(m.seedSrc.Int63()))
	room := NewRoom(code, m.cfg, m.registry, rng, m.newBots(rng))
	m.rooms[code] = room
	log.Printf("🏠 Room %s created (%d active)", code, len(m.rooms))
	return room, nil
}

// generateCode must be called with mu held.
func (m *RoomManager) generateCode() string {
	b := make([]byte, roomCodeLength)
	for i := range b {
		b[i] = roomCodeAlphabet[m.seedSrc.Intn(len(roomCodeAlphabet))]
	}
	return string(b)
}

// Room looks up a room by its join code.
func (m *RoomManager) Room(code string) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// Rooms snapshots the live room list.
func (m *RoomManager) Rooms() []*Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r)
	}
	return out
}

// RemoveRoom drops a room from the registry.
func (m *RoomManager) RemoveRoom(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[code]; ok {
		delete(m.rooms, code)
		log.Printf("🗑️ Room %s removed (%d active)", code, len(m.rooms))
	}
}

// ReapIdle removes rooms idle longer than the timeout and returns
// them so the caller can stop their tick loops.
func (m *RoomManager) ReapIdle(timeout time.Duration, now time.Time) []*Room {
	m.mu.Lock()
	candidates := make([]*Room, 0)
	for _, r := range m.rooms {
		candidates = append(candidates, r)
	}
	m.mu.Unlock()

	var reaped []*Room
	for _, r := range candidates {
		if r.IdleSince(now) > timeout {
			m.RemoveRoom(r.Code)
			reaped = append(reaped, r)
		}
	}
	return reaped
}
