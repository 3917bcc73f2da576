package game

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"bomber-royal/internal/config"
)

// fakeBots is a scriptable BotDriver for room and engine tests. Decide
// pops actions from the queue; an empty queue means stand still.
type fakeBots struct {
	registered map[string]string
	queue      map[string][]BotAction
	resets     int
}

func newFakeBots() *fakeBots {
	return &fakeBots{
		registered: make(map[string]string),
		queue:      make(map[string][]BotAction),
	}
}

func (f *fakeBots) Register(playerID, personality string) error {
	switch personality {
	case "blitz", "demoman", "rat":
	default:
		return fmt.Errorf("unknown personality %q", personality)
	}
	f.registered[playerID] = personality
	return nil
}

func (f *fakeBots) Unregister(playerID string) { delete(f.registered, playerID) }
func (f *fakeBots) ResetThrottle()             { f.resets++ }

func (f *fakeBots) Decide(self *Player, w *BotWorld, now time.Time) (BotAction, error) {
	q := f.queue[self.ID]
	if len(q) == 0 {
		return BotAction{Kind: BotActNone}, nil
	}
	f.queue[self.ID] = q[1:]
	return q[0], nil
}

func (f *fakeBots) ChoosePowerUp(playerID string, choices []AbilityID) AbilityID {
	if len(choices) == 0 {
		return 0
	}
	return choices[0]
}

func newTestRoom(t *testing.T) (*Room, *fakeBots) {
	t.Helper()
	bots := newFakeBots()
	rng := rand.New(rand.NewSource(7))
	r := NewRoom("TEST42", config.DefaultGame(), NewAbilityRegistry(), rng, bots)
	return r, bots
}

func TestAddPlayerAssignsHostAndColors(t *testing.T) {
	r, _ := newTestRoom(t)

	first, err := r.AddPlayer("p1", "Alice")
	if err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}
	if r.HostID != "p1" {
		t.Errorf("HostID = %q, want first joiner", r.HostID)
	}
	if first.Color != PlayerColors[0] {
		t.Errorf("first player color = %v, want %v", first.Color, PlayerColors[0])
	}

	second, err := r.AddPlayer("p2", "Bob")
	if err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}
	if second.Color != PlayerColors[1] {
		t.Errorf("second player color = %v, want %v", second.Color, PlayerColors[1])
	}
	if r.HostID != "p1" {
		t.Error("host changed when a second player joined")
	}
}

func TestAddPlayerRejections(t *testing.T) {
	r, _ := newTestRoom(t)

	for i := 0; i < 4; i++ {
		if _, err := r.AddPlayer(fmt.Sprintf("p%d", i), "P"); err != nil {
			t.Fatalf("AddPlayer %d: %v", i, err)
		}
	}
	if _, err := r.AddPlayer("p5", "Late"); !errors.Is(err, ErrRoomFull) {
		t.Errorf("fifth join error = %v, want ErrRoomFull", err)
	}
	if _, err := r.AddPlayer("p1", "Dup"); !errors.Is(err, ErrAlreadyJoined) {
		t.Errorf("duplicate join error = %v, want ErrAlreadyJoined", err)
	}
}

func TestAddPlayerRejectedMidGame(t *testing.T) {
	r, _ := newTestRoom(t)
	r.AddPlayer("p1", "A")
	r.AddPlayer("p2", "B")
	r.SetReady("p1", true)
	r.SetReady("p2", true)
	if err := r.StartGame("p1"); err != nil {
		t.Fatalf("StartGame: %v", err)
	}

	// Joins are rejected from the countdown on.
	if _, err := r.AddPlayer("p3", "Late"); !errors.Is(err, ErrRoomInGame) {
		t.Errorf("countdown join error = %v, want ErrRoomInGame", err)
	}
	r.FinishCountdown(time.Now())
	if _, err := r.AddPlayer("p4", "Later"); !errors.Is(err, ErrRoomInGame) {
		t.Errorf("mid-game join error = %v, want ErrRoomInGame", err)
	}
}

func TestColorReissuedAfterLeave(t *testing.T) {
	r, _ := newTestRoom(t)
	r.AddPlayer("p1", "A")
	p2, _ := r.AddPlayer("p2", "B")

	r.RemovePlayer("p1")
	p3, err := r.AddPlayer("p3", "C")
	if err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}
	if p3.Color == p2.Color {
		t.Errorf("p3 got %v, same as p2", p3.Color)
	}
	if p3.Color != PlayerColors[0] {
		t.Errorf("p3 color = %v, want the freed %v", p3.Color, PlayerColors[0])
	}
}

func TestStartGameValidation(t *testing.T) {
	now := time.Now()

	t.Run("not host", func(t *testing.T) {
		r, _ := newTestRoom(t)
		r.AddPlayer("p1", "A")
		r.AddPlayer("p2", "B")
		if err := r.StartGame("p2"); !errors.Is(err, ErrNotHost) {
			t.Errorf("err = %v, want ErrNotHost", err)
		}
	})

	t.Run("too few players", func(t *testing.T) {
		r, _ := newTestRoom(t)
		r.AddPlayer("p1", "A")
		r.SetReady("p1", true)
		if err := r.StartGame("p1"); !errors.Is(err, ErrNotEnough) {
			t.Errorf("err = %v, want ErrNotEnough", err)
		}
	})

	t.Run("unready human blocks", func(t *testing.T) {
		r, _ := newTestRoom(t)
		r.AddPlayer("p1", "A")
		r.AddPlayer("p2", "B")
		r.SetReady("p1", true)
		if err := r.StartGame("p1"); err == nil {
			t.Error("started with an unready human")
		}
	})

	t.Run("bots count and are always ready", func(t *testing.T) {
		r, _ := newTestRoom(t)
		r.AddPlayer("p1", "A")
		r.SetReady("p1", true)
		if _, err := r.AddBots("p1", 1); err != nil {
			t.Fatalf("AddBots: %v", err)
		}
		if err := r.StartGame("p1"); err != nil {
			t.Errorf("StartGame with one human and one bot: %v", err)
		}
		if r.Phase != PhaseCountdown {
			t.Errorf("Phase = %v, want countdown", r.Phase)
		}
		if !r.FinishCountdown(now) {
			t.Fatal("FinishCountdown refused a counted-down room")
		}
		if r.Phase != PhasePlaying {
			t.Errorf("Phase = %v, want playing", r.Phase)
		}
	})

	t.Run("countdown only finishes once", func(t *testing.T) {
		r, _ := newTestRoom(t)
		r.AddPlayer("p1", "A")
		if r.FinishCountdown(now) {
			t.Error("FinishCountdown succeeded on a lobby room")
		}
	})
}

func TestStartGamePlacesPlayersOnSpawns(t *testing.T) {
	r, _ := newTestRoom(t)
	r.AddPlayer("p1", "A")
	r.AddPlayer("p2", "B")
	r.SetReady("p1", true)
	r.SetReady("p2", true)
	if err := r.StartGame("p1"); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	r.FinishCountdown(time.Now())

	spawns := SpawnPositions(r.cfg.GridWidth, r.cfg.GridHeight)
	if got := r.Player("p1").Position; got != spawns[0] {
		t.Errorf("p1 spawn = %+v, want %+v", got, spawns[0])
	}
	if got := r.Player("p2").Position; got != spawns[1] {
		t.Errorf("p2 spawn = %+v, want %+v", got, spawns[1])
	}
}

func TestAddBots(t *testing.T) {
	r, bots := newTestRoom(t)
	r.AddPlayer("p1", "A")

	added, err := r.AddBots("p1", 2)
	if err != nil {
		t.Fatalf("AddBots: %v", err)
	}
	if len(added) != 2 {
		t.Fatalf("added %d bots, want 2", len(added))
	}
	for _, b := range added {
		if !b.IsBot || !b.Ready {
			t.Errorf("bot %s: IsBot=%v Ready=%v, want both true", b.ID, b.IsBot, b.Ready)
		}
		if _, ok := bots.registered[b.ID]; !ok {
			t.Errorf("bot %s never registered with the driver", b.ID)
		}
	}
	if added[0].DisplayName != "Blitz Bot" || added[1].DisplayName != "Demoman Bot" {
		t.Errorf("bot names = %q, %q, want the rotation order", added[0].DisplayName, added[1].DisplayName)
	}

	if _, err := r.AddBots("p2", 1); !errors.Is(err, ErrNotHost) {
		t.Errorf("non-host AddBots error = %v, want ErrNotHost", err)
	}
}

func TestAddBotsRotationContinues(t *testing.T) {
	r, _ := newTestRoom(t)
	r.AddPlayer("p1", "A")

	r.AddBots("p1", 2)
	added, err := r.AddBots("p1", 1)
	if err != nil {
		t.Fatalf("AddBots: %v", err)
	}
	if len(added) != 1 || added[0].BotPersonality != "rat" {
		t.Errorf("third bot = %+v, want the rotation to continue with rat", added)
	}

	seen := make(map[PlayerColor]bool)
	for _, p := range r.playersInOrder() {
		if seen[p.Color] {
			t.Errorf("color %v assigned twice", p.Color)
		}
		seen[p.Color] = true
	}
}

func TestAddBotsStopsAtCapacity(t *testing.T) {
	r, _ := newTestRoom(t)
	r.AddPlayer("p1", "A")

	added, err := r.AddBots("p1", 5)
	if err != nil {
		t.Fatalf("AddBots: %v", err)
	}
	if len(added) != 3 {
		t.Errorf("added %d bots, want 3 (room capacity 4)", len(added))
	}
}

func TestRemoveBots(t *testing.T) {
	r, bots := newTestRoom(t)
	r.AddPlayer("p1", "A")
	r.AddBots("p1", 2)

	if err := r.RemoveBots("p2"); !errors.Is(err, ErrNotHost) {
		t.Errorf("non-host RemoveBots error = %v, want ErrNotHost", err)
	}
	if err := r.RemoveBots("p1"); err != nil {
		t.Fatalf("RemoveBots: %v", err)
	}
	if r.PlayerCount() != 1 {
		t.Errorf("PlayerCount = %d after removing bots, want 1", r.PlayerCount())
	}
	if len(bots.registered) != 0 {
		t.Errorf("%d bots still registered with the driver", len(bots.registered))
	}
}

func TestRemovePlayerReassignsHost(t *testing.T) {
	r, _ := newTestRoom(t)
	r.AddPlayer("p1", "A")
	r.AddBots("p1", 1)
	r.AddPlayer("p2", "B")
	r.AddPlayer("p3", "C")

	newHost := r.RemovePlayer("p1")
	// The bot joined before p2 but bots never inherit hosting.
	if newHost != "p2" || r.HostID != "p2" {
		t.Errorf("new host = %q (HostID %q), want p2", newHost, r.HostID)
	}

	if got := r.RemovePlayer("p3"); got != "" {
		t.Errorf("removing a non-host returned new host %q", got)
	}
}

func TestRemovePlayerMidRoundEliminates(t *testing.T) {
	r, _ := newTestRoom(t)
	r.AddPlayer("p1", "A")
	r.AddPlayer("p2", "B")
	r.SetReady("p1", true)
	r.SetReady("p2", true)
	r.StartGame("p1")
	r.FinishCountdown(time.Now())

	leaver := r.Player("p2")
	r.RemovePlayer("p2")
	if leaver.Alive {
		t.Error("player still alive after leaving mid-round")
	}
}

func TestPlayAgain(t *testing.T) {
	r, _ := newTestRoom(t)
	r.AddPlayer("p1", "A")
	r.AddPlayer("p2", "B")
	r.SetReady("p1", true)
	r.SetReady("p2", true)
	r.StartGame("p1")
	r.FinishCountdown(time.Now())

	if err := r.PlayAgain("p1"); !errors.Is(err, ErrRoomInGame) {
		t.Errorf("PlayAgain during round error = %v, want ErrRoomInGame", err)
	}

	r.mu.Lock()
	r.players["p2"].Alive = false
	r.winnerID = "p1"
	r.Phase = PhaseGameOver
	r.mu.Unlock()

	if err := r.PlayAgain("p2"); !errors.Is(err, ErrNotHost) {
		t.Errorf("non-host PlayAgain error = %v, want ErrNotHost", err)
	}
	if err := r.PlayAgain("p1"); err != nil {
		t.Fatalf("PlayAgain: %v", err)
	}
	if r.Phase != PhaseLobby {
		t.Errorf("Phase = %v, want lobby", r.Phase)
	}
	for _, id := range []string{"p1", "p2"} {
		p := r.Player(id)
		if !p.Alive {
			t.Errorf("%s not revived for the new lobby", id)
		}
		if p.Ready {
			t.Errorf("%s still ready after reset", id)
		}
	}
}

func TestHumanCount(t *testing.T) {
	r, _ := newTestRoom(t)
	r.AddPlayer("p1", "A")
	r.AddBots("p1", 2)

	if got := r.HumanCount(); got != 1 {
		t.Errorf("HumanCount = %d, want 1", got)
	}
}

func newTestManager() *RoomManager {
	srv := config.DefaultServer()
	srv.MaxRooms = 2
	return NewRoomManager(config.DefaultGame(), srv, NewAbilityRegistry(),
		func(rng *rand.Rand) BotDriver { return newFakeBots() })
}

func TestCreateRoomCodes(t *testing.T) {
	m := newTestManager()

	room, err := m.CreateRoom()
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if len(room.Code) != roomCodeLength {
		t.Errorf("code %q has length %d, want %d", room.Code, len(room.Code), roomCodeLength)
	}
	for _, c := range room.Code {
		if !strings.ContainsRune(roomCodeAlphabet, c) {
			t.Errorf("code %q contains %q, outside the join alphabet", room.Code, c)
		}
	}

	if _, err := m.Room(room.Code); err != nil {
		t.Errorf("Room(%q): %v", room.Code, err)
	}
	if _, err := m.Room("NOPE99"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("unknown code error = %v, want ErrRoomNotFound", err)
	}
}

func TestCreateRoomLimit(t *testing.T) {
	m := newTestManager()
	m.CreateRoom()
	m.CreateRoom()

	if _, err := m.CreateRoom(); !errors.Is(err, ErrTooManyRooms) {
		t.Errorf("third room error = %v, want ErrTooManyRooms", err)
	}
}

func TestReapIdle(t *testing.T) {
	m := newTestManager()
	stale, _ := m.CreateRoom()
	fresh, _ := m.CreateRoom()

	stale.mu.Lock()
	stale.lastActive = time.Now().Add(-time.Hour)
	stale.mu.Unlock()

	reaped := m.ReapIdle(30*time.Minute, time.Now())
	if len(reaped) != 1 || reaped[0].Code != stale.Code {
		t.Fatalf("reaped %v, want just the stale room", reaped)
	}
	if _, err := m.Room(stale.Code); !errors.Is(err, ErrRoomNotFound) {
		t.Error("stale room still registered after reaping")
	}
	if _, err := m.Room(fresh.Code); err != nil {
		t.Error("fresh room reaped")
	}
}
