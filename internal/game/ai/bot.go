// Package ai drives the bot players: pathfinding over the tile grid,
// a survival reflex shared by every bot, and three personality
// decision trees layered on top. Decisions are pure with respect to
// the world snapshot; the engine executes the returned actions through
// the same validation path as human input.
package ai

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"bomber-royal/internal/game"
)

type botState struct {
	personality Personality
	lastDecide  time.Time
	state       BotState
	target      *game.Position
}

// Manager tracks the registered bots of one room and throttles their
// decision rate so bots act at human-ish speed rather than every tick.
type Manager struct {
	mu       sync.Mutex
	bots     map[string]*botState
	interval time.Duration
	rng      *rand.Rand
}

// NewManager creates a bot manager. The rng is owned by the caller and
// shared with the room; the manager only uses it under the room lock.
func NewManager(interval time.Duration, rng *rand.Rand) *Manager {
	return &Manager{
		bots:     make(map[string]*botState),
		interval: interval,
		rng:      rng,
	}
}

// Register adds a bot under the given personality name. Unknown names
// are rejected here, so tick-time dispatch never sees one.
func (m *Manager) Register(playerID, personality string) error {
	pers, err := ParsePersonality(personality)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bots[playerID] = &botState{personality: pers}
	return nil
}

// Unregister removes a bot.
func (m *Manager) Unregister(playerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.bots, playerID)
}

// ResetThrottle clears the per-bot decision timers and activity state,
// used on round start.
func (m *Manager) ResetThrottle() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bots {
		b.lastDecide = time.Time{}
		b.state = BotIdle
		b.target = nil
	}
}

// State reports a bot's last activity tag and cached target cell.
func (m *Manager) State(playerID string) (BotState, *game.Position, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bots[playerID]
	if !ok {
		return BotIdle, nil, false
	}
	return b.state, b.target, true
}

// ChoosePowerUp picks from a drop's offered upgrades using the bot's
// personality preferences. Unregistered IDs fall back to the first
// choice.
func (m *Manager) ChoosePowerUp(playerID string, choices []game.AbilityID) game.AbilityID {
	m.mu.Lock()
	b, ok := m.bots[playerID]
	m.mu.Unlock()
	if !ok || len(choices) == 0 {
		if len(choices) > 0 {
			return choices[0]
		}
		return 0
	}
	return b.personality.ChoosePowerUp(choices)
}

// Decide produces the bot's action for this tick. A failed decision is
// returned as an error and treated as a no-op by the engine; a bot bug
// never takes the room down.
//
// The survival reflex runs before any personality logic: a bot
// standing inside a projected blast always tries to leave it first.
func (m *Manager) Decide(self *game.Player, w *game.BotWorld, now time.Time) (game.BotAction, error) {
	m.mu.Lock()
	b, ok := m.bots[self.ID]
	if !ok {
		m.mu.Unlock()
		return game.BotAction{}, fmt.Errorf("player %s is not a registered bot", self.ID)
	}
	if !b.lastDecide.IsZero() && now.Sub(b.lastDecide) < m.interval {
		m.mu.Unlock()
		return game.BotAction{Kind: game.BotActNone}, nil
	}
	b.lastDecide = now
	pers := b.personality
	m.mu.Unlock()

	if !self.Alive {
		return game.BotAction{Kind: game.BotActNone}, nil
	}

	if act, handled := m.survive(self, w); handled {
		m.record(self.ID, intent{state: BotFleeing})
		return act, nil
	}

	act, in, err := pers.decide(self, w, m.rng)
	if err != nil {
		return game.BotAction{}, err
	}
	m.record(self.ID, in)
	return act, nil
}

// record stores the decision's activity tag on the bot.
func (m *Manager) record(playerID string, in intent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.bots[playerID]; ok {
		b.state = in.state
		b.target = in.target
	}
}

// survive handles the escape reflex. It reports handled=true only when
// the bot is currently standing on a danger tile.
func (m *Manager) survive(self *game.Player, w *game.BotWorld) (game.BotAction, bool) {
	danger := DangerTiles(w.Bombs, w.Grid)
	if !danger[self.Position] {
		return game.BotAction{}, false
	}

	// The route out may run through other covered cells (a blast lane
	// is escaped lengthwise), so pathing only avoids terrain and bombs;
	// the destination itself is outside every projected blast.
	if safe, ok := NearestSafeTile(self.Position, w.Grid, w.Bombs, danger); ok {
		if dir, ok := StepToward(self.Position, safe, w.Grid, w.Bombs, nil); ok {
			return game.BotAction{Kind: game.BotActMove, Dir: dir}, true
		}
	}

	// No route out of the blast; grab any walkable neighbor that is
	// at least not also covered, then any walkable neighbor at all.
	blocked := defaultObstacles(w.Grid, w.Bombs)
	neighbors := self.Position.Neighbors()
	order := m.rng.Perm(len(neighbors))
	for _, i := range order {
		next := neighbors[i]
		if !blocked(next) && !danger[next] {
			if dir, ok := self.Position.DirectionToward(next); ok {
				return game.BotAction{Kind: game.BotActMove, Dir: dir}, true
			}
		}
	}
	for _, i := range order {
		next := neighbors[i]
		if !blocked(next) {
			if dir, ok := self.Position.DirectionToward(next); ok {
				return game.BotAction{Kind: game.BotActMove, Dir: dir}, true
			}
		}
	}
	return game.BotAction{Kind: game.BotActNone}, true
}
