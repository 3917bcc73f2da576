package game

import (
	"bytes"
	"fmt"
)

// Baseline derived stats (all ability levels at 0).
const (
	defaultMaxBombs    = 1
	defaultBlastRadius = 2
	defaultSpeed       = 1.0
	defaultFogRadius   = 5
)

// AbilityLevels holds a player's level on every upgrade track. The
// fixed-size array keeps lookups branch-free and the set closed.
type AbilityLevels [NumAbilities]int

// MarshalJSON emits the levels keyed by ability name for the client.
func (a AbilityLevels) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for id := AbilityID(0); id < NumAbilities; id++ {
		if id > 0 {
			buf.WriteByte(',')
		}
		fmt.Fprintf(&buf, "%q:%d", id.String(), a[id])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Total returns the sum of all levels, the bot AI's measure of how
// powerful an opponent is.
func (a AbilityLevels) Total() int {
	total := 0
	for _, lvl := range a {
		total += lvl
	}
	return total
}

// PlayerStats are the cumulative per-round counters.
type PlayerStats struct {
	Kills             int `json:"kills"`
	Deaths            int `json:"deaths"`
	BombsPlaced       int `json:"bombsPlaced"`
	BlocksDestroyed   int `json:"blocksDestroyed"`
	PowerUpsCollected int `json:"powerUpsCollected"`
}

// Player is one participant, human or bot. Created at join, reset (not
// destroyed) on play-again. Once Alive is false the position stops
// updating and the struct is effectively frozen until the next round.
type Player struct {
	ID          string      `json:"id"`
	DisplayName string      `json:"displayName"`
	Position    Position    `json:"position"`
	Alive       bool        `json:"alive"`
	Ready       bool        `json:"ready"`
	Color       PlayerColor `json:"color"`
	IsBot       bool        `json:"isBot"`

	// BotPersonality selects the AI decision tree for bots;
	// empty for humans.
	BotPersonality string `json:"botPersonality,omitempty"`

	Abilities AbilityLevels `json:"abilities"`
	Stats     PlayerStats   `json:"stats"`

	// Derived combat stats, recomputed from ability levels on upgrade.
	BombCount           int     `json:"bombCount"` // live bombs currently on the field
	MaxBombs            int     `json:"maxBombs"`
	BlastRadius         int     `json:"blastRadius"`
	Speed               float64 `json:"speed"`
	HasShield           bool    `json:"hasShield"`
	KickLevel           int     `json:"kickLevel"`
	RemoteDetonateLevel int     `json:"remoteDetonateLevel"`
	FogRadius           int     `json:"fogRadius"`
}

// NewPlayer creates a player with baseline stats. The host of a fresh
// room starts ready.
func NewPlayer(id, displayName string, color PlayerColor, ready bool) *Player {
	p := &Player{
		ID:          id,
		DisplayName: displayName,
		Color:       color,
		Alive:       true,
		Ready:       ready,
	}
	p.resetDerived()
	return p
}

// CanKickBombs reports whether the player kicks bombs instead of being
// blocked by them.
func (p *Player) CanKickBombs() bool {
	return p.KickLevel > 0
}

// CanRemoteDetonate reports whether the player has the detonator.
func (p *Player) CanRemoteDetonate() bool {
	return p.RemoteDetonateLevel > 0
}

// ResetForNewGame restores a player to fresh-room state: baseline
// stats, zeroed abilities and counters. Ready is preserved only for
// the host (the caller decides). Idempotent across play-again cycles.
func (p *Player) ResetForNewGame(ready bool) {
	p.Position = Position{}
	p.Alive = true
	p.Ready = ready
	p.Abilities = AbilityLevels{}
	p.Stats = PlayerStats{}
	p.resetDerived()
}

func (p *Player) resetDerived() {
	p.BombCount = 0
	p.MaxBombs = defaultMaxBombs
	p.BlastRadius = defaultBlastRadius
	p.Speed = defaultSpeed
	p.HasShield = false
	p.KickLevel = 0
	p.RemoteDetonateLevel = 0
	p.FogRadius = defaultFogRadius
}
