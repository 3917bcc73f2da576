package game

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"
)

// AbilityID identifies one upgrade track. The set is closed: player
// ability levels live in a fixed-size array indexed by AbilityID.
type AbilityID uint8

const (
	AbilityBombCount AbilityID = iota
	AbilityBlastRadius
	AbilityBombKick
	AbilityRemoteDetonate
	AbilitySpeed
	AbilityShield
	AbilityPiercingBomb
	AbilityEagleEye
	AbilityQuickFuse

	NumAbilities // sentinel, array length
)

var abilityNames = [NumAbilities]string{
	AbilityBombCount:      "bomb_count",
	AbilityBlastRadius:    "blast_radius",
	AbilityBombKick:       "bomb_kick",
	AbilityRemoteDetonate: "remote_detonate",
	AbilitySpeed:          "speed",
	AbilityShield:         "shield",
	AbilityPiercingBomb:   "piercing_bomb",
	AbilityEagleEye:       "eagle_eye",
	AbilityQuickFuse:      "quick_fuse",
}

func (id AbilityID) String() string {
	if id < NumAbilities {
		return abilityNames[id]
	}
	return fmt.Sprintf("ability(%d)", uint8(id))
}

func (id AbilityID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

// ParseAbilityID maps a wire name back to an AbilityID.
func ParseAbilityID(s string) (AbilityID, bool) {
	for i := AbilityID(0); i < NumAbilities; i++ {
		if abilityNames[i] == s {
			return i, true
		}
	}
	return 0, false
}

// Per-level effect tables.
var (
	speedMultipliers = [4]float64{1.0, 1.15, 1.30, 1.45}
	fuseTimes        = [4]time.Duration{3000 * time.Millisecond, 2500 * time.Millisecond, 2000 * time.Millisecond, 1500 * time.Millisecond}
	eagleEyeBonus    = [3]int{0, 3, 6}
)

// FuseTimeForLevel returns the bomb fuse for a quick_fuse level. The
// value is snapshotted onto the bomb at placement, not stored live.
func FuseTimeForLevel(level int) time.Duration {
	if level < 0 || level >= len(fuseTimes) {
		return fuseTimes[0]
	}
	return fuseTimes[level]
}

// AbilityDef is one entry in the registry: a max level and the pure
// effect applied to the player's derived stats when that level is set.
type AbilityDef struct {
	ID       AbilityID
	MaxLevel int
	Apply    func(p *Player, level int)
}

// AbilityRegistry is the immutable upgrade table. It is constructed
// once and passed by reference to the engine and the bot AI; nothing
// mutates it after NewAbilityRegistry returns.
type AbilityRegistry struct {
	defs [NumAbilities]AbilityDef
}

// NewAbilityRegistry builds the registry with the full ability set.
func NewAbilityRegistry() *AbilityRegistry {
	r := &AbilityRegistry{}
	register := func(d AbilityDef) { r.defs[d.ID] = d }

	register(AbilityDef{
		ID:       AbilityBombCount,
		MaxLevel: 3,
		Apply: func(p *Player, level int) {
			p.MaxBombs = 1 + level
		},
	})
	register(AbilityDef{
		ID:       AbilityBlastRadius,
		MaxLevel: 3,
		Apply: func(p *Player, level int) {
			p.BlastRadius = 1 + level
		},
	})
	register(AbilityDef{
		ID:       AbilityBombKick,
		MaxLevel: 3,
		Apply: func(p *Player, level int) {
			p.KickLevel = level
		},
	})
	register(AbilityDef{
		ID:       AbilityRemoteDetonate,
		MaxLevel: 3,
		Apply: func(p *Player, level int) {
			p.RemoteDetonateLevel = level
		},
	})
	register(AbilityDef{
		ID:       AbilitySpeed,
		MaxLevel: 3,
		Apply: func(p *Player, level int) {
			if level >= 0 && level < len(speedMultipliers) {
				p.Speed = speedMultipliers[level]
			}
		},
	})
	register(AbilityDef{
		ID:       AbilityShield,
		MaxLevel: 1,
		Apply: func(p *Player, level int) {
			p.HasShield = level > 0
		},
	})
	register(AbilityDef{
		ID:       AbilityPiercingBomb,
		MaxLevel: 1,
		// Piercing is snapshotted onto bombs at placement time.
		Apply: func(p *Player, level int) {},
	})
	register(AbilityDef{
		ID:       AbilityEagleEye,
		MaxLevel: 2,
		Apply: func(p *Player, level int) {
			if level >= 0 && level < len(eagleEyeBonus) {
				p.FogRadius = defaultFogRadius + eagleEyeBonus[level]
			}
		},
	})
	register(AbilityDef{
		ID:       AbilityQuickFuse,
		MaxLevel: 3,
		// Fuse time is snapshotted onto bombs at placement time.
		Apply: func(p *Player, level int) {},
	})

	return r
}

// Def returns the definition for an ability.
func (r *AbilityRegistry) Def(id AbilityID) AbilityDef {
	return r.defs[id]
}

// MaxLevel returns the cap for an ability.
func (r *AbilityRegistry) MaxLevel(id AbilityID) int {
	return r.defs[id].MaxLevel
}

// CanUpgrade reports whether the player has room left on the track.
func (r *AbilityRegistry) CanUpgrade(p *Player, id AbilityID) bool {
	return p.Abilities[id] < r.defs[id].MaxLevel
}

// Upgrade raises the player's level for the ability by one, capped at
// the max, and applies the derived-stat effect. Returns false if the
// ability was already maxed.
func (r *AbilityRegistry) Upgrade(p *Player, id AbilityID) bool {
	if !r.CanUpgrade(p, id) {
		return false
	}
	newLevel := p.Abilities[id] + 1
	p.Abilities[id] = newLevel
	r.defs[id].Apply(p, newLevel)
	return true
}

// Lose resets an ability to level 0 and reapplies the zero-level
// effect. Currently only the shield is ever lost (consumed on hit).
func (r *AbilityRegistry) Lose(p *Player, id AbilityID) {
	p.Abilities[id] = 0
	r.defs[id].Apply(p, 0)
}

// RandomChoices returns up to count ability ids the player can still
// upgrade, shuffled with the room's rng. Fewer than count eligible
// abilities yields a shorter slice; zero eligible yields nil.
func (r *AbilityRegistry) RandomChoices(p *Player, count int, rng *rand.Rand) []AbilityID {
	eligible := make([]AbilityID, 0, NumAbilities)
	for id := AbilityID(0); id < NumAbilities; id++ {
		if r.CanUpgrade(p, id) {
			eligible = append(eligible, id)
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	rng.Shuffle(len(eligible), func(i, j int) {
		eligible[i], eligible[j] = eligible[j], eligible[i]
	})
	if len(eligible) > count {
		eligible = eligible[:count]
	}
	return eligible
}
