package game

import (
	"math/rand"

	"github.com/google/uuid"
)

// PowerUpDrop is a roguelike upgrade pickup left behind by a destroyed
// block. It offers up to three ability choices; the choices are
// re-filtered against the collector when it is picked up, since the
// eventual collector may have maxed tracks the dropper had not.
type PowerUpDrop struct {
	ID       string      `json:"id"`
	Position Position    `json:"position"`
	Choices  []AbilityID `json:"choices"`
}

// NewPowerUpDrop creates a drop at a destroyed block's cell with a
// generic choice set (no collector known yet).
func NewPowerUpDrop(pos Position, registry *AbilityRegistry, count int, rng *rand.Rand) *PowerUpDrop {
	blank := &Player{}
	blank.resetDerived()
	return &PowerUpDrop{
		ID:       "pu-" + uuid.NewString(),
		Position: pos,
		Choices:  registry.RandomChoices(blank, count, rng),
	}
}

// FindDropAt returns the drop occupying the player's cell, if any.
func FindDropAt(pos Position, drops map[string]*PowerUpDrop) *PowerUpDrop {
	for _, d := range drops {
		if d.Position == pos {
			return d
		}
	}
	return nil
}

// ChoicesFor filters a drop's offer down to abilities the collector
// can still upgrade. May return nil, in which case the drop is
// silently consumed with no prompt.
func (d *PowerUpDrop) ChoicesFor(p *Player, registry *AbilityRegistry) []AbilityID {
	var out []AbilityID
	for _, id := range d.Choices {
		if registry.CanUpgrade(p, id) {
			out = append(out, id)
		}
	}
	return out
}

// ApplyPowerUp upgrades the chosen ability and counts the collection.
func ApplyPowerUp(p *Player, id AbilityID, registry *AbilityRegistry) bool {
	if !registry.Upgrade(p, id) {
		return false
	}
	p.Stats.PowerUpsCollected++
	return true
}
