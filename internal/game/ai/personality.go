package ai

import (
	"fmt"
	"math/rand"

	"bomber-royal/internal/game"
)

// Personality selects one of the three built-in bot behaviours. The
// set is closed: dispatch is a switch, not an open plugin surface, so
// an unknown value is caught at registration instead of at tick time.
type Personality uint8

const (
	PersonalityBlitz Personality = iota
	PersonalityDemoman
	PersonalityRat
)

var personalityNames = [...]string{
	PersonalityBlitz:   "blitz",
	PersonalityDemoman: "demoman",
	PersonalityRat:     "rat",
}

// BotState is the activity tag a decision tree leaves behind, exposed
// for debugging and room inspection; it never feeds back into the
// decisions themselves.
type BotState uint8

const (
	BotIdle BotState = iota
	BotFleeing
	BotHunting
	BotBombing
	BotCollecting
	BotHiding
)

var botStateNames = [...]string{
	BotIdle:       "idle",
	BotFleeing:    "fleeing",
	BotHunting:    "hunting",
	BotBombing:    "bombing",
	BotCollecting: "collecting",
	BotHiding:     "hiding",
}

func (s BotState) String() string {
	if int(s) < len(botStateNames) {
		return botStateNames[s]
	}
	return fmt.Sprintf("bot_state(%d)", uint8(s))
}

// intent is what a decision tree reports alongside its action: the
// activity tag and, when the bot is heading somewhere, the cached
// target cell.
type intent struct {
	state  BotState
	target *game.Position
}

func heading(state BotState, target game.Position) intent {
	return intent{state: state, target: &target}
}

func (p Personality) String() string {
	if int(p) < len(personalityNames) {
		return personalityNames[p]
	}
	return fmt.Sprintf("personality(%d)", uint8(p))
}

// ParsePersonality maps a wire name to a Personality.
func ParsePersonality(s string) (Personality, error) {
	for i, name := range personalityNames {
		if name == s {
			return Personality(i), nil
		}
	}
	return 0, fmt.Errorf("unknown bot personality %q", s)
}

// powerUpPriorities ranks upgrade choices per personality; anything
// not listed falls back to the first offered choice.
var powerUpPriorities = map[Personality][]game.AbilityID{
	PersonalityBlitz: {
		game.AbilitySpeed, game.AbilityBombKick, game.AbilityShield,
		game.AbilityBombCount, game.AbilityBlastRadius,
	},
	PersonalityDemoman: {
		game.AbilityBombCount, game.AbilityBlastRadius, game.AbilityPiercingBomb,
		game.AbilityQuickFuse, game.AbilityRemoteDetonate,
	},
	PersonalityRat: {
		game.AbilityShield, game.AbilityEagleEye, game.AbilitySpeed,
		game.AbilityRemoteDetonate, game.AbilityBombKick,
	},
}

// ChoosePowerUp resolves a drop's offered choices against the
// personality's preference order.
func (p Personality) ChoosePowerUp(choices []game.AbilityID) game.AbilityID {
	for _, want := range powerUpPriorities[p] {
		for _, have := range choices {
			if have == want {
				return have
			}
		}
	}
	return choices[0]
}

// decide runs the personality's decision tree. The survival override
// has already been handled by the caller.
func (p Personality) decide(self *game.Player, w *game.BotWorld, rng *rand.Rand) (game.BotAction, intent, error) {
	switch p {
	case PersonalityBlitz:
		act, in := decideBlitz(self, w, rng)
		return act, in, nil
	case PersonalityDemoman:
		act, in := decideDemoman(self, w, rng)
		return act, in, nil
	case PersonalityRat:
		act, in := decideRat(self, w, rng)
		return act, in, nil
	default:
		return game.BotAction{}, intent{}, fmt.Errorf("unknown bot personality %d", uint8(p))
	}
}

// decideBlitz is the aggressor: grab whatever upgrade is closest, then
// hunt the weakest opponent and drop bombs in their face.
func decideBlitz(self *game.Player, w *game.BotWorld, rng *rand.Rand) (game.BotAction, intent) {
	danger := DangerTiles(w.Bombs, w.Grid)

	if act, target, ok := chaseNearestPowerUp(self, w, danger); ok {
		return act, heading(BotCollecting, target)
	}

	if target := weakestOpponent(self, w.Players); target != nil {
		dist := self.Position.ManhattanTo(target.Position)
		if dist <= 3 && self.BombCount < self.MaxBombs &&
			EscapeRouteCount(self.Position, w.Grid, w.Bombs) >= 1 {
			return game.BotAction{Kind: game.BotActPlaceBomb}, intent{state: BotBombing}
		}
		if dir, ok := StepToward(self.Position, target.Position, w.Grid, w.Bombs, danger); ok {
			return game.BotAction{Kind: game.BotActMove, Dir: dir}, heading(BotHunting, target.Position)
		}
	}

	if act, ok := bombAdjacentBlock(self, w, func() bool {
		return EscapeRouteCount(self.Position, w.Grid, w.Bombs) >= 1
	}); ok {
		return act, intent{state: BotBombing}
	}

	if act, target, ok := approachNearestBlock(self, w, danger); ok {
		return act, heading(BotBombing, target)
	}

	return moveToRandomSafe(self, w, danger, rng), intent{state: BotIdle}
}

// decideDemoman is the demolitionist: bomb anything bombable, chase
// players only when they stray close.
func decideDemoman(self *game.Player, w *game.BotWorld, rng *rand.Rand) (game.BotAction, intent) {
	danger := DangerTiles(w.Bombs, w.Grid)

	if act, target, ok := chaseNearestPowerUp(self, w, danger); ok {
		return act, heading(BotCollecting, target)
	}

	_, nextToBlock := AdjacentDestructible(self.Position, w.Grid)
	nearest := nearestOpponent(self, w.Players)
	playerClose := nearest != nil && self.Position.ManhattanTo(nearest.Position) <= 3

	if (nextToBlock || playerClose) && self.BombCount < self.MaxBombs &&
		EscapeRouteCount(self.Position, w.Grid, w.Bombs) >= 1 {
		return game.BotAction{Kind: game.BotActPlaceBomb}, intent{state: BotBombing}
	}

	if nearest != nil && self.Position.ManhattanTo(nearest.Position) > 2 {
		if dir, ok := StepToward(self.Position, nearest.Position, w.Grid, w.Bombs, danger); ok {
			return game.BotAction{Kind: game.BotActMove, Dir: dir}, heading(BotHunting, nearest.Position)
		}
	}

	if act, target, ok := approachNearestBlock(self, w, danger); ok {
		return act, heading(BotBombing, target)
	}

	return moveToRandomSafe(self, w, danger, rng), intent{state: BotIdle}
}

// decideRat is the survivor: keep distance, only bomb when a full
// escape simulation says it is safe, and strike opponents who are
// distracted.
func decideRat(self *game.Player, w *game.BotWorld, rng *rand.Rand) (game.BotAction, intent) {
	danger := DangerTiles(w.Bombs, w.Grid)
	nearest := nearestOpponent(self, w.Players)

	if nearest != nil && self.Position.ManhattanTo(nearest.Position) < 3 {
		if self.BombCount < self.MaxBombs && CanSafelyPlaceBomb(self, w.Grid, w.Bombs) {
			return game.BotAction{Kind: game.BotActPlaceBomb}, intent{state: BotBombing}
		}
		if act, ok := fleeFromPlayers(self, w, danger); ok {
			return act, intent{state: BotFleeing}
		}
	}

	if drop := nearestPowerUp(self.Position, w.PowerUps); drop != nil {
		myDist := self.Position.ManhattanTo(drop.Position)
		contested := false
		for _, o := range w.Players {
			if o.ID == self.ID || !o.Alive {
				continue
			}
			if o.Position.ManhattanTo(drop.Position) < myDist-1 {
				contested = true
				break
			}
		}
		if !contested {
			if dir, ok := StepToward(self.Position, drop.Position, w.Grid, w.Bombs, danger); ok {
				return game.BotAction{Kind: game.BotActMove, Dir: dir}, heading(BotCollecting, drop.Position)
			}
		}
	}

	if act, ok := bombAdjacentBlock(self, w, func() bool {
		return CanSafelyPlaceBomb(self, w.Grid, w.Bombs)
	}); ok {
		return act, intent{state: BotBombing}
	}

	if act, target, ok := approachNearestBlock(self, w, danger); ok {
		return act, heading(BotBombing, target)
	}

	if target := weakestOpponent(self, w.Players); target != nil && isDistracted(target, w, danger) {
		dist := self.Position.ManhattanTo(target.Position)
		switch {
		case dist <= 3 && self.BombCount < self.MaxBombs &&
			CanSafelyPlaceBomb(self, w.Grid, w.Bombs):
			return game.BotAction{Kind: game.BotActPlaceBomb}, intent{state: BotBombing}
		case dist > 2 && dist < 6:
			if dir, ok := StepToward(self.Position, target.Position, w.Grid, w.Bombs, danger); ok {
				return game.BotAction{Kind: game.BotActMove, Dir: dir}, heading(BotHunting, target.Position)
			}
		}
	}

	return moveToRandomSafe(self, w, danger, rng), intent{state: BotIdle}
}

// --- shared tree fragments ---

func chaseNearestPowerUp(self *game.Player, w *game.BotWorld, danger map[game.Position]bool) (game.BotAction, game.Position, bool) {
	drop := nearestPowerUp(self.Position, w.PowerUps)
	if drop == nil {
		return game.BotAction{}, game.Position{}, false
	}
	if dir, ok := StepToward(self.Position, drop.Position, w.Grid, w.Bombs, danger); ok {
		return game.BotAction{Kind: game.BotActMove, Dir: dir}, drop.Position, true
	}
	return game.BotAction{}, game.Position{}, false
}

func bombAdjacentBlock(self *game.Player, w *game.BotWorld, safe func() bool) (game.BotAction, bool) {
	if self.BombCount >= self.MaxBombs {
		return game.BotAction{}, false
	}
	if _, ok := AdjacentDestructible(self.Position, w.Grid); !ok {
		return game.BotAction{}, false
	}
	if !safe() {
		return game.BotAction{}, false
	}
	return game.BotAction{Kind: game.BotActPlaceBomb}, true
}

func approachNearestBlock(self *game.Player, w *game.BotWorld, danger map[game.Position]bool) (game.BotAction, game.Position, bool) {
	block, ok := NearestDestructible(self.Position, w.Grid)
	if !ok {
		return game.BotAction{}, game.Position{}, false
	}
	spot, ok := ApproachTile(self.Position, block, w.Grid, w.Bombs, danger)
	if !ok {
		return game.BotAction{}, game.Position{}, false
	}
	if dir, ok := StepToward(self.Position, spot, w.Grid, w.Bombs, danger); ok {
		return game.BotAction{Kind: game.BotActMove, Dir: dir}, block, true
	}
	return game.BotAction{}, game.Position{}, false
}

// fleeFromPlayers heads to the reachable cell that maximizes the
// distance to the closest living opponent.
func fleeFromPlayers(self *game.Player, w *game.BotWorld, danger map[game.Position]bool) (game.BotAction, bool) {
	blocked := defaultObstacles(w.Grid, w.Bombs)

	best := game.Position{}
	bestScore := -1.0
	for y := 0; y < w.Grid.Height(); y++ {
		for x := 0; x < w.Grid.Width(); x++ {
			p := game.Position{X: x, Y: y}
			if blocked(p) || danger[p] {
				continue
			}
			score := -1.0
			for _, o := range w.Players {
				if o.ID == self.ID || !o.Alive {
					continue
				}
				d := o.Position.DistanceTo(p)
				if score < 0 || d < score {
					score = d
				}
			}
			if score > bestScore {
				best, bestScore = p, score
			}
		}
	}
	if bestScore < 0 {
		return game.BotAction{}, false
	}
	if dir, ok := StepToward(self.Position, best, w.Grid, w.Bombs, danger); ok {
		return game.BotAction{Kind: game.BotActMove, Dir: dir}, true
	}
	return game.BotAction{}, false
}

// isDistracted reports whether a target is busy surviving: standing in
// a danger zone, or tangling with some other player within two tiles.
func isDistracted(target *game.Player, w *game.BotWorld, danger map[game.Position]bool) bool {
	if danger[target.Position] {
		return true
	}
	for _, o := range w.Players {
		if o.ID == target.ID || !o.Alive {
			continue
		}
		if o.Position.ManhattanTo(target.Position) <= 2 {
			return true
		}
	}
	return false
}

func moveToRandomSafe(self *game.Player, w *game.BotWorld, danger map[game.Position]bool, rng *rand.Rand) game.BotAction {
	blocked := defaultObstacles(w.Grid, w.Bombs)
	neighbors := self.Position.Neighbors()
	order := rng.Perm(len(neighbors))
	for _, i := range order {
		next := neighbors[i]
		if !blocked(next) && !danger[next] {
			if dir, ok := self.Position.DirectionToward(next); ok {
				return game.BotAction{Kind: game.BotActMove, Dir: dir}
			}
		}
	}
	return game.BotAction{Kind: game.BotActNone}
}

func nearestOpponent(self *game.Player, players []*game.Player) *game.Player {
	var best *game.Player
	bestDist := -1
	for _, o := range players {
		if o.ID == self.ID || !o.Alive {
			continue
		}
		d := self.Position.ManhattanTo(o.Position)
		if bestDist < 0 || d < bestDist {
			best, bestDist = o, d
		}
	}
	return best
}

// weakestOpponent ranks living opponents by total ability levels,
// breaking ties by distance.
func weakestOpponent(self *game.Player, players []*game.Player) *game.Player {
	var best *game.Player
	for _, o := range players {
		if o.ID == self.ID || !o.Alive {
			continue
		}
		if best == nil ||
			o.Abilities.Total() < best.Abilities.Total() ||
			(o.Abilities.Total() == best.Abilities.Total() &&
				self.Position.ManhattanTo(o.Position) < self.Position.ManhattanTo(best.Position)) {
			best = o
		}
	}
	return best
}

func nearestPowerUp(pos game.Position, drops map[string]*game.PowerUpDrop) *game.PowerUpDrop {
	var best *game.PowerUpDrop
	bestDist := -1
	for _, d := range drops {
		dist := pos.ManhattanTo(d.Position)
		if bestDist < 0 || dist < bestDist {
			best, bestDist = d, dist
		}
	}
	return best
}
