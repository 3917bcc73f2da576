package game

import "time"

// BotActionKind discriminates what a bot wants to do on a tick.
type BotActionKind uint8

const (
	BotActNone BotActionKind = iota
	BotActMove
	BotActPlaceBomb
)

// BotAction is a single bot decision. BotActNone means hold still.
type BotAction struct {
	Kind BotActionKind
	Dir  Direction
}

// BotWorld is the room snapshot a bot decides against. Bots read the
// full state; fog of war applies to clients, not to the AI.
type BotWorld struct {
	Grid     Grid
	Players  []*Player
	Bombs    map[string]*Bomb
	PowerUps map[string]*PowerUpDrop
}

// BotDriver produces decisions for the bots of one room. The engine
// executes the returned actions through the same validation as human
// input, and a returned error downgrades to a no-op for that bot.
type BotDriver interface {
	Register(playerID, personality string) error
	Unregister(playerID string)
	ResetThrottle()
	Decide(self *Player, w *BotWorld, now time.Time) (BotAction, error)
	ChoosePowerUp(playerID string, choices []AbilityID) AbilityID
}
