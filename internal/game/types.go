package game

import (
	"encoding/json"
	"fmt"
	"math"
)

// Cell is the terrain type of a single grid tile.
type Cell uint8

const (
	CellEmpty Cell = iota
	CellDestructible
	CellIndestructible
	CellShrinkDeath
)

var cellNames = [...]string{
	CellEmpty:          "empty",
	CellDestructible:   "destructible",
	CellIndestructible: "indestructible",
	CellShrinkDeath:    "shrink_death",
}

func (c Cell) String() string {
	if int(c) < len(cellNames) {
		return cellNames[c]
	}
	return fmt.Sprintf("cell(%d)", uint8(c))
}

// MarshalJSON emits the wire name the client expects.
func (c Cell) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// Blocking reports whether the cell blocks line of sight.
func (c Cell) Blocking() bool {
	return c == CellDestructible || c == CellIndestructible
}

// Direction is one of the four cardinal movement directions.
type Direction uint8

const (
	DirUp Direction = iota
	DirDown
	DirLeft
	DirRight
)

var dirNames = [...]string{
	DirUp:    "up",
	DirDown:  "down",
	DirLeft:  "left",
	DirRight: "right",
}

func (d Direction) String() string {
	if int(d) < len(dirNames) {
		return dirNames[d]
	}
	return fmt.Sprintf("direction(%d)", uint8(d))
}

func (d Direction) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// ParseDirection maps a wire name back to a Direction.
func ParseDirection(s string) (Direction, bool) {
	for i, name := range dirNames {
		if name == s {
			return Direction(i), true
		}
	}
	return 0, false
}

// Delta returns the per-step offset for the direction.
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case DirUp:
		return 0, -1
	case DirDown:
		return 0, 1
	case DirLeft:
		return -1, 0
	default:
		return 1, 0
	}
}

// Position is a tile coordinate. It is a value type so it can be used
// directly as a map key for danger-tile sets and explored-cell memory.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Step returns the position one tile away in the given direction.
func (p Position) Step(d Direction) Position {
	dx, dy := d.Delta()
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// DistanceTo returns the Euclidean distance to another position.
func (p Position) DistanceTo(o Position) float64 {
	dx := float64(o.X - p.X)
	dy := float64(o.Y - p.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// ManhattanTo returns the Manhattan distance to another position.
// The bot AI uses this for target ranking; the fog of war uses Euclidean.
func (p Position) ManhattanTo(o Position) int {
	return abs(o.X-p.X) + abs(o.Y-p.Y)
}

// BearingTo returns the angle in radians from p toward o, for the
// client's stereo panning of directional audio cues.
func (p Position) BearingTo(o Position) float64 {
	return math.Atan2(float64(o.Y-p.Y), float64(o.X-p.X))
}

// Neighbors returns the four cardinal neighbors in a fixed order.
func (p Position) Neighbors() [4]Position {
	return [4]Position{
		{X: p.X + 1, Y: p.Y},
		{X: p.X - 1, Y: p.Y},
		{X: p.X, Y: p.Y + 1},
		{X: p.X, Y: p.Y - 1},
	}
}

// DirectionToward returns the single-step direction from p toward an
// adjacent-ish target, preferring horizontal movement. Returns false if
// the positions are equal.
func (p Position) DirectionToward(o Position) (Direction, bool) {
	switch {
	case o.X > p.X:
		return DirRight, true
	case o.X < p.X:
		return DirLeft, true
	case o.Y > p.Y:
		return DirDown, true
	case o.Y < p.Y:
		return DirUp, true
	default:
		return 0, false
	}
}

// GamePhase is the lifecycle state of a room.
type GamePhase uint8

const (
	PhaseLobby GamePhase = iota
	PhaseCountdown
	PhasePlaying
	PhaseGameOver
)

var phaseNames = [...]string{
	PhaseLobby:     "LOBBY",
	PhaseCountdown: "COUNTDOWN",
	PhasePlaying:   "PLAYING",
	PhaseGameOver:  "GAME_OVER",
}

func (p GamePhase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

func (p GamePhase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// PlayerColor is one of the four room colors, uniquely assigned.
type PlayerColor string

const (
	ColorRed    PlayerColor = "red"
	ColorBlue   PlayerColor = "blue"
	ColorGreen  PlayerColor = "green"
	ColorYellow PlayerColor = "yellow"
)

// PlayerColors is the assignment order for joining players.
var PlayerColors = [4]PlayerColor{ColorRed, ColorBlue, ColorGreen, ColorYellow}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
