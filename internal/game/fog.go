package game

import "time"

// BombVisibility is the perception state of a bomb from one viewer's
// point of view.
type BombVisibility string

const (
	BombHidden     BombVisibility = "hidden"
	BombAudioRange BombVisibility = "audio_range"
	BombWarning    BombVisibility = "warning"
	BombExploding  BombVisibility = "exploding"
)

// VisibleCell is one revealed terrain tile.
type VisibleCell struct {
	Position
	Type Cell `json:"type"`
}

// VisibleBomb is a bomb as perceived by one viewer, with the distance
// and bearing the client needs for directional audio.
type VisibleBomb struct {
	*Bomb
	Visibility    BombVisibility `json:"visibility"`
	Distance      float64        `json:"distanceToPlayer"`
	Bearing       float64        `json:"direction"`
	TimeRemaining int64          `json:"timeRemaining"` // milliseconds
}

// FogSettings are the perception tunables, copied from the room config.
type FogSettings struct {
	BombAudioRange    float64
	BombWarningTime   time.Duration
	BombWarningRange  float64
	ExplosionVisRange float64
}

// HasLineOfSight traces an integer Bresenham ray between two cells.
// Intermediate destructible or indestructible cells block sight, as
// does leaving the grid; the endpoints themselves never block.
func HasLineOfSight(grid Grid, from, to Position) bool {
	if from == to {
		return true
	}

	dx := abs(to.X - from.X)
	dy := abs(to.Y - from.Y)
	sx := 1
	if from.X > to.X {
		sx = -1
	}
	sy := 1
	if from.Y > to.Y {
		sy = -1
	}
	err := dx - dy

	x, y := from.X, from.Y
	for x != to.X || y != to.Y {
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x += sx
		}
		if e2 < dx {
			err += dx
			y += sy
		}

		if x == to.X && y == to.Y {
			break
		}

		p := Position{X: x, Y: y}
		if !grid.InBounds(p) {
			return false
		}
		if grid.At(p).Blocking() {
			return false
		}
	}

	return true
}

// IsCellVisible applies the full visibility rule: Euclidean distance
// within the viewer's fog radius AND a clear line of sight.
func IsCellVisible(viewer *Player, target Position, grid Grid) bool {
	if viewer.Position.DistanceTo(target) > float64(viewer.FogRadius) {
		return false
	}
	return HasLineOfSight(grid, viewer.Position, target)
}

// VisibleCells scans the whole grid for the viewer. O(w*h) per player
// per tick, fine at these grid sizes.
func VisibleCells(viewer *Player, grid Grid) []VisibleCell {
	var cells []VisibleCell
	for y := 0; y < grid.Height(); y++ {
		for x := 0; x < grid.Width(); x++ {
			p := Position{X: x, Y: y}
			if IsCellVisible(viewer, p, grid) {
				cells = append(cells, VisibleCell{Position: p, Type: grid[y][x]})
			}
		}
	}
	return cells
}

// VisiblePlayers returns the other living players the viewer can see.
// A viewer never reports itself.
func VisiblePlayers(viewer *Player, players []*Player, grid Grid) []*Player {
	var out []*Player
	for _, p := range players {
		if p.ID == viewer.ID || !p.Alive {
			continue
		}
		if IsCellVisible(viewer, p.Position, grid) {
			out = append(out, p)
		}
	}
	return out
}

// VisibleBombs classifies each bomb for the viewer.
//
// Own bombs are always reported: warning inside the final window,
// audio_range otherwise. Other players' bombs are hidden by default,
// audible within the flat audio range regardless of sight, revealed
// through fog within an extended radius during the warning window,
// visible under the normal cell rule, and always shown once due.
func VisibleBombs(viewer *Player, bombs map[string]*Bomb, grid Grid, now time.Time, fog FogSettings) []VisibleBomb {
	var out []VisibleBomb

	for _, b := range bombs {
		dist := viewer.Position.DistanceTo(b.Position)
		remaining := b.TimeRemaining(now)
		vb := VisibleBomb{
			Bomb:          b,
			Distance:      dist,
			Bearing:       viewer.Position.BearingTo(b.Position),
			TimeRemaining: remaining.Milliseconds(),
		}

		if b.OwnerID == viewer.ID {
			if remaining <= fog.BombWarningTime {
				vb.Visibility = BombWarning
			} else {
				vb.Visibility = BombAudioRange
			}
			out = append(out, vb)
			continue
		}

		switch {
		case remaining <= 0:
			vb.Visibility = BombExploding
		case remaining <= fog.BombWarningTime:
			if dist <= float64(viewer.FogRadius)+fog.BombWarningRange {
				vb.Visibility = BombWarning
			} else {
				vb.Visibility = BombHidden
			}
		case dist <= fog.BombAudioRange:
			vb.Visibility = BombAudioRange
		case IsCellVisible(viewer, b.Position, grid):
			vb.Visibility = BombAudioRange
		default:
			vb.Visibility = BombHidden
		}

		if vb.Visibility != BombHidden {
			out = append(out, vb)
		}
	}

	return out
}

// VisiblePowerUps applies the plain cell rule to drops.
func VisiblePowerUps(viewer *Player, drops map[string]*PowerUpDrop, grid Grid) []*PowerUpDrop {
	var out []*PowerUpDrop
	for _, d := range drops {
		if IsCellVisible(viewer, d.Position, grid) {
			out = append(out, d)
		}
	}
	return out
}

// VisibleExplosions is not fog-gated: an explosion is perceptible if
// any of its cells lies within a flat radius of the viewer, regardless
// of line of sight or fog radius.
func VisibleExplosions(viewer *Player, explosions map[string]*Explosion, fog FogSettings) []*Explosion {
	var out []*Explosion
	for _, e := range explosions {
		for _, cell := range e.Cells {
			if viewer.Position.DistanceTo(cell) <= fog.ExplosionVisRange {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// ExploredMemory is one player's persistent terrain knowledge: cell
// position to last-known type. Terrain knowledge never expires once
// learned; only live-entity visibility re-fogs.
type ExploredMemory map[Position]Cell

// Update overwrites the memory with the currently visible cells and
// returns the previously-recorded cells that are not visible now
// (rendered dimmed by the client).
func (m ExploredMemory) Update(visible []VisibleCell) []VisibleCell {
	seen := make(map[Position]struct{}, len(visible))
	for _, c := range visible {
		m[c.Position] = c.Type
		seen[c.Position] = struct{}{}
	}

	var explored []VisibleCell
	for pos, typ := range m {
		if _, ok := seen[pos]; !ok {
			explored = append(explored, VisibleCell{Position: pos, Type: typ})
		}
	}
	return explored
}
