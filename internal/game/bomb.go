package game

import (
	"time"

	"github.com/google/uuid"
)

// Bomb is a placed, armed bomb. Blast radius, fuse and piercing are
// snapshotted from the owner at placement time; later upgrades do not
// retroactively change armed bombs.
type Bomb struct {
	ID          string        `json:"id"`
	OwnerID     string        `json:"ownerId"`
	Position    Position      `json:"position"`
	BlastRadius int           `json:"blastRadius"`
	PlacedAt    time.Time     `json:"-"`
	FuseTime    time.Duration `json:"-"`
	Piercing    bool          `json:"isPiercing"`

	// Sliding state for the kick mechanic.
	IsSliding     bool      `json:"isSliding"`
	SlideDir      Direction `json:"slideDirection"`
	SlideProgress float64   `json:"slideProgress"` // sub-tile progress, 0..1
	KickedBy      string    `json:"kickedBy"`
}

// TimeRemaining returns how long until the fuse expires. Negative once
// the bomb is due to explode.
func (b *Bomb) TimeRemaining(now time.Time) time.Duration {
	return b.PlacedAt.Add(b.FuseTime).Sub(now)
}

// Explosion is the record of one detonation. After creation it is
// purely presentational: a cell is lethal only at the instant of
// detonation, not for the visual duration.
type Explosion struct {
	ID        string        `json:"id"`
	OwnerID   string        `json:"ownerId"`
	Cells     []Position    `json:"cells"`
	StartedAt time.Time     `json:"-"`
	Duration  time.Duration `json:"-"`
}

// Expired reports whether the visual duration has elapsed.
func (e *Explosion) Expired(now time.Time) bool {
	return now.Sub(e.StartedAt) >= e.Duration
}

// PlaceBomb creates a bomb at the player's cell. Returns nil (silent
// no-op, no stat changes) if the player is at their concurrent bomb
// cap or a bomb already occupies the cell.
func PlaceBomb(p *Player, bombs map[string]*Bomb, now time.Time) *Bomb {
	if p.BombCount >= p.MaxBombs {
		return nil
	}
	if bombAt(bombs, p.Position, "") != nil {
		return nil
	}

	bomb := &Bomb{
		ID:          "bomb-" + uuid.NewString(),
		OwnerID:     p.ID,
		Position:    p.Position,
		BlastRadius: p.BlastRadius,
		PlacedAt:    now,
		FuseTime:    FuseTimeForLevel(p.Abilities[AbilityQuickFuse]),
		Piercing:    p.Abilities[AbilityPiercingBomb] > 0,
	}

	bombs[bomb.ID] = bomb
	p.BombCount++
	p.Stats.BombsPlaced++
	return bomb
}

// bombAt returns the bomb occupying pos, skipping excludeID.
func bombAt(bombs map[string]*Bomb, pos Position, excludeID string) *Bomb {
	for _, b := range bombs {
		if b.ID != excludeID && b.Position == pos {
			return b
		}
	}
	return nil
}

// canBombMoveTo reports whether a sliding bomb may enter the cell:
// empty terrain, no other bomb, no living player.
func canBombMoveTo(pos Position, grid Grid, bombs map[string]*Bomb, excludeID string, players []*Player) bool {
	if grid.At(pos) != CellEmpty {
		return false
	}
	if bombAt(bombs, pos, excludeID) != nil {
		return false
	}
	for _, p := range players {
		if p.Alive && p.Position == pos {
			return false
		}
	}
	return true
}

// TryKickBomb handles a kick-capable player walking into a stationary
// bomb: the bomb starts sliding in the movement direction if its next
// cell is free. Returns true if the kick happened (the caller then
// moves the player onto the bomb's former cell).
func TryKickBomb(p *Player, target Position, dir Direction, bombs map[string]*Bomb, grid Grid, players []*Player) bool {
	if !p.CanKickBombs() {
		return false
	}

	var bomb *Bomb
	for _, b := range bombs {
		if b.Position == target && !b.IsSliding {
			bomb = b
			break
		}
	}
	if bomb == nil {
		return false
	}

	if !canBombMoveTo(target.Step(dir), grid, bombs, bomb.ID, players) {
		return false
	}

	bomb.IsSliding = true
	bomb.SlideDir = dir
	bomb.SlideProgress = 0
	bomb.KickedBy = p.ID
	return true
}

// ProcessSlidingBombs advances every sliding bomb by elapsed time at
// slideSpeed tiles per second. A bomb crossing a full tile moves into
// the next cell, or stops the instant anything blocks it.
func ProcessSlidingBombs(bombs map[string]*Bomb, grid Grid, players []*Player, elapsed time.Duration, slideSpeed float64) {
	progress := slideSpeed * elapsed.Seconds()

	for _, b := range bombs {
		if !b.IsSliding {
			continue
		}

		b.SlideProgress += progress
		for b.IsSliding && b.SlideProgress >= 1 {
			next := b.Position.Step(b.SlideDir)
			if canBombMoveTo(next, grid, bombs, b.ID, players) {
				b.Position = next
				b.SlideProgress -= 1
			} else {
				StopBombSlide(b)
			}
		}
	}
}

// StopBombSlide halts a sliding bomb at its current cell.
func StopBombSlide(b *Bomb) {
	b.IsSliding = false
	b.SlideProgress = 0
	b.KickedBy = ""
}

// StopKickedBombs halts every bomb the player is currently sliding
// (the kick level 3 stop action). Returns how many were stopped.
func StopKickedBombs(bombs map[string]*Bomb, playerID string) int {
	stopped := 0
	for _, b := range bombs {
		if b.IsSliding && b.KickedBy == playerID {
			StopBombSlide(b)
			stopped++
		}
	}
	return stopped
}

// ExpiredBombs collects the bombs whose fuse has run out.
func ExpiredBombs(bombs map[string]*Bomb, now time.Time) []*Bomb {
	var due []*Bomb
	for _, b := range bombs {
		if now.Sub(b.PlacedAt) >= b.FuseTime {
			due = append(due, b)
		}
	}
	return due
}

// ExplosionCells computes the cells hit by a bomb: its own cell plus
// rays in the four cardinal directions up to the blast radius. A ray
// stops before an indestructible block (excluded) and after a
// destructible block (included) unless the bomb is piercing.
func ExplosionCells(b *Bomb, grid Grid) []Position {
	cells := []Position{b.Position}

	for dir := DirUp; dir <= DirRight; dir++ {
		pos := b.Position
		for i := 1; i <= b.BlastRadius; i++ {
			pos = pos.Step(dir)
			if !grid.InBounds(pos) {
				break
			}

			cell := grid.At(pos)
			if cell == CellIndestructible {
				break
			}

			cells = append(cells, pos)

			if cell == CellDestructible && !b.Piercing {
				break
			}
		}
	}

	return cells
}

// NewExplosion records a detonation.
func NewExplosion(b *Bomb, cells []Position, now time.Time, duration time.Duration) *Explosion {
	return &Explosion{
		ID:        "exp-" + uuid.NewString(),
		OwnerID:   b.OwnerID,
		Cells:     cells,
		StartedAt: now,
		Duration:  duration,
	}
}

// destructionResult is what one explosion did to the world.
type destructionResult struct {
	destroyedBlocks []Position
	killed          []*Player
	chained         []*Bomb
}

// applyExplosion mutates the grid and players for one explosion:
// destructible cells become empty, shielded players lose the shield
// (level reset to 0), unshielded players die, and any bomb standing in
// the blast is reported for chain processing.
func applyExplosion(exp *Explosion, grid Grid, players []*Player, bombs map[string]*Bomb, registry *AbilityRegistry) destructionResult {
	var res destructionResult

	for _, cell := range exp.Cells {
		if grid.DestroyBlock(cell) {
			res.destroyedBlocks = append(res.destroyedBlocks, cell)
		}

		for _, p := range players {
			if !p.Alive || p.Position != cell {
				continue
			}
			if p.HasShield {
				registry.Lose(p, AbilityShield)
			} else {
				p.Alive = false
				p.Stats.Deaths++
				res.killed = append(res.killed, p)
			}
		}

		for _, b := range bombs {
			if b.Position == cell {
				res.chained = append(res.chained, b)
			}
		}
	}

	return res
}

// ReturnBombCredit hands the bomb-count credit back to the owner once
// the bomb has detonated.
func ReturnBombCredit(b *Bomb, players []*Player) {
	for _, p := range players {
		if p.ID == b.OwnerID {
			if p.BombCount > 0 {
				p.BombCount--
			}
			return
		}
	}
}
