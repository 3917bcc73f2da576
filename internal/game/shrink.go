package game

import "time"

// ShrinkBounds is the inclusive safe rectangle.
type ShrinkBounds struct {
	MinX int `json:"minX"`
	MaxX int `json:"maxX"`
	MinY int `json:"minY"`
	MaxY int `json:"maxY"`
}

// Contains reports whether the position lies inside the rectangle.
func (b ShrinkBounds) Contains(p Position) bool {
	return p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
}

// ShrinkZone is the timed perimeter contraction. Inactive until the
// start delay elapses after round start; then every interval it eats
// one ring of edge cells, which become lethal terrain permanently.
type ShrinkZone struct {
	Active        bool          `json:"active"`
	Bounds        ShrinkBounds  `json:"currentBounds"`
	NextShrinkAt  time.Time     `json:"-"`
	Interval      time.Duration `json:"-"`
	StartDelay    time.Duration `json:"-"`
	ShrinkAmount  int           `json:"-"`
}

// NewShrinkZone covers the whole grid and is inactive.
func NewShrinkZone(width, height int, startDelay, interval time.Duration, amount int) ShrinkZone {
	return ShrinkZone{
		Bounds:       ShrinkBounds{MinX: 0, MaxX: width - 1, MinY: 0, MaxY: height - 1},
		Interval:     interval,
		StartDelay:   startDelay,
		ShrinkAmount: amount,
	}
}

// Process advances the zone state machine and applies at most one
// contraction. Eliminated players (outside the rectangle or standing
// on shrink_death — shields do not help) are returned; their death
// stat is incremented exactly once because Alive gates the check.
func (z *ShrinkZone) Process(grid Grid, players []*Player, startedAt, now time.Time) (shrunk bool, killed []*Player) {
	if !z.Active {
		if now.Sub(startedAt) >= z.StartDelay {
			z.Active = true
			z.NextShrinkAt = now.Add(z.Interval)
		}
		return false, nil
	}

	if now.Before(z.NextShrinkAt) {
		return false, nil
	}

	// Both dimensions must exceed the floor or the zone freezes.
	canShrinkW := z.Bounds.MaxX-z.Bounds.MinX > 2
	canShrinkH := z.Bounds.MaxY-z.Bounds.MinY > 2

	if canShrinkW {
		for y := z.Bounds.MinY; y <= z.Bounds.MaxY; y++ {
			markShrinkDeath(grid, Position{X: z.Bounds.MinX, Y: y})
			markShrinkDeath(grid, Position{X: z.Bounds.MaxX, Y: y})
		}
		z.Bounds.MinX += z.ShrinkAmount
		z.Bounds.MaxX -= z.ShrinkAmount
	}
	if canShrinkH {
		for x := z.Bounds.MinX; x <= z.Bounds.MaxX; x++ {
			markShrinkDeath(grid, Position{X: x, Y: z.Bounds.MinY})
			markShrinkDeath(grid, Position{X: x, Y: z.Bounds.MaxY})
		}
		z.Bounds.MinY += z.ShrinkAmount
		z.Bounds.MaxY -= z.ShrinkAmount
	}

	if canShrinkW || canShrinkH {
		shrunk = true
		killed = z.eliminateOutside(grid, players)
	}

	// Strictly additive rescheduling from now, no drift correction.
	z.NextShrinkAt = now.Add(z.Interval)
	return shrunk, killed
}

// eliminateOutside kills every living player outside the current
// rectangle or standing on lethal terrain.
func (z *ShrinkZone) eliminateOutside(grid Grid, players []*Player) []*Player {
	var killed []*Player
	for _, p := range players {
		if !p.Alive {
			continue
		}
		if !z.Bounds.Contains(p.Position) || grid.At(p.Position) == CellShrinkDeath {
			p.Alive = false
			p.Stats.Deaths++
			killed = append(killed, p)
		}
	}
	return killed
}

func markShrinkDeath(grid Grid, p Position) {
	if grid.InBounds(p) {
		grid[p.Y][p.X] = CellShrinkDeath
	}
}

// TimeUntilShrink returns the countdown the client renders: time until
// activation while inactive, else time until the next contraction.
func (z *ShrinkZone) TimeUntilShrink(startedAt, now time.Time) time.Duration {
	if !z.Active {
		d := z.StartDelay - now.Sub(startedAt)
		if d < 0 {
			return 0
		}
		return d
	}
	d := z.NextShrinkAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
