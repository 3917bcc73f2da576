package game

import (
	"testing"
	"time"
)

// openGrid builds a width x height grid of empty interior cells with
// an indestructible border, for bomb tests that need room to work.
func openGrid(width, height int) Grid {
	g := make(Grid, height)
	for y := 0; y < height; y++ {
		row := make([]Cell, width)
		for x := 0; x < width; x++ {
			if x == 0 || y == 0 || x == width-1 || y == height-1 {
				row[x] = CellIndestructible
			}
		}
		g[y] = row
	}
	return g
}

// TestPlaceBombCap verifies the per-player simultaneous bomb cap.
func TestPlaceBombCap(t *testing.T) {
	now := time.Now()
	p := NewPlayer("p1", "Tester", PlayerColors[0], true)
	p.Position = Position{1, 1}
	bombs := map[string]*Bomb{}

	b1 := PlaceBomb(p, bombs, now)
	if b1 == nil {
		t.Fatal("first bomb rejected")
	}
	bombs[b1.ID] = b1

	p.Position = Position{2, 1}
	if PlaceBomb(p, bombs, now) != nil {
		t.Error("second bomb placed past MaxBombs=1")
	}

	// Credit returned after detonation frees the slot.
	ReturnBombCredit(b1, []*Player{p})
	delete(bombs, b1.ID)
	if PlaceBomb(p, bombs, now) == nil {
		t.Error("bomb rejected after credit was returned")
	}
}

// TestPlaceBombOccupiedCell verifies two bombs cannot share a cell.
func TestPlaceBombOccupiedCell(t *testing.T) {
	now := time.Now()
	p1 := NewPlayer("p1", "A", PlayerColors[0], true)
	p2 := NewPlayer("p2", "B", PlayerColors[1], true)
	p1.Position = Position{3, 3}
	p2.Position = Position{3, 3}
	bombs := map[string]*Bomb{}

	b := PlaceBomb(p1, bombs, now)
	bombs[b.ID] = b

	if PlaceBomb(p2, bombs, now) != nil {
		t.Error("bomb placed on an already-occupied cell")
	}
}

// TestPlaceBombSnapshotsStats verifies fuse, radius and piercing are
// frozen at placement time, not read from the owner later.
func TestPlaceBombSnapshotsStats(t *testing.T) {
	registry := NewAbilityRegistry()
	now := time.Now()
	p := NewPlayer("p1", "Tester", PlayerColors[0], true)
	p.Position = Position{1, 1}
	registry.Upgrade(p, AbilityQuickFuse)
	registry.Upgrade(p, AbilityPiercingBomb)

	b := PlaceBomb(p, map[string]*Bomb{}, now)
	if b.FuseTime != 2500*time.Millisecond {
		t.Errorf("FuseTime = %v, want 2.5s", b.FuseTime)
	}
	if !b.Piercing {
		t.Error("Piercing not snapshotted")
	}
	if b.BlastRadius != p.BlastRadius {
		t.Errorf("BlastRadius = %d, want %d", b.BlastRadius, p.BlastRadius)
	}

	// Later upgrades must not alter the placed bomb.
	registry.Upgrade(p, AbilityQuickFuse)
	if b.FuseTime != 2500*time.Millisecond {
		t.Error("placed bomb fuse changed after owner upgrade")
	}
}

// TestExplosionCells exercises the ray rules around obstacles.
func TestExplosionCells(t *testing.T) {
	g := openGrid(9, 9)
	g[4][6] = CellIndestructible // wall right of center
	g[4][2] = CellDestructible   // block left of center

	tests := []struct {
		name     string
		piercing bool
		radius   int
		contains []Position
		excludes []Position
	}{
		{
			name:   "walls stop rays, blocks included then stop",
			radius: 3,
			contains: []Position{
				{4, 4},         // own cell
				{5, 4},         // right, up to the wall
				{2, 4},         // destructible block itself
				{4, 2}, {4, 6}, // vertical reach
			},
			excludes: []Position{
				{6, 4}, // the wall
				{7, 4}, // behind the wall
				{1, 4}, // behind the destructible block
			},
		},
		{
			name:     "piercing continues through blocks",
			piercing: true,
			radius:   3,
			contains: []Position{{2, 4}, {1, 4}},
			excludes: []Position{{6, 4}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Bomb{Position: Position{4, 4}, BlastRadius: tt.radius, Piercing: tt.piercing}
			cells := ExplosionCells(b, g)
			set := make(map[Position]bool, len(cells))
			for _, c := range cells {
				set[c] = true
			}
			for _, want := range tt.contains {
				if !set[want] {
					t.Errorf("cells missing %+v", want)
				}
			}
			for _, not := range tt.excludes {
				if set[not] {
					t.Errorf("cells wrongly include %+v", not)
				}
			}
		})
	}
}

// TestApplyExplosionShield verifies a shielded player survives one hit
// at the cost of the shield.
func TestApplyExplosionShield(t *testing.T) {
	registry := NewAbilityRegistry()
	g := openGrid(9, 9)
	now := time.Now()

	p := NewPlayer("p1", "Tester", PlayerColors[0], true)
	p.Position = Position{4, 4}
	registry.Upgrade(p, AbilityShield)

	b := &Bomb{ID: "b1", OwnerID: "p1", Position: Position{4, 4}, BlastRadius: 2}
	exp := NewExplosion(b, ExplosionCells(b, g), now, 500*time.Millisecond)

	res := applyExplosion(exp, g, []*Player{p}, map[string]*Bomb{}, registry)
	if !p.Alive {
		t.Fatal("shielded player died")
	}
	if p.HasShield {
		t.Error("shield survived the hit")
	}
	if len(res.killed) != 0 {
		t.Errorf("killed = %d, want 0", len(res.killed))
	}

	// Second hit kills.
	exp2 := NewExplosion(b, ExplosionCells(b, g), now, 500*time.Millisecond)
	res2 := applyExplosion(exp2, g, []*Player{p}, map[string]*Bomb{}, registry)
	if p.Alive || len(res2.killed) != 1 {
		t.Error("unshielded player survived the second hit")
	}
	if p.Stats.Deaths != 1 {
		t.Errorf("Deaths = %d, want 1", p.Stats.Deaths)
	}
}

// TestApplyExplosionChainsBombs verifies bombs caught in a blast are
// reported for chaining.
func TestApplyExplosionChainsBombs(t *testing.T) {
	registry := NewAbilityRegistry()
	g := openGrid(9, 9)
	now := time.Now()

	b1 := &Bomb{ID: "b1", OwnerID: "p1", Position: Position{4, 4}, BlastRadius: 2}
	b2 := &Bomb{ID: "b2", OwnerID: "p1", Position: Position{5, 4}, BlastRadius: 2}
	bombs := map[string]*Bomb{"b1": b1, "b2": b2}

	exp := NewExplosion(b1, ExplosionCells(b1, g), now, 500*time.Millisecond)
	res := applyExplosion(exp, g, nil, bombs, registry)

	found := false
	for _, c := range res.chained {
		if c.ID == "b2" {
			found = true
		}
	}
	if !found {
		t.Error("bomb in blast not reported as chained")
	}
}

// TestKickAndSlide verifies the kick starts a slide and the slide
// advances and stops at obstacles.
func TestKickAndSlide(t *testing.T) {
	g := openGrid(9, 9)
	now := time.Now()

	kicker := NewPlayer("p1", "Tester", PlayerColors[0], true)
	kicker.Position = Position{2, 4}
	kicker.KickLevel = 1

	b := &Bomb{ID: "b1", OwnerID: "p1", Position: Position{3, 4}, BlastRadius: 2, PlacedAt: now, FuseTime: 3 * time.Second}
	bombs := map[string]*Bomb{"b1": b}
	players := []*Player{kicker}

	if !TryKickBomb(kicker, Position{3, 4}, DirRight, bombs, g, players) {
		t.Fatal("kick rejected with a clear lane")
	}
	if !b.IsSliding || b.SlideDir != DirRight || b.KickedBy != "p1" {
		t.Fatalf("bomb not sliding after kick: %+v", b)
	}

	// One full second at 5 tiles/s crosses several tiles; wall at x=8
	// stops it at x=7.
	ProcessSlidingBombs(bombs, g, players, time.Second, 5)
	if b.Position != (Position{7, 4}) {
		t.Errorf("bomb at %+v, want {7 4}", b.Position)
	}
	if b.IsSliding {
		t.Error("bomb still sliding after hitting the wall")
	}
}

// TestKickBlockedLane verifies a kick into an occupied lane fails and
// leaves the bomb stationary.
func TestKickBlockedLane(t *testing.T) {
	g := openGrid(9, 9)

	kicker := NewPlayer("p1", "A", PlayerColors[0], true)
	kicker.Position = Position{2, 4}
	kicker.KickLevel = 1
	blocker := NewPlayer("p2", "B", PlayerColors[1], true)
	blocker.Position = Position{4, 4}

	b := &Bomb{ID: "b1", OwnerID: "p1", Position: Position{3, 4}}
	bombs := map[string]*Bomb{"b1": b}
	players := []*Player{kicker, blocker}

	if TryKickBomb(kicker, Position{3, 4}, DirRight, bombs, g, players) {
		t.Error("kick succeeded into a lane blocked by a player")
	}
	if b.IsSliding {
		t.Error("bomb sliding after failed kick")
	}
}

// TestStopKickedBombs verifies only the kicker's own sliding bombs
// stop.
func TestStopKickedBombs(t *testing.T) {
	b1 := &Bomb{ID: "b1", IsSliding: true, KickedBy: "p1", SlideProgress: 0.4}
	b2 := &Bomb{ID: "b2", IsSliding: true, KickedBy: "p2"}
	bombs := map[string]*Bomb{"b1": b1, "b2": b2}

	stopped := StopKickedBombs(bombs, "p1")
	if stopped != 1 {
		t.Errorf("stopped = %d, want 1", stopped)
	}
	if b1.IsSliding {
		t.Error("own kicked bomb still sliding")
	}
	if !b2.IsSliding {
		t.Error("someone else's bomb was stopped")
	}
}

// TestExpiredBombs verifies fuse expiry collection.
func TestExpiredBombs(t *testing.T) {
	now := time.Now()
	bombs := map[string]*Bomb{
		"due":  {ID: "due", PlacedAt: now.Add(-4 * time.Second), FuseTime: 3 * time.Second},
		"wait": {ID: "wait", PlacedAt: now.Add(-time.Second), FuseTime: 3 * time.Second},
	}

	expired := ExpiredBombs(bombs, now)
	if len(expired) != 1 || expired[0].ID != "due" {
		t.Errorf("expired = %v, want just the due bomb", expired)
	}
}
