package game

import (
	"testing"
	"time"
)

func testFogSettings() FogSettings {
	return FogSettings{
		BombAudioRange:    3,
		BombWarningTime:   time.Second,
		BombWarningRange:  5,
		ExplosionVisRange: 5,
	}
}

// TestHasLineOfSight exercises the ray rules: blocks and walls
// occlude, endpoints never block, leaving the grid blocks.
func TestHasLineOfSight(t *testing.T) {
	g := openGrid(11, 11)
	g[5][5] = CellDestructible

	tests := []struct {
		name     string
		from, to Position
		want     bool
	}{
		{"same cell", Position{3, 3}, Position{3, 3}, true},
		{"clear straight line", Position{1, 1}, Position{4, 1}, true},
		{"block occludes", Position{3, 5}, Position{7, 5}, false},
		{"target on the block itself", Position{4, 5}, Position{5, 5}, true},
		{"viewer on the block itself", Position{5, 5}, Position{6, 5}, true},
		{"clear diagonal", Position{1, 1}, Position{3, 3}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasLineOfSight(g, tt.from, tt.to); got != tt.want {
				t.Errorf("HasLineOfSight(%+v, %+v) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

// TestIsCellVisible verifies the combined distance-and-sight rule.
func TestIsCellVisible(t *testing.T) {
	g := openGrid(15, 13)
	viewer := NewPlayer("p1", "Tester", PlayerColors[0], true)
	viewer.Position = Position{7, 6}

	if !IsCellVisible(viewer, Position{10, 6}, g) {
		t.Error("clear cell within fog radius reported hidden")
	}
	// Distance 6 exceeds the default fog radius of 5.
	if IsCellVisible(viewer, Position{13, 6}, g) {
		t.Error("cell beyond fog radius reported visible")
	}

	g[6][9] = CellIndestructible
	if IsCellVisible(viewer, Position{11, 6}, g) {
		t.Error("cell behind a wall reported visible")
	}
}

// TestVisiblePlayers verifies self and the dead are never listed.
func TestVisiblePlayers(t *testing.T) {
	g := openGrid(15, 13)
	viewer := NewPlayer("p1", "A", PlayerColors[0], true)
	viewer.Position = Position{7, 6}
	near := NewPlayer("p2", "B", PlayerColors[1], true)
	near.Position = Position{8, 6}
	dead := NewPlayer("p3", "C", PlayerColors[2], true)
	dead.Position = Position{7, 7}
	dead.Alive = false
	far := NewPlayer("p4", "D", PlayerColors[3], true)
	far.Position = Position{1, 1}

	got := VisiblePlayers(viewer, []*Player{viewer, near, dead, far}, g)
	if len(got) != 1 || got[0].ID != "p2" {
		t.Errorf("VisiblePlayers = %v, want just p2", got)
	}
}

// TestVisibleBombs walks the perception states of another player's
// bomb: hidden far away, audible close, fog-piercing in the final
// warning window.
func TestVisibleBombs(t *testing.T) {
	g := openGrid(20, 13)
	now := time.Now()
	fog := testFogSettings()

	viewer := NewPlayer("p1", "A", PlayerColors[0], true)
	viewer.Position = Position{2, 6}

	// A wall right next to the viewer hides everything beyond it.
	for y := 1; y < 12; y++ {
		g[y][4] = CellIndestructible
	}

	tests := []struct {
		name      string
		bombPos   Position
		owner     string
		remaining time.Duration
		want      BombVisibility
		reported  bool
	}{
		{"own bomb always reported", Position{17, 6}, "p1", 2 * time.Second, BombAudioRange, true},
		{"own bomb in warning window", Position{17, 6}, "p1", 500 * time.Millisecond, BombWarning, true},
		{"hidden behind wall, far, early fuse", Position{10, 6}, "p2", 2 * time.Second, BombHidden, false},
		{"audible within audio range despite wall", Position{5, 6}, "p2", 2 * time.Second, BombAudioRange, true},
		{"warning pierces fog within extended range", Position{10, 6}, "p2", 500 * time.Millisecond, BombWarning, true},
		{"warning does not reach past extended range", Position{16, 6}, "p2", 500 * time.Millisecond, BombHidden, false},
		{"exploding state once due", Position{10, 6}, "p2", -10 * time.Millisecond, BombExploding, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bombs := map[string]*Bomb{
				"b1": {
					ID:       "b1",
					OwnerID:  tt.owner,
					Position: tt.bombPos,
					PlacedAt: now.Add(tt.remaining - 3*time.Second),
					FuseTime: 3 * time.Second,
				},
			}
			got := VisibleBombs(viewer, bombs, g, now, fog)
			if !tt.reported {
				if len(got) != 0 {
					t.Fatalf("bomb reported as %v, want hidden", got[0].Visibility)
				}
				return
			}
			if len(got) != 1 {
				t.Fatalf("reported %d bombs, want 1", len(got))
			}
			if got[0].Visibility != tt.want {
				t.Errorf("Visibility = %v, want %v", got[0].Visibility, tt.want)
			}
		})
	}
}

// TestVisibleBombDistanceAndBearing verifies the directional audio
// payload.
func TestVisibleBombDistanceAndBearing(t *testing.T) {
	g := openGrid(15, 13)
	now := time.Now()
	viewer := NewPlayer("p1", "A", PlayerColors[0], true)
	viewer.Position = Position{2, 6}

	bombs := map[string]*Bomb{
		"b1": {ID: "b1", OwnerID: "p1", Position: Position{5, 6}, PlacedAt: now, FuseTime: 3 * time.Second},
	}
	got := VisibleBombs(viewer, bombs, g, now, testFogSettings())
	if len(got) != 1 {
		t.Fatal("own bomb not reported")
	}
	if got[0].Distance != 3 {
		t.Errorf("Distance = %v, want 3", got[0].Distance)
	}
	if got[0].Bearing != 0 {
		t.Errorf("Bearing = %v, want 0 (due east)", got[0].Bearing)
	}
	if got[0].TimeRemaining != 3000 {
		t.Errorf("TimeRemaining = %d, want 3000", got[0].TimeRemaining)
	}
}

// TestVisibleExplosions verifies the flat no-LOS rule.
func TestVisibleExplosions(t *testing.T) {
	now := time.Now()
	viewer := NewPlayer("p1", "A", PlayerColors[0], true)
	viewer.Position = Position{2, 6}
	fog := testFogSettings()

	near := &Explosion{ID: "e1", Cells: []Position{{10, 10}, {6, 6}}, StartedAt: now, Duration: time.Second}
	far := &Explosion{ID: "e2", Cells: []Position{{12, 6}}, StartedAt: now, Duration: time.Second}

	got := VisibleExplosions(viewer, map[string]*Explosion{"e1": near, "e2": far}, fog)
	if len(got) != 1 || got[0].ID != "e1" {
		t.Errorf("VisibleExplosions = %v, want just e1 (one cell within range)", got)
	}
}

// TestExploredMemory verifies terrain knowledge persists and
// reclassifies: cells leaving the visible set move to explored, and
// stale knowledge is not refreshed until seen again.
func TestExploredMemory(t *testing.T) {
	mem := make(ExploredMemory)

	explored := mem.Update([]VisibleCell{
		{Position: Position{1, 1}, Type: CellDestructible},
		{Position: Position{2, 1}, Type: CellEmpty},
	})
	if len(explored) != 0 {
		t.Errorf("first update produced explored cells: %v", explored)
	}

	// Viewer moved; (1,1) is out of sight now.
	explored = mem.Update([]VisibleCell{
		{Position: Position{2, 1}, Type: CellEmpty},
	})
	if len(explored) != 1 || explored[0].Position != (Position{1, 1}) {
		t.Fatalf("explored = %v, want the out-of-sight cell", explored)
	}
	if explored[0].Type != CellDestructible {
		t.Errorf("explored type = %v, want last-seen destructible", explored[0].Type)
	}
}
