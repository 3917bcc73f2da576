package game

import "math/rand"

// Grid is the destructible/indestructible tile layout of one round.
// It is row-major: Grid[y][x]. Owned by the room; regenerated per round.
type Grid [][]Cell

// SpawnPositions returns the four corner spawn points for a grid of the
// given size, in color-assignment order.
func SpawnPositions(width, height int) [4]Position {
	return [4]Position{
		{X: 1, Y: 1},                   // top-left (red)
		{X: width - 2, Y: 1},           // top-right (blue)
		{X: 1, Y: height - 2},          // bottom-left (green)
		{X: width - 2, Y: height - 2},  // bottom-right (yellow)
	}
}

// safeZone collects the cells that must stay empty around one spawn:
// the 3x3 neighborhood plus a two-cell escape corridor right and down.
func safeZone(spawn Position) map[Position]struct{} {
	safe := make(map[Position]struct{}, 11)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			safe[Position{X: spawn.X + dx, Y: spawn.Y + dy}] = struct{}{}
		}
	}
	safe[Position{X: spawn.X + 2, Y: spawn.Y}] = struct{}{}
	safe[Position{X: spawn.X, Y: spawn.Y + 2}] = struct{}{}
	return safe
}

// GenerateGrid produces the static layout: indestructible border, the
// classic even-even checkered lattice, forced-empty spawn zones, and
// ~70% destructible coverage of whatever remains.
func GenerateGrid(width, height int, rng *rand.Rand) Grid {
	safe := make(map[Position]struct{})
	for _, spawn := range SpawnPositions(width, height) {
		for pos := range safeZone(spawn) {
			safe[pos] = struct{}{}
		}
	}

	grid := make(Grid, height)
	for y := 0; y < height; y++ {
		row := make([]Cell, width)
		for x := 0; x < width; x++ {
			switch {
			case x == 0 || x == width-1 || y == 0 || y == height-1:
				row[x] = CellIndestructible
			case x%2 == 0 && y%2 == 0:
				row[x] = CellIndestructible
			default:
				if _, ok := safe[Position{X: x, Y: y}]; ok {
					row[x] = CellEmpty
				} else if rng.Float64() < 0.7 {
					row[x] = CellDestructible
				} else {
					row[x] = CellEmpty
				}
			}
		}
		grid[y] = row
	}

	return grid
}

// Width returns the grid width in tiles.
func (g Grid) Width() int {
	if len(g) == 0 {
		return 0
	}
	return len(g[0])
}

// Height returns the grid height in tiles.
func (g Grid) Height() int {
	return len(g)
}

// InBounds reports whether the position lies on the grid.
func (g Grid) InBounds(p Position) bool {
	return p.Y >= 0 && p.Y < len(g) && p.X >= 0 && p.X < g.Width()
}

// At returns the cell at p, or CellIndestructible for out-of-bounds
// positions so callers never walk off the grid.
func (g Grid) At(p Position) Cell {
	if !g.InBounds(p) {
		return CellIndestructible
	}
	return g[p.Y][p.X]
}

// IsWalkable reports whether a player can occupy the cell.
func (g Grid) IsWalkable(p Position) bool {
	return g.InBounds(p) && g[p.Y][p.X] == CellEmpty
}

// DestroyBlock converts a destructible cell to empty. Returns false if
// the cell was not destructible.
func (g Grid) DestroyBlock(p Position) bool {
	if !g.InBounds(p) || g[p.Y][p.X] != CellDestructible {
		return false
	}
	g[p.Y][p.X] = CellEmpty
	return true
}
