package ai

import (
	"container/heap"

	"bomber-royal/internal/game"
)

// pathNode is one cell on the open list of an A* search.
type pathNode struct {
	pos    game.Position
	g, f   int
	parent *pathNode
	index  int
}

// nodeQueue implements heap.Interface ordered by f-score.
type nodeQueue []*pathNode

func (q nodeQueue) Len() int            { return len(q) }
func (q nodeQueue) Less(i, j int) bool  { return q[i].f < q[j].f }
func (q nodeQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i]; q[i].index = i; q[j].index = j }
func (q *nodeQueue) Push(x interface{}) { n := x.(*pathNode); n.index = len(*q); *q = append(*q, n) }
func (q *nodeQueue) Pop() interface{} {
	old := *q
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return node
}

// obstacleFunc reports whether a cell may not be entered.
type obstacleFunc func(game.Position) bool

// FindPath runs A* with Manhattan heuristic from start to goal and
// returns the full path including both endpoints, or nil when the goal
// is unreachable. The start cell is always treated as walkable so a
// unit standing in danger can still path out of it.
func FindPath(start, goal game.Position, grid game.Grid, blocked obstacleFunc) []game.Position {
	if start == goal {
		return []game.Position{start}
	}
	if !grid.InBounds(goal) || blocked(goal) {
		return nil
	}

	open := &nodeQueue{}
	heap.Init(open)
	startNode := &pathNode{pos: start, g: 0, f: start.ManhattanTo(goal)}
	heap.Push(open, startNode)

	gScore := map[game.Position]int{start: 0}
	closed := map[game.Position]bool{}

	for open.Len() > 0 {
		current := heap.Pop(open).(*pathNode)
		if current.pos == goal {
			return reconstruct(current)
		}
		if closed[current.pos] {
			continue
		}
		closed[current.pos] = true

		for _, next := range current.pos.Neighbors() {
			if !grid.InBounds(next) || closed[next] {
				continue
			}
			if blocked(next) {
				continue
			}

			g := current.g + 1
			if best, seen := gScore[next]; seen && g >= best {
				continue
			}
			gScore[next] = g
			heap.Push(open, &pathNode{
				pos:    next,
				g:      g,
				f:      g + next.ManhattanTo(goal),
				parent: current,
			})
		}
	}
	return nil
}

func reconstruct(n *pathNode) []game.Position {
	var rev []game.Position
	for ; n != nil; n = n.parent {
		rev = append(rev, n.pos)
	}
	path := make([]game.Position, len(rev))
	for i, p := range rev {
		path[len(rev)-1-i] = p
	}
	return path
}

// DangerTiles is the union of every cell that any live bomb would
// cover when it explodes, projected with the same ray rules the blast
// itself uses. Standing on any of these is lethal on a fuse timer.
func DangerTiles(bombs map[string]*game.Bomb, grid game.Grid) map[game.Position]bool {
	danger := make(map[game.Position]bool)
	for _, b := range bombs {
		for _, cell := range game.ExplosionCells(b, grid) {
			danger[cell] = true
		}
	}
	return danger
}

// defaultObstacles blocks non-empty terrain and cells occupied by
// bombs. Used for plain movement planning.
func defaultObstacles(grid game.Grid, bombs map[string]*game.Bomb) obstacleFunc {
	bombCells := make(map[game.Position]bool, len(bombs))
	for _, b := range bombs {
		bombCells[b.Position] = true
	}
	return func(p game.Position) bool {
		if !grid.InBounds(p) || grid.At(p) != game.CellEmpty {
			return true
		}
		return bombCells[p]
	}
}

// escapeObstacles additionally forbids danger tiles, except for the
// cell the unit currently occupies.
func escapeObstacles(grid game.Grid, bombs map[string]*game.Bomb, danger map[game.Position]bool, self game.Position) obstacleFunc {
	base := defaultObstacles(grid, bombs)
	return func(p game.Position) bool {
		if p == self {
			return false
		}
		return base(p) || danger[p]
	}
}

// NearestSafeTile breadth-first searches for the closest reachable
// walkable cell outside every danger zone. Returns false when the
// whole reachable area is covered.
func NearestSafeTile(from game.Position, grid game.Grid, bombs map[string]*game.Bomb, danger map[game.Position]bool) (game.Position, bool) {
	blocked := defaultObstacles(grid, bombs)

	visited := map[game.Position]bool{from: true}
	queue := []game.Position{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if cur != from && !danger[cur] {
			return cur, true
		}
		for _, next := range cur.Neighbors() {
			if visited[next] || !grid.InBounds(next) || blocked(next) {
				continue
			}
			visited[next] = true
			queue = append(queue, next)
		}
	}
	return game.Position{}, false
}

// EscapeRouteCount counts the directions a player could start fleeing
// in after dropping a bomb on pos: walkable neighbors not already
// covered by another bomb's blast. The new bomb's own cross is crossed
// transiently during the escape, so it does not disqualify a
// direction; CanSafelyPlaceBomb does the full simulation.
func EscapeRouteCount(pos game.Position, grid game.Grid, bombs map[string]*game.Bomb) int {
	danger := DangerTiles(bombs, grid)
	blocked := defaultObstacles(grid, bombs)
	count := 0
	for _, next := range pos.Neighbors() {
		if !blocked(next) && !danger[next] {
			count++
		}
	}
	return count
}

// CanSafelyPlaceBomb fully simulates dropping a bomb at the player's
// cell: it projects the combined danger zone with the new bomb
// included and checks that a reachable safe tile still exists with a
// viable path to it. The cautious check used before any bomb commits.
func CanSafelyPlaceBomb(p *game.Player, grid game.Grid, bombs map[string]*game.Bomb) bool {
	hypo := &game.Bomb{Position: p.Position, BlastRadius: p.BlastRadius}
	danger := DangerTiles(bombs, grid)
	for _, cell := range game.ExplosionCells(hypo, grid) {
		danger[cell] = true
	}

	safe, ok := NearestSafeTile(p.Position, grid, bombs, danger)
	if !ok {
		return false
	}
	// The escape runs along the new bomb's own lane before turning off
	// it, so only the other bombs' blasts block the route; the
	// destination picked above is already outside everything.
	other := DangerTiles(bombs, grid)
	path := FindPath(p.Position, safe, grid, escapeObstacles(grid, bombs, other, p.Position))
	return len(path) > 1
}

// AdjacentDestructible returns the first destructible block next to
// the position, if any.
func AdjacentDestructible(pos game.Position, grid game.Grid) (game.Position, bool) {
	for _, next := range pos.Neighbors() {
		if grid.InBounds(next) && grid.At(next) == game.CellDestructible {
			return next, true
		}
	}
	return game.Position{}, false
}

// NearestDestructible scans the grid for the destructible block
// closest to the position by Manhattan distance.
func NearestDestructible(pos game.Position, grid game.Grid) (game.Position, bool) {
	best := game.Position{}
	bestDist := -1
	for y := 0; y < grid.Height(); y++ {
		for x := 0; x < grid.Width(); x++ {
			p := game.Position{X: x, Y: y}
			if grid.At(p) != game.CellDestructible {
				continue
			}
			d := pos.ManhattanTo(p)
			if bestDist < 0 || d < bestDist {
				best, bestDist = p, d
			}
		}
	}
	return best, bestDist >= 0
}

// ApproachTile picks a walkable, non-danger cell adjacent to the
// target block, closest to the seeker.
func ApproachTile(seeker game.Position, block game.Position, grid game.Grid, bombs map[string]*game.Bomb, danger map[game.Position]bool) (game.Position, bool) {
	blocked := defaultObstacles(grid, bombs)
	best := game.Position{}
	bestDist := -1
	for _, next := range block.Neighbors() {
		if blocked(next) || danger[next] {
			continue
		}
		d := seeker.ManhattanTo(next)
		if bestDist < 0 || d < bestDist {
			best, bestDist = next, d
		}
	}
	return best, bestDist >= 0
}

// StepToward paths to the goal avoiding danger and returns the
// direction of the first step, if a route exists.
func StepToward(from, goal game.Position, grid game.Grid, bombs map[string]*game.Bomb, danger map[game.Position]bool) (game.Direction, bool) {
	path := FindPath(from, goal, grid, escapeObstacles(grid, bombs, danger, from))
	if len(path) < 2 {
		return 0, false
	}
	return from.DirectionToward(path[1])
}
