package system

import (
	"math"
	"sort"

	"github.com/asteroids-sim/engine/internal/world"
)

// sweepGrid is a cell-based broad phase over the boxes bodies sweep during
// the rest of a step. Two bodies can only meet within the horizon if their
// swept boxes share a cell. Built fresh for every query; never updated.

const cellSize = 64.0 // km

// maxCellsPerBody caps the cells one body may occupy; larger sweeps go to the
// oversize list and are paired with every other body.
const maxCellsPerBody = 64

type cellKey struct {
	cx int32
	cy int32
}

func toCellCoord(v float64) int32 {
	return int32(math.Floor(v / cellSize))
}

type sweepGrid struct {
	cells    map[cellKey][]int // cell → body indexes
	oversize []int
	n        int
}

func newSweepGrid(bodies []*world.Body, horizon float64) *sweepGrid {
	g := &sweepGrid{
		cells: make(map[cellKey][]int, len(bodies)),
		n:     len(bodies),
	}
	for i, b := range bodies {
		p, r := b.Position(), b.Radius()
		q := p.Add(b.Velocity().Scale(horizon))
		minX, maxX := math.Min(p.X, q.X)-r, math.Max(p.X, q.X)+r
		minY, maxY := math.Min(p.Y, q.Y)-r, math.Max(p.Y, q.Y)+r

		spanX := math.Floor(maxX/cellSize) - math.Floor(minX/cellSize) + 1
		spanY := math.Floor(maxY/cellSize) - math.Floor(minY/cellSize) + 1
		if !(spanX*spanY <= maxCellsPerBody) || math.Abs(minX)+math.Abs(maxX)+math.Abs(minY)+math.Abs(maxY) > 1e9 {
			g.oversize = append(g.oversize, i)
			continue
		}
		for cx := toCellCoord(minX); cx <= toCellCoord(maxX); cx++ {
			for cy := toCellCoord(minY); cy <= toCellCoord(maxY); cy++ {
				k := cellKey{cx: cx, cy: cy}
				g.cells[k] = append(g.cells[k], i)
			}
		}
	}
	return g
}

// pairs returns the candidate pairs (i < j), ordered by i then j. The caller
// does the exact time-of-impact test.
func (g *sweepGrid) pairs() [][2]int {
	seen := make(map[[2]int]struct{}, g.n)
	add := func(i, j int) {
		if i == j {
			return
		}
		if i > j {
			i, j = j, i
		}
		seen[[2]int{i, j}] = struct{}{}
	}
	for _, members := range g.cells {
		for a := 0; a < len(members); a++ {
			for b := a + 1; b < len(members); b++ {
				add(members[a], members[b])
			}
		}
	}
	for _, i := range g.oversize {
		for j := 0; j < g.n; j++ {
			add(i, j)
		}
	}

	out := make([][2]int, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a][0] != out[b][0] {
			return out[a][0] < out[b][0]
		}
		return out[a][1] < out[b][1]
	})
	return out
}
