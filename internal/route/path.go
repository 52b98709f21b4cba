package route

import (
	"fmt"
	"math"
	"sort"
)

// Waypoint is a vertex of a planned polyline.
type Waypoint struct {
	Node  NodeID     `json:"node"`
	Loc   Coordinate `json:"loc"`
	Dist  float64    `json:"dist"`  // metres from the start of the path
	Limit float64    `json:"limit"` // m/s on the segment leaving this point, +Inf if none
}

// Path is a polyline through the graph, ready to follow.
type Path struct {
	Points []Waypoint
}

// Plan chains the shortest paths between consecutive stops into one
// polyline. Distances along the path are geometric.
func (g *Graph) Plan(stops []NodeID) (Path, error) {
	if len(stops) < 2 {
		return Path{}, fmt.Errorf("route needs at least 2 stops, got %d", len(stops))
	}
	var nodes []NodeID
	for i := 1; i < len(stops); i++ {
		p, err := g.GetShortestPath(stops[i-1], stops[i])
		if err != nil {
			return Path{}, err
		}
		if len(nodes) > 0 {
			nodes = append(nodes, p.Route[1:]...)
		} else {
			nodes = append(nodes, p.Route...)
		}
	}

	path := Path{Points: make([]Waypoint, 0, len(nodes))}
	for i, id := range nodes {
		n := g.nodeMap[id]
		wp := Waypoint{Node: id, Loc: n.Loc, Limit: math.Inf(1)}
		if i > 0 {
			prev := path.Points[i-1]
			wp.Dist = prev.Dist + prev.Loc.Dist(n.Loc)
		}
		if i+1 < len(nodes) {
			e, err := g.GetEdge(id, nodes[i+1])
			if err != nil {
				return Path{}, err
			}
			if e.SpeedLimit != nil {
				wp.Limit = *e.SpeedLimit
			}
		}
		path.Points = append(path.Points, wp)
	}
	if path.Length() <= 0 {
		return Path{}, fmt.Errorf("route %v has zero length", stops)
	}
	return path, nil
}

// Length is the total polyline length in metres.
func (p Path) Length() float64 {
	if len(p.Points) == 0 {
		return 0
	}
	return p.Points[len(p.Points)-1].Dist
}

// segmentAt returns the index of the segment containing distance s.
func (p Path) segmentAt(s float64) int {
	n := len(p.Points)
	if n < 2 {
		return 0
	}
	i := sort.Search(n, func(i int) bool { return p.Points[i].Dist > s }) - 1
	return max(0, min(i, n-2))
}

// PointAt returns the position s metres along the path, clamped to its ends.
func (p Path) PointAt(s float64) Coordinate {
	if len(p.Points) == 0 {
		return Coordinate{}
	}
	if len(p.Points) == 1 || s <= 0 {
		return p.Points[0].Loc
	}
	if s >= p.Length() {
		return p.Points[len(p.Points)-1].Loc
	}
	i := p.segmentAt(s)
	a, b := p.Points[i], p.Points[i+1]
	seg := b.Dist - a.Dist
	if seg <= 0 {
		return b.Loc
	}
	t := (s - a.Dist) / seg
	return Coordinate{X: a.Loc.X + (b.Loc.X-a.Loc.X)*t, Z: a.Loc.Z + (b.Loc.Z-a.Loc.Z)*t}
}

// LimitAt returns the speed limit in force s metres along the path.
func (p Path) LimitAt(s float64) float64 {
	if len(p.Points) < 2 {
		return math.Inf(1)
	}
	return p.Points[p.segmentAt(s)].Limit
}

// Project returns the distance along the path of the point nearest c,
// searching only segments that overlap [from-window, from+window].
func (p Path) Project(c Coordinate, from, window float64) float64 {
	best, bestD := from, math.Inf(1)
	for i := 0; i+1 < len(p.Points); i++ {
		a, b := p.Points[i], p.Points[i+1]
		if b.Dist < from-window || a.Dist > from+window {
			continue
		}
		dx, dz := b.Loc.X-a.Loc.X, b.Loc.Z-a.Loc.Z
		l2 := dx*dx + dz*dz
		t := 0.0
		if l2 > 0 {
			t = ((c.X-a.Loc.X)*dx + (c.Z-a.Loc.Z)*dz) / l2
			t = math.Max(0, math.Min(1, t))
		}
		q := Coordinate{X: a.Loc.X + dx*t, Z: a.Loc.Z + dz*t}
		if d := q.Dist(c); d < bestD {
			bestD = d
			best = a.Dist + (b.Dist-a.Dist)*t
		}
	}
	return best
}

// cornerRadius estimates the radius of the bend at interior vertex i as the
// fillet touching both adjoining segments at their midpoints.
func (p Path) cornerRadius(i int) float64 {
	if i <= 0 || i >= len(p.Points)-1 {
		return math.Inf(1)
	}
	a, b, c := p.Points[i-1].Loc, p.Points[i].Loc, p.Points[i+1].Loc
	in := math.Atan2(b.X-a.X, b.Z-a.Z)
	out := math.Atan2(c.X-b.X, c.Z-b.Z)
	turn := math.Abs(math.Remainder(out-in, 2*math.Pi))
	if turn < 1e-3 {
		return math.Inf(1)
	}
	half := math.Min(a.Dist(b), b.Dist(c)) / 2
	return half / math.Tan(turn/2)
}
