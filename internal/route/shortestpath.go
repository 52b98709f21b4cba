package route

import (
	"fmt"
	"math"
)

// computeShortestPaths runs Floyd-Warshall over all nodes and edges.
func (g *Graph) computeShortestPaths() {
	n := len(g.nodes)
	dist := make(map[NodeID]map[NodeID]float64, n)
	next := make(map[NodeID]map[NodeID]NodeID, n)
	for _, a := range g.nodes {
		dist[a.ID] = make(map[NodeID]float64, n)
		next[a.ID] = make(map[NodeID]NodeID, n)
		for _, b := range g.nodes {
			dist[a.ID][b.ID] = math.Inf(1)
		}
		dist[a.ID][a.ID] = 0
	}
	for _, e := range g.edges {
		if e.Length < dist[e.U][e.V] {
			dist[e.U][e.V] = e.Length
			next[e.U][e.V] = e.V
		}
	}
	for _, k := range g.nodes {
		for _, i := range g.nodes {
			dik := dist[i.ID][k.ID]
			if math.IsInf(dik, 1) {
				continue
			}
			for _, j := range g.nodes {
				if d := dik + dist[k.ID][j.ID]; d < dist[i.ID][j.ID] {
					dist[i.ID][j.ID] = d
					next[i.ID][j.ID] = next[i.ID][k.ID]
				}
			}
		}
	}
	g.dist = dist
	g.nextNode = next
	g.pathCache = make(map[PathID]PathInfo)
}

func (g *Graph) reconstructPath(u, v NodeID) []NodeID {
	route := []NodeID{u}
	for u != v {
		n, ok := g.nextNode[u][v]
		if !ok || n == "" {
			return nil
		}
		u = n
		route = append(route, u)
	}
	return route
}

// GetShortestPath returns the shortest path between start and end, using a
// cache.
func (g *Graph) GetShortestPath(start, end NodeID) (PathInfo, error) {
	if _, err := g.Node(start); err != nil {
		return PathInfo{}, err
	}
	if _, err := g.Node(end); err != nil {
		return PathInfo{}, err
	}
	key := pathKey(start, end)
	if start == end {
		return PathInfo{ID: key, Route: []NodeID{start}}, nil
	}
	if p, ok := g.pathCache[key]; ok {
		return p, nil
	}
	if g.dist == nil {
		g.computeShortestPaths()
	}
	d := g.dist[start][end]
	if math.IsInf(d, 1) {
		return PathInfo{}, fmt.Errorf("%w from %q to %q", ErrNoPath, start, end)
	}
	p := PathInfo{ID: key, Route: g.reconstructPath(start, end), Length: d}
	g.pathCache[key] = p
	return p, nil
}
