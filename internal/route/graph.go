// Package route provides the waypoint graph autopilot drivers plan on, its
// shortest-path search and a pure-pursuit follower.
//
// Nodes live in the ground (XZ) plane; heights come from the terrain at
// drive time.
package route

import (
	"errors"
	"fmt"
	"math"
)

// NodeID, EdgeID, PathID are string aliases used as identifiers.
type (
	NodeID = string
	EdgeID = string
	PathID = string
)

// NodeType classifies a node in the network.
type NodeType string

const (
	NodeTypeWaypoint NodeType = "waypoint"
	NodeTypeStop     NodeType = "stop"
)

var (
	ErrUnknownNode = errors.New("unknown node")
	ErrNoPath      = errors.New("no path")
)

// Coordinate is a ground-plane position in metres.
type Coordinate struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

// Dist returns the straight-line distance to o.
func (c Coordinate) Dist(o Coordinate) float64 {
	return math.Hypot(o.X-c.X, o.Z-c.Z)
}

// Node is a point in the network graph.
type Node struct {
	ID   NodeID     `json:"node_id"`
	Loc  Coordinate `json:"loc"`
	Type NodeType   `json:"type,omitempty"`
}

// Edge is a directed straight connection between two nodes. Length defaults
// to the distance between its endpoints. SpeedLimit is optional: if nil the
// follower's own envelope applies.
type Edge struct {
	ID         EdgeID   `json:"edge_id"`
	U          NodeID   `json:"u"`
	V          NodeID   `json:"v"`
	Length     float64  `json:"length,omitempty"`      // metres
	SpeedLimit *float64 `json:"speed_limit,omitempty"` // m/s; nil = no restriction
}

// GraphData is the serialisable input representation of a network graph.
type GraphData struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// PathInfo holds the result of a shortest-path computation.
type PathInfo struct {
	ID     PathID
	Route  []NodeID // ordered node IDs from start to end
	Length float64  // metres
}

// Graph is a directed weighted graph with cached shortest-path computation.
type Graph struct {
	nodes       []Node
	edges       []Edge
	nodeMap     map[NodeID]Node
	edgeMap     map[EdgeID]Edge
	edgeByNodes map[NodeID]map[NodeID]Edge // u → v → edge
	// Floyd-Warshall tables; nil until first needed.
	dist     map[NodeID]map[NodeID]float64
	nextNode map[NodeID]map[NodeID]NodeID
	// cleared whenever the topology changes
	pathCache map[PathID]PathInfo
}

// NewGraph builds a Graph from GraphData, returning an error if any node or
// edge reference is invalid.
func NewGraph(data GraphData) (*Graph, error) {
	g := &Graph{
		nodeMap:     make(map[NodeID]Node),
		edgeMap:     make(map[EdgeID]Edge),
		edgeByNodes: make(map[NodeID]map[NodeID]Edge),
		pathCache:   make(map[PathID]PathInfo),
	}
	for _, n := range data.Nodes {
		if err := g.AddNode(n); err != nil {
			return nil, err
		}
	}
	for _, e := range data.Edges {
		if err := g.AddEdge(e); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Empty reports whether the graph has no nodes.
func (g *Graph) Empty() bool { return len(g.nodes) == 0 }

// AddNode adds a node. Returns an error if the ID already exists.
func (g *Graph) AddNode(n Node) error {
	if _, exists := g.nodeMap[n.ID]; exists {
		return fmt.Errorf("node %q already exists", n.ID)
	}
	if n.Type == "" {
		n.Type = NodeTypeWaypoint
	}
	g.nodes = append(g.nodes, n)
	g.nodeMap[n.ID] = n
	g.invalidate()
	return nil
}

// AddEdge adds a directed edge, deriving its length from the endpoints when
// unset. Returns an error if the ID exists or an endpoint is missing.
func (g *Graph) AddEdge(e Edge) error {
	if _, exists := g.edgeMap[e.ID]; exists {
		return fmt.Errorf("edge %q already exists", e.ID)
	}
	u, ok := g.nodeMap[e.U]
	if !ok {
		return fmt.Errorf("edge %q: source %w %q", e.ID, ErrUnknownNode, e.U)
	}
	v, ok := g.nodeMap[e.V]
	if !ok {
		return fmt.Errorf("edge %q: target %w %q", e.ID, ErrUnknownNode, e.V)
	}
	if e.Length <= 0 {
		e.Length = u.Loc.Dist(v.Loc)
	}
	if e.SpeedLimit != nil && *e.SpeedLimit <= 0 {
		return fmt.Errorf("edge %q: speed limit must be positive", e.ID)
	}
	g.edges = append(g.edges, e)
	g.edgeMap[e.ID] = e
	if g.edgeByNodes[e.U] == nil {
		g.edgeByNodes[e.U] = make(map[NodeID]Edge)
	}
	g.edgeByNodes[e.U][e.V] = e
	g.invalidate()
	return nil
}

func (g *Graph) invalidate() {
	g.dist = nil
	g.pathCache = make(map[PathID]PathInfo)
}

func pathKey(start, end NodeID) PathID { return start + "->" + end }

// Node looks up a node by ID.
func (g *Graph) Node(id NodeID) (Node, error) {
	n, ok := g.nodeMap[id]
	if !ok {
		return Node{}, fmt.Errorf("%w %q", ErrUnknownNode, id)
	}
	return n, nil
}

// GetEdgeByID looks up an edge by its ID.
func (g *Graph) GetEdgeByID(id EdgeID) (Edge, error) {
	e, ok := g.edgeMap[id]
	if !ok {
		return Edge{}, fmt.Errorf("edge %q not found", id)
	}
	return e, nil
}

// GetEdge returns the directed edge from u to v.
func (g *Graph) GetEdge(u, v NodeID) (Edge, error) {
	if m, ok := g.edgeByNodes[u]; ok {
		if e, ok := m[v]; ok {
			return e, nil
		}
	}
	return Edge{}, fmt.Errorf("no edge from %q to %q", u, v)
}
