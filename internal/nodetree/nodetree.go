package nodetree

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/flachnetz/alwaysprofile/internal/frame"
	"github.com/flachnetz/alwaysprofile/internal/sample"
)

type (
	Node struct {
		ID       uint64        `json:"id"`
		Method   *frame.Method `json:"method"`
		Duration time.Duration `json:"duration_ns"`
		Color    Color         `json:"color"`
		Children []*Node       `json:"children,omitempty"`
	}
)

// IDs are unique within the process, they are not stable across builds.
var lastNodeID atomic.Uint64

func newNode(m *frame.Method, d time.Duration, children []*Node) *Node {
	return &Node{
		ID:       lastNodeID.Add(1),
		Method:   m,
		Duration: d,
		Color:    ColorFor(m.String()),
		Children: children,
	}
}

// Build creates the flame tree of the stacks. All stacks are merged first,
// the returned root node uses frame.Root as its method.
func Build(stacks []sample.Stack) *Node {
	children := buildLevel(sample.Merge(stacks), 0)
	var total time.Duration
	for _, c := range children {
		total += c.Duration
	}
	return newNode(frame.Root, total, children)
}

// buildLevel expects stacks sharing their first level frames to be contiguous.
func buildLevel(stacks []sample.Stack, level int) []*Node {
	var nodes []*Node
	start := 0
	for i := range stacks {
		if i+1 < len(stacks) && methodAt(stacks[i], level) == methodAt(stacks[i+1], level) {
			continue
		}

		group := stacks[start : i+1]
		start = i + 1

		m := methodAt(group[0], level)
		if m == nil {
			// stacks ending above this level don't produce a node
			continue
		}

		var d time.Duration
		deeper := make([]sample.Stack, 0, len(group))
		for _, s := range group {
			d += s.Duration
			if level+1 < len(s.Methods) {
				deeper = append(deeper, s)
			}
		}

		nodes = append(nodes, newNode(m, d, buildLevel(deeper, level+1)))
	}

	// move the longest nodes to the front
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Duration > nodes[j].Duration
	})
	return nodes
}

func methodAt(s sample.Stack, level int) *frame.Method {
	if level < len(s.Methods) {
		return s.Methods[level]
	}
	return nil
}

// SelfTime returns the time spent in the node that isn't spent in any of its children.
func (n *Node) SelfTime() time.Duration {
	d := n.Duration
	for _, c := range n.Children {
		d -= c.Duration
	}
	return d
}

// PathTo returns the nodes from n down to the node with the given id, or nil
// if no such node is part of the tree.
func (n *Node) PathTo(id uint64) []*Node {
	if n.ID == id {
		return []*Node{n}
	}
	for _, c := range n.Children {
		if path := c.PathTo(id); path != nil {
			return append([]*Node{n}, path...)
		}
	}
	return nil
}

// ByID returns the node with the given id, or nil.
func (n *Node) ByID(id uint64) *Node {
	path := n.PathTo(id)
	if path == nil {
		return nil
	}
	return path[len(path)-1]
}

// Walk calls fn for n and all of its descendants in depth first order.
func (n *Node) Walk(fn func(n *Node, depth int)) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(n *Node, depth int), depth int) {
	fn(n, depth)
	for _, c := range n.Children {
		c.walk(fn, depth+1)
	}
}

// Len returns the number of nodes in the tree.
func (n *Node) Len() int {
	count := 0
	n.Walk(func(*Node, int) {
		count++
	})
	return count
}

// Parents maps the id of every node below n to the id of its parent.
func (n *Node) Parents() map[uint64]uint64 {
	parents := make(map[uint64]uint64)
	n.Walk(func(p *Node, _ int) {
		for _, c := range p.Children {
			parents[c.ID] = p.ID
		}
	})
	return parents
}
