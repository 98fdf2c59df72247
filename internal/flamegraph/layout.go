package flamegraph

import (
	"fmt"
	"sort"

	"github.com/flachnetz/alwaysprofile/internal/errorutil"
	"github.com/flachnetz/alwaysprofile/internal/nodetree"
)

type (
	// Rect is a horizontal span, normalized to the width of the graph.
	Rect struct {
		Offset float64 `json:"offset"`
		Size   float64 `json:"size"`
	}

	Entry struct {
		Node *nodetree.Node `json:"-"`
		Rect
		Level    int   `json:"level"`
		Previous *Rect `json:"previous,omitempty"`
	}

	// Layout maps node ids to their placement.
	Layout map[uint64]Entry

	ViewState struct {
		// Selected is the id of the expanded node, 0 if nothing is expanded.
		Selected uint64 `json:"selected,omitempty"`
		// MinSize hides nodes narrower than this.
		MinSize float64 `json:"min_size,omitempty"`
	}
)

var ErrNodeNotInTree = fmt.Errorf("flamegraph: %w: selected node is not part of the tree", errorutil.ErrPrecondition)

// ComputeLayout places every node of the tree. Nodes on the path to the
// selected node take the full width of their parent, their siblings are
// collapsed to a size of 0. Geometry of nodes found in previous is copied
// into Entry.Previous.
func ComputeLayout(root *nodetree.Node, state ViewState, previous Layout) (Layout, error) {
	var path []*nodetree.Node
	if state.Selected != 0 {
		path = root.PathTo(state.Selected)
		if path == nil {
			return nil, fmt.Errorf("%w: node %d", ErrNodeNotInTree, state.Selected)
		}
	}

	layout := make(Layout, root.Len())
	queue := []Entry{{Node: root, Rect: Rect{Offset: 0, Size: 1}, Level: 0}}
	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]

		if prev, ok := previous[e.Node.ID]; ok {
			r := prev.Rect
			e.Previous = &r
		}
		layout[e.Node.ID] = e

		childLevel := e.Level + 1
		offset := e.Offset
		for _, c := range e.Node.Children {
			var size float64
			switch {
			case e.Size == 0:
			case childLevel < len(path):
				if c == path[childLevel] {
					size = e.Size
				}
			case e.Node.Duration == 0:
			default:
				size = float64(c.Duration) / float64(e.Node.Duration) * e.Size
			}
			if size < state.MinSize {
				size = 0
			}

			queue = append(queue, Entry{
				Node:  c,
				Rect:  Rect{Offset: offset, Size: size},
				Level: childLevel,
			})
			offset += size
		}
	}
	return layout, nil
}

// withPrevious returns a copy of the layout with the geometry of previous
// attached. The layout itself is not modified.
func (l Layout) withPrevious(previous Layout) Layout {
	out := make(Layout, len(l))
	for id, e := range l {
		e.Previous = nil
		if prev, ok := previous[id]; ok {
			r := prev.Rect
			e.Previous = &r
		}
		out[id] = e
	}
	return out
}

// HitTest returns the visible node at the horizontal position x on the given
// level, or nil.
func (l Layout) HitTest(x float64, level int) *nodetree.Node {
	for _, e := range l {
		if e.Level != level || e.Size == 0 {
			continue
		}
		if x >= e.Offset && x < e.Offset+e.Size {
			return e.Node
		}
	}
	return nil
}

// Animating returns the entries whose geometry changed compared to the
// previous layout, ordered by node id.
func (l Layout) Animating() []Entry {
	var entries []Entry
	for _, e := range l {
		if e.Previous != nil && *e.Previous != e.Rect {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Node.ID < entries[j].Node.ID
	})
	return entries
}

// Visible returns the entries with a size larger than 0, ordered by level
// and offset.
func (l Layout) Visible() []Entry {
	var entries []Entry
	for _, e := range l {
		if e.Size > 0 {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Level != entries[j].Level {
			return entries[i].Level < entries[j].Level
		}
		return entries[i].Offset < entries[j].Offset
	})
	return entries
}
