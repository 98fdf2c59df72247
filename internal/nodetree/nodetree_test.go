package nodetree

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/flachnetz/alwaysprofile/internal/frame"
	"github.com/flachnetz/alwaysprofile/internal/metrics"
	"github.com/flachnetz/alwaysprofile/internal/sample"
	"github.com/flachnetz/alwaysprofile/internal/testutil"
)

var ignoreGenerated = cmpopts.IgnoreFields(Node{}, "ID", "Color")

func node(m *frame.Method, d time.Duration, children ...*Node) *Node {
	return &Node{Method: m, Duration: d, Children: children}
}

func stacksOf(t *testing.T, r *frame.Registry, raw ...sample.RawStack) []sample.Stack {
	t.Helper()
	stacks, err := sample.FromRaw(r, raw)
	if err != nil {
		t.Fatalf("error converting raw stacks: %v", err)
	}
	return stacks
}

func TestBuild(t *testing.T) {
	r := frame.NewRegistry()
	m := r.Intern

	tests := []struct {
		name  string
		input []sample.RawStack
		want  *Node
	}{
		{
			name:  "no stacks",
			input: nil,
			want:  node(frame.Root, 0),
		},
		{
			name: "shared caller",
			input: []sample.RawStack{
				{Methods: []string{"a.b.c", "a.b.e"}, DurationInMillis: 50},
				{Methods: []string{"a.b.c", "a.b.d"}, DurationInMillis: 100},
			},
			want: node(frame.Root, 150*time.Millisecond,
				node(m("a.b.c"), 150*time.Millisecond,
					node(m("a.b.d"), 100*time.Millisecond),
					node(m("a.b.e"), 50*time.Millisecond),
				),
			),
		},
		{
			name: "single frame stacks add self time",
			input: []sample.RawStack{
				{Methods: []string{"main"}, DurationInMillis: 10},
				{Methods: []string{"main", "work"}, DurationInMillis: 30},
				{Methods: []string{"idle"}, DurationInMillis: 5},
			},
			want: node(frame.Root, 45*time.Millisecond,
				node(m("main"), 40*time.Millisecond,
					node(m("work"), 30*time.Millisecond),
				),
				node(m("idle"), 5*time.Millisecond),
			),
		},
		{
			name: "duplicate paths are merged",
			input: []sample.RawStack{
				{Methods: []string{"x", "y"}, DurationInMillis: 1},
				{Methods: []string{"x", "z"}, DurationInMillis: 3},
				{Methods: []string{"x", "y"}, DurationInMillis: 4},
			},
			want: node(frame.Root, 8*time.Millisecond,
				node(m("x"), 8*time.Millisecond,
					node(m("y"), 5*time.Millisecond),
					node(m("z"), 3*time.Millisecond),
				),
			),
		},
		{
			name: "same method on different paths",
			input: []sample.RawStack{
				{Methods: []string{"p", "q", "s"}, DurationInMillis: 2},
				{Methods: []string{"p", "r", "s"}, DurationInMillis: 6},
			},
			want: node(frame.Root, 8*time.Millisecond,
				node(m("p"), 8*time.Millisecond,
					node(m("r"), 6*time.Millisecond,
						node(m("s"), 6*time.Millisecond),
					),
					node(m("q"), 2*time.Millisecond,
						node(m("s"), 2*time.Millisecond),
					),
				),
			),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Build(stacksOf(t, r, tt.input...))
			if diff := testutil.Diff(got, tt.want, ignoreGenerated); diff != "" {
				t.Fatalf("Result mismatch: got - want +\n%s", diff)
			}
		})
	}
}

func TestBuildProperties(t *testing.T) {
	r := frame.NewRegistry()
	stacks := sample.Merge(stacksOf(t, r,
		sample.RawStack{Methods: []string{"main", "a", "b"}, DurationInMillis: 7},
		sample.RawStack{Methods: []string{"main", "a"}, DurationInMillis: 3},
		sample.RawStack{Methods: []string{"main", "c", "a", "b"}, DurationInMillis: 11},
		sample.RawStack{Methods: []string{"main"}, DurationInMillis: 1},
		sample.RawStack{Methods: []string{"gc", "mark"}, DurationInMillis: 2},
		sample.RawStack{Methods: []string{"main", "c"}, DurationInMillis: 4},
	))
	root := Build(stacks)

	if root.Duration != sample.TotalDuration(stacks) {
		t.Fatalf("root duration %v differs from total duration %v", root.Duration, sample.TotalDuration(stacks))
	}

	seen := make(map[uint64]bool)
	root.Walk(func(n *Node, _ int) {
		if seen[n.ID] {
			t.Fatalf("node id %d is used twice", n.ID)
		}
		seen[n.ID] = true

		var sum time.Duration
		for i, c := range n.Children {
			sum += c.Duration
			if i > 0 && n.Children[i-1].Duration < c.Duration {
				t.Fatalf("children of %v are not sorted by duration", n.Method)
			}
		}
		if n.Duration < sum {
			t.Fatalf("node %v has %v but its children have %v", n.Method, n.Duration, sum)
		}
	})

	// the total time of the outermost methods matches the tree
	calls := metrics.Aggregate(stacks)
	for _, top := range root.Children {
		for _, c := range calls {
			if c.Method == top.Method && c.TotalTime != top.Duration {
				t.Fatalf("total time of %v is %v, tree has %v", c.Method, c.TotalTime, top.Duration)
			}
		}
	}
}

func TestNodeIDsIncrease(t *testing.T) {
	r := frame.NewRegistry()
	stacks := stacksOf(t, r, sample.RawStack{Methods: []string{"a"}, DurationInMillis: 1})
	first := Build(stacks)
	second := Build(stacks)
	if second.ID <= first.ID || second.Children[0].ID <= first.ID {
		t.Fatalf("expected ids of a later build to be larger: %d, %d", first.ID, second.ID)
	}
}

func TestPathTo(t *testing.T) {
	r := frame.NewRegistry()
	root := Build(stacksOf(t, r,
		sample.RawStack{Methods: []string{"a", "b", "c"}, DurationInMillis: 2},
		sample.RawStack{Methods: []string{"a", "d"}, DurationInMillis: 1},
	))
	c := root.Children[0].Children[0].Children[0]

	path := root.PathTo(c.ID)
	if len(path) != 4 || path[0] != root || path[3] != c {
		t.Fatalf("unexpected path %v", path)
	}
	if root.ByID(c.ID) != c {
		t.Fatal("expected ByID to find the node")
	}
	if root.PathTo(0) != nil || root.ByID(0) != nil {
		t.Fatal("expected no path to a foreign node")
	}

	parents := root.Parents()
	if len(parents) != root.Len()-1 {
		t.Fatalf("expected a parent for every node but the root, got %d", len(parents))
	}
	if parents[c.ID] != root.Children[0].Children[0].ID {
		t.Fatal("unexpected parent of c")
	}
	if _, ok := parents[root.ID]; ok {
		t.Fatal("the root must not have a parent")
	}
}

func TestSelfTime(t *testing.T) {
	r := frame.NewRegistry()
	root := Build(stacksOf(t, r,
		sample.RawStack{Methods: []string{"a", "b"}, DurationInMillis: 2},
		sample.RawStack{Methods: []string{"a"}, DurationInMillis: 1},
	))
	if got := root.Children[0].SelfTime(); got != time.Millisecond {
		t.Fatalf("expected 1ms self time, got %v", got)
	}
}

func TestColorFor(t *testing.T) {
	a := ColorFor("main.handle")
	if a != ColorFor("main.handle") {
		t.Fatal("expected the same color for the same name")
	}
	if got := ColorFor(""); got != (Color{R: 200, G: 230, B: 55}) {
		t.Fatalf("unexpected color for the empty name: %v", got)
	}
	if a.R < 200 || a.G > 230 || a.B > 55 {
		t.Fatalf("color %v is outside of the warm palette", a)
	}
	if ColorFor("lib`main.handle(int)") != a {
		t.Fatal("expected module and argument decorations to be ignored")
	}
	if got := (Color{R: 255, G: 0, B: 16}).Hex(); got != "#ff0010" {
		t.Fatalf("unexpected hex notation %q", got)
	}
	if got := (Color{R: 1, G: 2, B: 3}).String(); got != "rgb(1,2,3)" {
		t.Fatalf("unexpected css notation %q", got)
	}
}
