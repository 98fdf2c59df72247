package flamegraph

import (
	"encoding/binary"
	"time"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"

	"github.com/flachnetz/alwaysprofile/internal/frame"
	"github.com/flachnetz/alwaysprofile/internal/metrics"
	"github.com/flachnetz/alwaysprofile/internal/nodetree"
	"github.com/flachnetz/alwaysprofile/internal/sample"
	"github.com/flachnetz/alwaysprofile/internal/transform"
)

type (
	// Result holds everything derived from one set of stacks and one
	// transform configuration. It must not be modified, it is shared between
	// callers of the same View.
	Result struct {
		Calls []metrics.Call
		Tree  *nodetree.Node
		Total time.Duration
	}

	// View memoizes processing and layout so repeated requests for the same
	// input do not rebuild the tree. It is safe for concurrent use.
	View struct {
		registry *frame.Registry
		results  *lru.Cache[resultKey, *Result]
		layouts  *lru.Cache[layoutKey, Layout]
	}

	resultKey struct {
		stacks uint64
		config uint64
	}

	layoutKey struct {
		root     uint64
		selected uint64
		minSize  float64
	}
)

func NewView(r *frame.Registry, size int) (*View, error) {
	results, err := lru.New[resultKey, *Result](size)
	if err != nil {
		return nil, err
	}
	layouts, err := lru.New[layoutKey, Layout](size)
	if err != nil {
		return nil, err
	}
	return &View{
		registry: r,
		results:  results,
		layouts:  layouts,
	}, nil
}

// Registry returns the registry all methods of this view are interned in.
func (v *View) Registry() *frame.Registry {
	return v.registry
}

// Process merges the stacks, applies the transforms of cfg and builds the
// call table and the flame tree of the result.
func (v *View) Process(stacks []sample.Stack, cfg transform.Config) (*Result, error) {
	merged := sample.Merge(stacks)
	key := resultKey{stacks: Fingerprint(merged), config: cfg.Fingerprint()}
	if r, ok := v.results.Get(key); ok {
		return r, nil
	}

	tr, err := cfg.Build(v.registry)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	transformed := sample.Merge(tr(merged))
	r := &Result{
		Calls: metrics.Aggregate(transformed),
		Tree:  nodetree.Build(transformed),
		Total: sample.TotalDuration(transformed),
	}
	metrics.SortBySelfTime(r.Calls)

	log.Debug().
		Dur("elapsed", time.Since(start)).
		Int("stacks", len(merged)).
		Int("nodes", r.Tree.Len()).
		Str("transforms", cfg.String()).
		Msg("flame tree built")

	v.results.Add(key, r)
	return r, nil
}

// Layout computes the layout of a tree returned by Process. Layouts are
// cached per tree and view state, previous only decorates the cached result.
// The returned layout must not be modified.
func (v *View) Layout(tree *nodetree.Node, state ViewState, previous Layout) (Layout, error) {
	key := layoutKey{root: tree.ID, selected: state.Selected, minSize: state.MinSize}
	l, ok := v.layouts.Get(key)
	if !ok {
		var err error
		l, err = ComputeLayout(tree, state, nil)
		if err != nil {
			return nil, err
		}
		v.layouts.Add(key, l)
	}
	if len(previous) == 0 {
		return l, nil
	}
	return l.withPrevious(previous), nil
}

// Fingerprint identifies a list of merged stacks by their method ids and
// durations.
func Fingerprint(stacks []sample.Stack) uint64 {
	h := xxhash.New()
	var buf [8]byte
	write := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = h.Write(buf[:])
	}
	for _, s := range stacks {
		write(uint64(len(s.Methods)))
		for _, m := range s.Methods {
			write(m.ID)
		}
		write(uint64(s.Duration))
	}
	return h.Sum64()
}
