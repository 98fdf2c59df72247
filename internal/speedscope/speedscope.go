package speedscope

import (
	"sort"

	"github.com/flachnetz/alwaysprofile/internal/frame"
	"github.com/flachnetz/alwaysprofile/internal/nodetree"
	"github.com/flachnetz/alwaysprofile/internal/packageutil"
)

const (
	Schema = "https://www.speedscope.app/file-format-schema.json"

	ValueUnitNanoseconds ValueUnit = "nanoseconds"

	ProfileTypeSampled ProfileType = "sampled"
)

type (
	Frame struct {
		Image         string `json:"image,omitempty"`
		IsApplication bool   `json:"is_application"`
		Name          string `json:"name"`
	}

	SampledProfile struct {
		EndValue   uint64      `json:"endValue"`
		Name       string      `json:"name"`
		Samples    [][]int     `json:"samples"`
		StartValue uint64      `json:"startValue"`
		Type       ProfileType `json:"type"`
		Unit       ValueUnit   `json:"unit"`
		Weights    []uint64    `json:"weights"`
	}

	SharedData struct {
		Frames []Frame `json:"frames"`
	}

	ProfileType string
	ValueUnit   string

	Output struct {
		Schema             string           `json:"$schema"`
		ActiveProfileIndex int              `json:"activeProfileIndex"`
		DurationNS         uint64           `json:"durationNS"`
		Exporter           string           `json:"exporter,omitempty"`
		Name               string           `json:"name"`
		Profiles           []SampledProfile `json:"profiles"`
		Shared             SharedData       `json:"shared"`
	}
)

// FromTree exports the flame tree as a sampled profile. Every node with self
// time becomes one sample weighted by that time, the synthetic root is not
// part of any sample. Samples are ordered by the names of their frames.
func FromTree(name string, root *nodetree.Node, applicationPrefixes ...string) Output {
	var (
		frames  []Frame
		indexes = make(map[*frame.Method]int)
		p       = SampledProfile{
			Name:    name,
			Type:    ProfileTypeSampled,
			Unit:    ValueUnitNanoseconds,
			Samples: [][]int{},
			Weights: []uint64{},
		}
	)

	var walk func(n *nodetree.Node, stack []int)
	walk = func(n *nodetree.Node, stack []int) {
		i, ok := indexes[n.Method]
		if !ok {
			i = len(frames)
			indexes[n.Method] = i
			frames = append(frames, Frame{
				Image:         n.Method.Module,
				IsApplication: packageutil.IsApplicationSymbol(n.Method.FQN, applicationPrefixes...),
				Name:          n.Method.FQN,
			})
		}
		stack = append(stack, i)
		if self := n.SelfTime(); self > 0 {
			p.Samples = append(p.Samples, append([]int(nil), stack...))
			p.Weights = append(p.Weights, uint64(self))
		}
		for _, c := range n.Children {
			walk(c, stack)
		}
	}
	for _, c := range root.Children {
		walk(c, nil)
	}
	p.EndValue = uint64(root.Duration)
	p.SortSamplesAlphabetically(frames)

	if frames == nil {
		frames = []Frame{}
	}
	return Output{
		Schema:     Schema,
		DurationNS: uint64(root.Duration),
		Exporter:   "alwaysprofile",
		Name:       name,
		Profiles:   []SampledProfile{p},
		Shared:     SharedData{Frames: frames},
	}
}

// SortSamplesAlphabetically orders the samples by the names of their frames,
// weights stay attached to their samples.
func (p *SampledProfile) SortSamplesAlphabetically(frames []Frame) {
	sort.Sort(byFrameNames{p: p, frames: frames})
}

type byFrameNames struct {
	p      *SampledProfile
	frames []Frame
}

func (s byFrameNames) Len() int {
	return len(s.p.Samples)
}

func (s byFrameNames) Swap(i, j int) {
	s.p.Samples[i], s.p.Samples[j] = s.p.Samples[j], s.p.Samples[i]
	s.p.Weights[i], s.p.Weights[j] = s.p.Weights[j], s.p.Weights[i]
}

func (s byFrameNames) Less(i, j int) bool {
	a, b := s.p.Samples[i], s.p.Samples[j]
	for c := 0; ; c++ {
		if len(a) == c {
			return len(b) > c
		} else if len(b) == c {
			return false
		}
		if na, nb := s.frames[a[c]].Name, s.frames[b[c]].Name; na != nb {
			return na < nb
		}
	}
}
