package pprofutil

import (
	"fmt"
	"io"

	"github.com/google/pprof/profile"

	"github.com/flachnetz/alwaysprofile/internal/errorutil"
	"github.com/flachnetz/alwaysprofile/internal/sample"
)

var errNoSampleTypes = fmt.Errorf("pprofutil: %w: profile without sample types", errorutil.ErrDataIntegrity)

// Read parses a pprof profile, compressed or not, and converts it.
func Read(r io.Reader) ([]sample.RawStack, error) {
	p, err := profile.Parse(r)
	if err != nil {
		return nil, err
	}
	return ToRawStacks(p)
}

// ToRawStacks converts every sample of a CPU or wall clock profile into a
// stack from the outermost to the innermost frame. Inlined functions become
// frames of their own.
func ToRawStacks(p *profile.Profile) ([]sample.RawStack, error) {
	index, scale, err := valueIndex(p)
	if err != nil {
		return nil, err
	}

	stacks := make([]sample.RawStack, 0, len(p.Sample))
	for _, s := range p.Sample {
		v := s.Value[index]
		if v <= 0 {
			continue
		}
		methods := make([]string, 0, len(s.Location))
		// the leaf is the first location, and the first line of a location
		// is the innermost inlined function
		for i := len(s.Location) - 1; i >= 0; i-- {
			loc := s.Location[i]
			if len(loc.Line) == 0 {
				methods = append(methods, fmt.Sprintf("0x%x", loc.Address))
				continue
			}
			for j := len(loc.Line) - 1; j >= 0; j-- {
				if fn := loc.Line[j].Function; fn != nil {
					methods = append(methods, fn.Name)
				}
			}
		}
		if len(methods) == 0 {
			continue
		}
		stacks = append(stacks, sample.RawStack{
			Methods:          methods,
			DurationInMillis: float64(v) * scale,
		})
	}
	return stacks, nil
}

// valueIndex picks the value holding the sampled time and returns the factor
// converting it to milliseconds.
func valueIndex(p *profile.Profile) (int, float64, error) {
	if len(p.SampleType) == 0 {
		return 0, 0, errNoSampleTypes
	}
	index := len(p.SampleType) - 1
	for i, st := range p.SampleType {
		if (st.Type == "cpu" || st.Type == "wall") && st.Unit == "nanoseconds" {
			index = i
			break
		}
	}

	if scale, ok := millisPerUnit(p.SampleType[index].Unit); ok {
		return index, scale, nil
	}
	// counted samples, each one stands for a period
	if p.PeriodType != nil {
		if scale, ok := millisPerUnit(p.PeriodType.Unit); ok {
			return index, float64(p.Period) * scale, nil
		}
	}
	return index, 1, nil
}

func millisPerUnit(unit string) (float64, bool) {
	switch unit {
	case "nanoseconds":
		return 1e-6, true
	case "microseconds":
		return 1e-3, true
	case "milliseconds":
		return 1, true
	case "seconds":
		return 1e3, true
	}
	return 0, false
}
