package sample

import (
	"fmt"
	"sort"
	"time"

	"github.com/flachnetz/alwaysprofile/internal/errorutil"
	"github.com/flachnetz/alwaysprofile/internal/frame"
	"github.com/flachnetz/alwaysprofile/internal/timeutil"
)

type (
	// RawStack is a stack as delivered by the stack service.
	RawStack struct {
		Methods          []string `json:"methods"`
		DurationInMillis float64  `json:"durationInMillis"`
	}

	// Stack is one sampled call path, from the outermost frame at index 0 to
	// the frame where the sample was taken.
	Stack struct {
		Methods  []*frame.Method
		Duration time.Duration
	}
)

var (
	errNegativeDuration = fmt.Errorf("sample: %w: negative duration", errorutil.ErrDataIntegrity)
	errEmptyStack       = fmt.Errorf("sample: %w: stack without methods", errorutil.ErrDataIntegrity)
)

// FromRaw interns the methods of the raw stacks. Stacks with a negative
// duration or without any method are rejected.
func FromRaw(r *frame.Registry, raw []RawStack) ([]Stack, error) {
	stacks := make([]Stack, 0, len(raw))
	for i, rs := range raw {
		if rs.DurationInMillis < 0 {
			return nil, fmt.Errorf("%w: stack %d has %vms", errNegativeDuration, i, rs.DurationInMillis)
		}
		if len(rs.Methods) == 0 {
			return nil, fmt.Errorf("%w: stack %d", errEmptyStack, i)
		}
		methods := make([]*frame.Method, 0, len(rs.Methods))
		for _, fqn := range rs.Methods {
			methods = append(methods, r.Intern(fqn))
		}
		stacks = append(stacks, Stack{
			Methods:  methods,
			Duration: timeutil.FromMillis(rs.DurationInMillis),
		})
	}
	return stacks, nil
}

// ToRaw converts stacks back into their raw representation.
func ToRaw(stacks []Stack) []RawStack {
	raw := make([]RawStack, 0, len(stacks))
	for _, s := range stacks {
		methods := make([]string, 0, len(s.Methods))
		for _, m := range s.Methods {
			methods = append(methods, m.FQN)
		}
		raw = append(raw, RawStack{
			Methods:          methods,
			DurationInMillis: timeutil.Millis(s.Duration),
		})
	}
	return raw
}

// Top returns the frame the sample was taken in.
func (s Stack) Top() *frame.Method {
	return s.Methods[len(s.Methods)-1]
}

func (s Stack) String() string {
	return fmt.Sprintf("<Stack duration=%s top=%s>", timeutil.FormatDuration(s.Duration), s.Top())
}

// CompareStacks orders stacks by their methods first and by duration second.
func CompareStacks(a, b Stack) int {
	if c := frame.CompareSlices(a.Methods, b.Methods); c != 0 {
		return c
	}
	switch {
	case a.Duration < b.Duration:
		return -1
	case a.Duration > b.Duration:
		return 1
	}
	return 0
}

// Merge concatenates all stacks, sorts them and sums the durations of stacks
// with identical paths. Stacks sharing a prefix are contiguous in the result.
func Merge(collections ...[]Stack) []Stack {
	var n int
	for _, c := range collections {
		n += len(c)
	}
	all := make([]Stack, 0, n)
	for _, c := range collections {
		all = append(all, c...)
	}

	sort.Slice(all, func(i, j int) bool {
		return CompareStacks(all[i], all[j]) < 0
	})

	merged := make([]Stack, 0, len(all))
	for _, s := range all {
		last := len(merged) - 1
		if last >= 0 && frame.CompareSlices(merged[last].Methods, s.Methods) == 0 {
			merged[last] = Stack{
				Methods:  merged[last].Methods,
				Duration: merged[last].Duration + s.Duration,
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// TotalDuration sums the durations of all stacks.
func TotalDuration(stacks []Stack) time.Duration {
	var total time.Duration
	for _, s := range stacks {
		total += s.Duration
	}
	return total
}
