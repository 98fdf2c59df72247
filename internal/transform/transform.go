package transform

import (
	"github.com/samber/lo"

	"github.com/flachnetz/alwaysprofile/internal/frame"
	"github.com/flachnetz/alwaysprofile/internal/packageutil"
	"github.com/flachnetz/alwaysprofile/internal/sample"
)

// Transform rewrites a list of stacks into another list of stacks.
type Transform func(stacks []sample.Stack) []sample.Stack

// GroupingMode selects which part of a method identifies a frame.
type GroupingMode string

const (
	GroupByMethod  GroupingMode = "method"
	GroupByType    GroupingMode = "type"
	GroupByPackage GroupingMode = "package"
)

// Sequence applies the transforms from left to right.
func Sequence(transforms ...Transform) Transform {
	return func(stacks []sample.Stack) []sample.Stack {
		for _, t := range transforms {
			stacks = t(stacks)
		}
		return stacks
	}
}

// Map applies fn to every stack. Stacks for which fn returns false, or which
// end up without any method, are dropped.
func Map(fn func(s sample.Stack) (sample.Stack, bool)) Transform {
	return func(stacks []sample.Stack) []sample.Stack {
		result := make([]sample.Stack, 0, len(stacks))
		for _, s := range stacks {
			mapped, ok := fn(s)
			if !ok || len(mapped.Methods) == 0 {
				continue
			}
			result = append(result, mapped)
		}
		return result
	}
}

// CollapseRecursive keeps only the first occurrence of every method in a path.
func CollapseRecursive() Transform {
	return Map(func(s sample.Stack) (sample.Stack, bool) {
		return sample.Stack{Methods: lo.Uniq(s.Methods), Duration: s.Duration}, true
	})
}

// CollapseFramework keeps only the first frame of every run of consecutive
// frames whose name starts with one of the prefixes.
func CollapseFramework(prefixes ...string) Transform {
	return Map(func(s sample.Stack) (sample.Stack, bool) {
		methods := make([]*frame.Method, 0, len(s.Methods))
		inRun := false
		for _, m := range s.Methods {
			matches := packageutil.HasAnyPrefix(m.FQN, prefixes)
			if matches && inRun {
				continue
			}
			inRun = matches
			methods = append(methods, m)
		}
		return sample.Stack{Methods: methods, Duration: s.Duration}, true
	})
}

// CollapseTo cuts every path right after the first marker method.
func CollapseTo(markers ...*frame.Method) Transform {
	isMarker := make(map[*frame.Method]bool, len(markers))
	for _, m := range markers {
		isMarker[m] = true
	}
	return Map(func(s sample.Stack) (sample.Stack, bool) {
		for i, m := range s.Methods {
			if isMarker[m] {
				return sample.Stack{Methods: s.Methods[:i+1:i+1], Duration: s.Duration}, true
			}
		}
		return s, true
	})
}

// GroupBy replaces every method by the method representing its type or
// package, so that the flame graph aggregates on that level.
func GroupBy(r *frame.Registry, mode GroupingMode) Transform {
	var key func(m *frame.Method) string
	switch mode {
	case GroupByType:
		key = func(m *frame.Method) string {
			if m.Type == frame.RootType {
				return m.Module
			}
			return m.FullType()
		}
	case GroupByPackage:
		key = func(m *frame.Method) string {
			return m.Module
		}
	default:
		return func(stacks []sample.Stack) []sample.Stack {
			return stacks
		}
	}
	return Map(func(s sample.Stack) (sample.Stack, bool) {
		methods := make([]*frame.Method, len(s.Methods))
		for i, m := range s.Methods {
			methods[i] = r.Intern(key(m))
		}
		return sample.Stack{Methods: methods, Duration: s.Duration}, true
	})
}

// Reverse turns every path around, the leaf frame becomes the outermost one.
// A tree built from reversed stacks shows the callers of each method.
func Reverse() Transform {
	return Map(func(s sample.Stack) (sample.Stack, bool) {
		methods := make([]*frame.Method, len(s.Methods))
		for i, m := range s.Methods {
			methods[len(methods)-1-i] = m
		}
		return sample.Stack{Methods: methods, Duration: s.Duration}, true
	})
}
