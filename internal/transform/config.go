package transform

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/flachnetz/alwaysprofile/internal/frame"
	"github.com/flachnetz/alwaysprofile/internal/packageutil"
)

const (
	StepCollapseRecursive = "collapse_recursive"
	StepCollapseFramework = "collapse_framework"
	StepCollapseTo        = "collapse_to"
	StepGroup             = "group"
	StepReverse           = "reverse"
)

type (
	// Step names one transform and its arguments.
	Step struct {
		Type     string       `json:"type"`
		Prefixes []string     `json:"prefixes,omitempty"`
		Methods  []string     `json:"methods,omitempty"`
		Mode     GroupingMode `json:"mode,omitempty"`
	}

	// Config is the ordered list of transforms applied to the stacks of a view.
	Config struct {
		Steps []Step `json:"transforms"`
	}
)

// ErrInvalidConfig is returned for unknown steps or missing step arguments.
var ErrInvalidConfig = errors.New("transform: invalid configuration")

// Build creates the transform described by the configuration.
func (c Config) Build(r *frame.Registry) (Transform, error) {
	transforms := make([]Transform, 0, len(c.Steps))
	for _, s := range c.Steps {
		switch s.Type {
		case StepCollapseRecursive:
			transforms = append(transforms, CollapseRecursive())
		case StepCollapseFramework:
			prefixes := s.Prefixes
			if len(prefixes) == 0 {
				prefixes = packageutil.GoRuntimePrefixes
			}
			transforms = append(transforms, CollapseFramework(prefixes...))
		case StepCollapseTo:
			if len(s.Methods) == 0 {
				return nil, fmt.Errorf("%w: %s requires at least one method", ErrInvalidConfig, s.Type)
			}
			markers := make([]*frame.Method, 0, len(s.Methods))
			for _, fqn := range s.Methods {
				markers = append(markers, r.Intern(fqn))
			}
			transforms = append(transforms, CollapseTo(markers...))
		case StepGroup:
			switch s.Mode {
			case GroupByMethod, GroupByType, GroupByPackage, "":
			default:
				return nil, fmt.Errorf("%w: unknown grouping mode %q", ErrInvalidConfig, s.Mode)
			}
			transforms = append(transforms, GroupBy(r, s.Mode))
		case StepReverse:
			transforms = append(transforms, Reverse())
		default:
			return nil, fmt.Errorf("%w: unknown step %q", ErrInvalidConfig, s.Type)
		}
	}
	return Sequence(transforms...), nil
}

// Fingerprint identifies the configuration, two configurations with the same
// fingerprint produce the same transform. Every string is length prefixed, so
// arguments containing separators can't collide.
func (c Config) Fingerprint() uint64 {
	h := xxhash.New()
	var buf [8]byte
	writeLen := func(n int) {
		binary.LittleEndian.PutUint64(buf[:], uint64(n))
		_, _ = h.Write(buf[:])
	}
	writeString := func(v string) {
		writeLen(len(v))
		_, _ = h.WriteString(v)
	}
	writeStrings := func(vs []string) {
		writeLen(len(vs))
		for _, v := range vs {
			writeString(v)
		}
	}

	writeLen(len(c.Steps))
	for _, s := range c.Steps {
		writeString(s.Type)
		writeStrings(s.Prefixes)
		writeStrings(s.Methods)
		writeString(string(s.Mode))
	}
	return h.Sum64()
}

// String renders the configuration in the format understood by ParseSteps.
// Arguments containing separators do not survive the round trip, use
// Fingerprint to compare configurations.
func (c Config) String() string {
	steps := make([]string, 0, len(c.Steps))
	for _, s := range c.Steps {
		steps = append(steps, s.String())
	}
	return strings.Join(steps, ",")
}

// String renders the step in the format understood by ParseSteps.
func (s Step) String() string {
	switch s.Type {
	case StepCollapseFramework:
		if len(s.Prefixes) > 0 {
			return s.Type + ":" + strings.Join(s.Prefixes, "|")
		}
	case StepCollapseTo:
		return s.Type + ":" + strings.Join(s.Methods, "|")
	case StepGroup:
		return s.Type + ":" + string(s.Mode)
	}
	return s.Type
}

// ParseSteps parses a comma separated list of steps, arguments follow a
// colon and are separated by pipes, e.g.
//
//	collapse_framework:runtime.|syscall.,collapse_recursive,group:package
func ParseSteps(v string) (Config, error) {
	var c Config
	if strings.TrimSpace(v) == "" {
		return c, nil
	}
	for _, raw := range strings.Split(v, ",") {
		name, arg, _ := strings.Cut(strings.TrimSpace(raw), ":")
		var args []string
		if arg != "" {
			args = strings.Split(arg, "|")
		}
		s := Step{Type: name}
		switch name {
		case StepCollapseRecursive, StepReverse:
		case StepCollapseFramework:
			s.Prefixes = args
		case StepCollapseTo:
			if len(args) == 0 {
				return Config{}, fmt.Errorf("%w: %s requires at least one method", ErrInvalidConfig, name)
			}
			s.Methods = args
		case StepGroup:
			s.Mode = GroupingMode(arg)
		default:
			return Config{}, fmt.Errorf("%w: unknown step %q", ErrInvalidConfig, name)
		}
		c.Steps = append(c.Steps, s)
	}
	return c, nil
}
