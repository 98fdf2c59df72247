package frame

import (
	"regexp"
	"strings"
	"sync"
)

const (
	// RuntimeModule is used as the module of a method without any package qualifier.
	RuntimeModule = "runtime"
	// RootType is used as the type of a method that isn't declared on a type.
	RootType = "<root>"
)

type (
	// Method is the identity of one call-stack frame. Methods are interned by
	// a Registry and compared by identity or ID, never by their fields.
	Method struct {
		FQN    string `json:"fqn"`
		Module string `json:"module"`
		Type   string `json:"type"`
		Name   string `json:"name"`

		// ID is only a fast ordering key, it is not stable across runs.
		ID uint64 `json:"-"`
	}

	// Registry interns fully qualified method names.
	Registry struct {
		mu      sync.RWMutex
		methods map[string]*Method
		nextID  uint64
	}
)

// Root is the method of the synthetic node aggregating all top level frames.
var Root = &Method{
	FQN:    "ROOT",
	Module: "ROOT",
	Type:   "ROOT",
	Name:   "ROOT",
	ID:     0,
}

var closureMarker = regexp.MustCompile(`^func[0-9]+$`)

func NewRegistry() *Registry {
	return &Registry{
		methods: make(map[string]*Method),
		nextID:  1,
	}
}

// Intern returns the method for the given fully qualified name. The same
// instance is returned for every call with the same fqn.
func (r *Registry) Intern(fqn string) *Method {
	r.mu.RLock()
	m, ok := r.methods[fqn]
	r.mu.RUnlock()
	if ok {
		return m
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// another writer might have been faster
	if m, ok := r.methods[fqn]; ok {
		return m
	}
	m = parse(fqn)
	m.ID = r.nextID
	r.nextID++
	r.methods[fqn] = m
	return m
}

// Len returns the number of interned methods.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.methods)
}

func parse(fqn string) *Method {
	parts := strings.Split(fqn, ".")
	if len(parts) > 3 {
		parts = parts[:3]
	}
	switch {
	case len(parts) == 1:
		return &Method{FQN: fqn, Module: RuntimeModule, Type: RootType, Name: fqn}
	case len(parts) == 2, closureMarker.MatchString(parts[2]):
		// module.name.func2 is a closure inside of module.name
		return &Method{FQN: fqn, Module: parts[0], Type: RootType, Name: parts[1]}
	}
	typ := parts[1]
	if strings.HasPrefix(typ, "(*") && strings.HasSuffix(typ, ")") {
		typ = typ[2 : len(typ)-1]
	}
	return &Method{FQN: fqn, Module: parts[0], Type: typ, Name: parts[2]}
}

func (m *Method) String() string {
	return m.FQN
}

// FullType returns the module qualified type of the method.
func (m *Method) FullType() string {
	return m.Module + "." + m.Type
}

// Compare orders methods by their ID.
func Compare(a, b *Method) int {
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}

// CompareSlices compares two method paths element by element. A path that is
// a proper prefix of the other sorts first.
func CompareSlices(a, b []*Method) int {
	for i := range a {
		if i >= len(b) {
			return 1
		}
		if c := Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	if len(a) < len(b) {
		return -1
	}
	return 0
}
