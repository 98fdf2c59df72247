package nodetree

import (
	"fmt"
	"math"
	"strings"
)

const (
	maxHashedChars = 64
	hashMod        = 10
	hashDecay      = 0.7
)

// Color is a display color derived from a method name.
type Color struct {
	R uint8
	G uint8
	B uint8
}

// ColorFor maps the name to a color of the warm flame graph palette. Names
// with a similar start get similar colors.
func ColorFor(name string) Color {
	v := nameHash(name)
	return Color{
		R: uint8(200 + math.Round(55*v)),
		G: uint8(math.Round(230 * (1 - v))),
		B: uint8(math.Round(55 * (1 - v))),
	}
}

// nameHash returns a value in [0, 1] favoring early characters over later ones.
func nameHash(name string) float64 {
	if i := strings.LastIndexByte(name, '`'); i >= 0 {
		// drop module name if present
		name = name[i+1:]
	}
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = name[:i]
	}

	var hash, maxHash float64
	weight := 1.0
	for i := 0; i < len(name) && i <= maxHashedChars; i++ {
		hash += weight * float64(name[i]%hashMod)
		maxHash += weight * (hashMod - 1)
		weight *= hashDecay
	}
	if maxHash == 0 {
		return 0
	}
	return hash / maxHash
}

func (c Color) String() string {
	return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
}

// Hex returns the color in the #rrggbb notation.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func (c Color) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}
