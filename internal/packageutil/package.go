package packageutil

import "strings"

// GoRuntimePrefixes are the symbol prefixes of frames belonging to the Go
// runtime and its scheduler. They are collapsed by default, since they rarely
// help to understand where an application spends its time.
var GoRuntimePrefixes = []string{
	"runtime.",
	"runtime/internal/",
	"internal/runtime/",
	"internal/poll.",
	"syscall.",
	"gcWriteBarrier",
	"memeqbody",
	"indexbytebody",
}

// HasAnyPrefix reports whether the symbol starts with one of the prefixes.
func HasAnyPrefix(symbol string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(symbol, p) {
			return true
		}
	}
	return false
}

// IsGoRuntimeSymbol reports whether the symbol belongs to the Go runtime.
func IsGoRuntimeSymbol(symbol string) bool {
	return HasAnyPrefix(symbol, GoRuntimePrefixes)
}

// IsApplicationSymbol determines whether the symbol belongs to the profiled
// application rather than to the runtime, the standard library or a
// third-party module. Symbols starting with one of applicationPrefixes, the
// module paths of the application, always belong to it. Other host qualified
// paths are third-party modules.
func IsApplicationSymbol(symbol string, applicationPrefixes ...string) bool {
	if IsGoRuntimeSymbol(symbol) {
		return false
	}
	if HasAnyPrefix(symbol, applicationPrefixes) {
		return true
	}
	pkg := symbol
	if i := strings.Index(pkg, "/"); i >= 0 {
		// github.com/org/repo/pkg.Func or net/http.Func
		pkg = pkg[:i]
		if strings.Contains(pkg, ".") {
			return false
		}
	} else if i := strings.Index(pkg, "."); i >= 0 {
		pkg = pkg[:i]
	}
	return !standardLibrary[pkg]
}

var standardLibrary = map[string]bool{
	"bufio":    true,
	"bytes":    true,
	"context":  true,
	"crypto":   true,
	"encoding": true,
	"errors":   true,
	"fmt":      true,
	"io":       true,
	"math":     true,
	"net":      true,
	"os":       true,
	"reflect":  true,
	"regexp":   true,
	"sort":     true,
	"strconv":  true,
	"strings":  true,
	"sync":     true,
	"syscall":  true,
	"time":     true,
	"unicode":  true,
}
