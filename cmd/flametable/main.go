// flametable prints the call table or the flame tree of sampled stacks.
//
//	flametable calls --file stacks.json --transforms collapse_recursive --limit 20
//	flametable tree --service checkout --url http://stacks:8080 --depth 6
package main

import (
	"fmt"
	"os"

	"github.com/flachnetz/alwaysprofile/internal/envutil"
	"github.com/flachnetz/alwaysprofile/internal/logutil"
)

func main() {
	logutil.ConfigureLogger(envutil.GetEnvOrFallback("LOG_LEVEL", "warn"))
	if err := newRootCommand(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
