package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/flachnetz/alwaysprofile/internal/envutil"
	"github.com/flachnetz/alwaysprofile/internal/flamegraph"
	"github.com/flachnetz/alwaysprofile/internal/frame"
	"github.com/flachnetz/alwaysprofile/internal/pprofutil"
	"github.com/flachnetz/alwaysprofile/internal/sample"
	"github.com/flachnetz/alwaysprofile/internal/stackapi"
	"github.com/flachnetz/alwaysprofile/internal/transform"
)

type flameTable struct {
	out io.Writer

	file       string
	service    string
	url        string
	timeout    time.Duration
	transforms string
	appPrefix  []string

	result *flamegraph.Result
}

func newRootCommand(out io.Writer) *cobra.Command {
	t := &flameTable{out: out}
	root := cobra.Command{
		Use:               "flametable [command]",
		Short:             "Inspect sampled stacks on the command line",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: t.load,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&t.file, "file", "f", "", "raw stacks as JSON or a pprof profile")
	flags.StringVarP(&t.service, "service", "s", "", "service to fetch the stacks of")
	flags.StringVar(&t.url, "url", envutil.GetEnvOrFallback("STACK_SERVICE_URL", "http://localhost:8080"), "stack service url")
	flags.DurationVar(&t.timeout, "timeout", 30*time.Second, "stack service timeout")
	flags.StringVarP(&t.transforms, "transforms", "t", "", "comma separated transforms, e.g. collapse_recursive,group:package")
	flags.StringSliceVar(&t.appPrefix, "app-prefix", nil, "module paths of the profiled application")

	root.AddCommand(
		t.newCallsCommand(),
		t.newTreeCommand())

	return &root
}

func (t *flameTable) load(cmd *cobra.Command, _ []string) error {
	cfg, err := transform.ParseSteps(t.transforms)
	if err != nil {
		return err
	}

	raw, err := t.readStacks(cmd.Context())
	if err != nil {
		return err
	}

	view, err := flamegraph.NewView(frame.NewRegistry(), 1)
	if err != nil {
		return err
	}
	stacks, err := sample.FromRaw(view.Registry(), raw)
	if err != nil {
		return err
	}
	t.result, err = view.Process(stacks, cfg)
	return err
}

func (t *flameTable) readStacks(ctx context.Context) ([]sample.RawStack, error) {
	switch {
	case t.file != "" && t.service != "":
		return nil, errors.New("either --file or --service can be set")
	case t.file != "":
		return readFile(t.file)
	case t.service != "":
		if ctx == nil {
			ctx = context.Background()
		}
		c, err := stackapi.NewClient(t.url, stackapi.Options{Timeout: t.timeout, RetryCount: 2})
		if err != nil {
			return nil, err
		}
		return c.Stacks(ctx, t.service)
	}
	return nil, errors.New("one of --file or --service is required")
}

// readFile reads raw stacks as JSON. Anything not looking like a JSON array
// is parsed as a pprof profile.
func readFile(name string) ([]sample.RawStack, error) {
	b, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(strings.TrimSpace(string(b[:min(len(b), 64)])), "[") {
		var raw []sample.RawStack
		err := json.Unmarshal(b, &raw)
		return raw, err
	}
	return pprofutil.Read(bytes.NewReader(b))
}
