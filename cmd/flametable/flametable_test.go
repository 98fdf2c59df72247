package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/pprof/profile"
)

const stacksJSON = `[
	{"methods":["main.main","app.handle","app.query"],"durationInMillis":30},
	{"methods":["main.main","app.handle","app.handle"],"durationInMillis":10},
	{"methods":["main.main","runtime.gcBgMarkWorker"],"durationInMillis":20}
]`

func writeFile(t *testing.T, name string, b []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, b, 0o644); err != nil {
		t.Fatalf("error writing %s: %v", p, err)
	}
	return p
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCalls(t *testing.T) {
	file := writeFile(t, "stacks.json", []byte(stacksJSON))

	tests := []struct {
		name    string
		args    []string
		want    []string
		notWant []string
	}{
		{
			name:    "by self time",
			args:    []string{"calls", "--file", file, "--limit", "2"},
			want:    []string{"app.query", "runtime.gcBgMarkWorker", "50.0%"},
			notWant: []string{"main.main"},
		},
		{
			name: "by total time",
			args: []string{"calls", "--file", file, "--sort", "total", "--limit", "1"},
			want: []string{"main.main", "60.00ms"},
		},
		{
			name:    "transformed",
			args:    []string{"calls", "--file", file, "--transforms", "reverse", "--limit", "1"},
			want:    []string{"main.main", "100.0%"},
			notWant: []string{"app.query"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Fatalf("expected %q in output:\n%s", w, out)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(out, w) {
					t.Fatalf("unexpected %q in output:\n%s", w, out)
				}
			}
		})
	}
}

func TestCallsApplicationPrefix(t *testing.T) {
	file := writeFile(t, "stacks.json", []byte(`[{"methods":["github.com/acme/shop/cart.Add"],"durationInMillis":5}]`))

	out, err := run(t, "calls", "--file", file)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, "yes") {
		t.Fatalf("expected a host qualified method to be third-party:\n%s", out)
	}

	out, err = run(t, "calls", "--file", file, "--app-prefix", "github.com/acme/shop")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "yes") {
		t.Fatalf("expected the method to be flagged as application code:\n%s", out)
	}
}

func TestTree(t *testing.T) {
	file := writeFile(t, "stacks.json", []byte(stacksJSON))

	out, err := run(t, "tree", "--file", file, "--transforms", "collapse_recursive", "--depth", "2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "  app.handle") || !strings.Contains(out, "100.0%") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if strings.Contains(out, "app.query") {
		t.Fatalf("expected the third level to be hidden:\n%s", out)
	}
}

func TestProfileInput(t *testing.T) {
	fn := &profile.Function{ID: 1, Name: "app.spin"}
	loc := &profile.Location{ID: 1, Address: 0x1, Line: []profile.Line{{Function: fn}}}
	p := &profile.Profile{
		SampleType: []*profile.ValueType{{Type: "cpu", Unit: "nanoseconds"}},
		Sample:     []*profile.Sample{{Location: []*profile.Location{loc}, Value: []int64{3_000_000}}},
		Location:   []*profile.Location{loc},
		Function:   []*profile.Function{fn},
	}
	var buf bytes.Buffer
	if err := p.Write(&buf); err != nil {
		t.Fatalf("error writing profile: %v", err)
	}
	file := writeFile(t, "cpu.pb.gz", buf.Bytes())

	out, err := run(t, "calls", "--file", file)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "app.spin") || !strings.Contains(out, "3.00ms") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestServiceInput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/services/checkout/stack" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(stacksJSON))
	}))
	defer srv.Close()

	out, err := run(t, "calls", "--service", "checkout", "--url", srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "app.query") {
		t.Fatalf("unexpected output:\n%s", out)
	}

	if _, err := run(t, "calls", "--service", "search", "--url", srv.URL); err == nil {
		t.Fatal("expected an error for an unknown service")
	}
}

func TestErrors(t *testing.T) {
	file := writeFile(t, "stacks.json", []byte(stacksJSON))

	tests := []struct {
		name string
		args []string
	}{
		{name: "no input", args: []string{"calls"}},
		{name: "two inputs", args: []string{"calls", "--file", file, "--service", "checkout"}},
		{name: "missing file", args: []string{"calls", "--file", filepath.Join(t.TempDir(), "nope.json")}},
		{name: "unknown transform", args: []string{"calls", "--file", file, "--transforms", "explode"}},
		{name: "unknown order", args: []string{"calls", "--file", file, "--sort", "name"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.args...); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}
