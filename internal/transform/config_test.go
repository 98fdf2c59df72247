package transform

import (
	"errors"
	"testing"

	"github.com/flachnetz/alwaysprofile/internal/frame"
	"github.com/flachnetz/alwaysprofile/internal/sample"
	"github.com/flachnetz/alwaysprofile/internal/testutil"
)

func TestParseSteps(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Config
		wantErr bool
	}{
		{
			name:  "empty",
			input: "",
			want:  Config{},
		},
		{
			name:  "all steps",
			input: "collapse_framework:net.|os., collapse_recursive,collapse_to:app.handle,group:package,reverse",
			want: Config{Steps: []Step{
				{Type: StepCollapseFramework, Prefixes: []string{"net.", "os."}},
				{Type: StepCollapseRecursive},
				{Type: StepCollapseTo, Methods: []string{"app.handle"}},
				{Type: StepGroup, Mode: GroupByPackage},
				{Type: StepReverse},
			}},
		},
		{
			name:  "framework without prefixes",
			input: "collapse_framework",
			want:  Config{Steps: []Step{{Type: StepCollapseFramework}}},
		},
		{
			name:    "unknown step",
			input:   "collapse_everything",
			wantErr: true,
		},
		{
			name:    "collapse to without methods",
			input:   "collapse_to",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSteps(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSteps() error = %v, wantErr %v", err, tt.wantErr)
			}
			if diff := testutil.Diff(got, tt.want); diff != "" {
				t.Fatalf("Result mismatch: got - want +\n%s", diff)
			}
		})
	}
}

func TestConfigFingerprint(t *testing.T) {
	a, _ := ParseSteps("collapse_recursive,group:type")
	b, _ := ParseSteps("collapse_recursive, group:type")
	c, _ := ParseSteps("group:type,collapse_recursive")
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatal("expected equal configurations to have the same fingerprint")
	}
	if a.Fingerprint() == c.Fingerprint() {
		t.Fatal("expected the order of steps to change the fingerprint")
	}
	if (Config{}).Fingerprint() == a.Fingerprint() {
		t.Fatal("expected the empty configuration to have its own fingerprint")
	}

	joined := Config{Steps: []Step{{Type: StepCollapseTo, Methods: []string{"a|b"}}}}
	split := Config{Steps: []Step{{Type: StepCollapseTo, Methods: []string{"a", "b"}}}}
	if joined.Fingerprint() == split.Fingerprint() {
		t.Fatal("expected a method containing a pipe to differ from two methods")
	}
	prefixes := Config{Steps: []Step{{Type: StepCollapseFramework, Prefixes: []string{"a"}}}}
	methods := Config{Steps: []Step{{Type: StepCollapseFramework, Methods: []string{"a"}}}}
	if prefixes.Fingerprint() == methods.Fingerprint() {
		t.Fatal("expected prefixes and methods to be hashed separately")
	}
}

func TestConfigString(t *testing.T) {
	cfg, err := ParseSteps("collapse_framework:runtime.|syscall.,collapse_recursive,group:package")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := testutil.Diff(cfg.String(), "collapse_framework:runtime.|syscall.,collapse_recursive,group:package"); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
}

func TestConfigBuild(t *testing.T) {
	r := frame.NewRegistry()
	cfg, err := ParseSteps("collapse_framework,collapse_recursive")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr, err := cfg.Build(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	input := stacksOf(t, r, sample.RawStack{
		Methods:          []string{"main.main", "runtime.mcall", "runtime.park_m", "main.main"},
		DurationInMillis: 1,
	})
	want := []sample.RawStack{{Methods: []string{"main.main", "runtime.mcall"}, DurationInMillis: 1}}
	if diff := testutil.Diff(rawOf(tr(input)), want); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}

	if _, err := (Config{Steps: []Step{{Type: StepGroup, Mode: "module"}}}).Build(r); err == nil {
		t.Fatal("expected an error for an unknown grouping mode")
	}
	if _, err := (Config{Steps: []Step{{Type: "nope"}}}).Build(r); err == nil {
		t.Fatal("expected an error for an unknown step")
	}
	if _, err := (Config{Steps: []Step{{Type: StepCollapseTo}}}).Build(r); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for collapse_to without methods, got %v", err)
	}
}
