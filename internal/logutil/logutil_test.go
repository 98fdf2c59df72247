package logutil

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{input: "debug", want: zerolog.DebugLevel},
		{input: "warn", want: zerolog.WarnLevel},
		{input: "", want: zerolog.InfoLevel},
		{input: "loud", want: zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestLevelSampler(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Sample(LevelSampler{Level: zerolog.InfoLevel}).Hook(ErrorHook{})
	logger.Debug().Msg("dropped")
	logger.Warn().Msg("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Fatalf("expected debug events to be dropped: %s", out)
	}
	if !strings.Contains(out, `"severity":"warn"`) {
		t.Fatalf("expected the severity of kept events: %s", out)
	}
}
