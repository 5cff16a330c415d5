package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

type sample struct {
	Name  string `json:"name" yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

func TestFormatters(t *testing.T) {
	tests := []struct {
		format OutputFormat
		want   string
	}{
		{format: FormatText, want: "{a 2}\n"},
		{format: "", want: "{a 2}\n"},
		{format: FormatJSON, want: "{\n  \"name\": \"a\",\n  \"count\": 2\n}\n"},
		{format: FormatYAML, want: "name: a\ncount: 2\n"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			formatter, err := NewFormatter(tt.format)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var buf bytes.Buffer
			if err := formatter.FormatTo(&buf, sample{Name: "a", Count: 2}); err != nil {
				t.Fatalf("FormatTo() error = %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("expected %q, got %q", tt.want, buf.String())
			}
		})
	}
}

func TestNewFormatter_Unknown(t *testing.T) {
	if _, err := NewFormatter("csv"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestPrinter(t *testing.T) {
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })

	var out, errOut bytes.Buffer
	p := NewPrinter(&out, &errOut)

	p.Success("saved %s", "config.yaml")
	p.Label("You: ")
	p.Plain("hello")
	p.Warn("retrying")
	p.Error("failed: %v", "boom")

	if got, want := out.String(), "✓ saved config.yaml\nYou: hello"; got != want {
		t.Errorf("expected stdout %q, got %q", want, got)
	}
	if !strings.Contains(errOut.String(), "! retrying\n") || !strings.Contains(errOut.String(), "✗ failed: boom\n") {
		t.Errorf("unexpected stderr %q", errOut.String())
	}
	if p.Out() != &out {
		t.Error("expected Out to return the stdout writer")
	}
}
