package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
)

const testConfig = `gateway:
  port: 3100
model:
  primary: a/m1
  fallbacks:
    - b/m2
providers:
  a:
    api: openai-completions
    base_url: https://api.example.com/v1
    api_key: sk-abcdefghijklmnopqrstuvwxyz
    headers:
      Authorization: Bearer secret-token-value
      X-Team: research
  b:
    api: ollama-chat
    base_url: http://localhost:11434
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// run executes the CLI with args and returns stdout, stderr and the error.
func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	color.NoColor = true
	t.Cleanup(func() { verbose = false })

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
