package main

import (
	"strings"
	"testing"
)

// config.Initialize runs once per process, so this is the only test that
// goes through it.
func TestGatewayDryRun(t *testing.T) {
	// -p is passed through the environment; restore it for other tests
	t.Setenv("YIYI_GATEWAY_PORT", "")
	path := writeConfig(t, testConfig)

	out, _, err := run(t, "", "gateway", "--dry-run", "-c", path, "-p", "4100")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "configuration valid") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestGatewayFlags(t *testing.T) {
	cmd := newGatewayCmd()

	tests := []struct {
		name      string
		shorthand string
		def       string
	}{
		{name: "port", shorthand: "p", def: "3000"},
		{name: "host", shorthand: "H", def: "localhost"},
		{name: "dry-run", def: "false"},
	}
	for _, tt := range tests {
		flag := cmd.Flags().Lookup(tt.name)
		if flag == nil {
			t.Errorf("expected flag --%s", tt.name)
			continue
		}
		if flag.Shorthand != tt.shorthand || flag.DefValue != tt.def {
			t.Errorf("--%s: expected -%s default %q, got -%s default %q", tt.name, tt.shorthand, tt.def, flag.Shorthand, flag.DefValue)
		}
	}
}
