package main

import (
	"runtime"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	origVersion, origCommit := Version, GitCommit
	Version, GitCommit = "1.2.3-test", "abc123"
	defer func() { Version, GitCommit = origVersion, origCommit }()

	out, _, err := run(t, "", "version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{"YiYi 1.2.3-test", "Git Commit: abc123", runtime.Version()} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got %q", want, out)
		}
	}
}

func TestVersionCommand_RejectsArgs(t *testing.T) {
	if _, _, err := run(t, "", "version", "extra"); err == nil {
		t.Error("expected error for unexpected argument")
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := newRootCmd()

	for _, name := range []string{"gateway", "chat", "config", "version"} {
		if sub, _, err := cmd.Find([]string{name}); err != nil || sub.Name() != name {
			t.Errorf("expected subcommand %q to be registered", name)
		}
	}

	for _, flag := range []string{"config", "verbose"} {
		if cmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("expected persistent flag --%s", flag)
		}
	}
}
