package main

import (
	"testing"

	"github.com/gamelocale/stkit/builder"
	"github.com/gamelocale/stkit/config"
)

func TestRunFailed(t *testing.T) {
	tests := []struct {
		name string
		sum  builder.Summary
		want bool
	}{
		{"all processed", builder.Summary{Total: 3, Processed: 3}, false},
		{"partial failure", builder.Summary{Total: 3, Processed: 2, Failed: 1}, false},
		{"skips count as success", builder.Summary{Total: 3, Skipped: 2, Failed: 1}, false},
		{"total failure", builder.Summary{Total: 3, Failed: 3}, true},
		{"nothing to do", builder.Summary{}, false},
	}
	for _, tc := range tests {
		if got := runFailed(tc.sum); got != tc.want {
			t.Errorf("%s: runFailed(%+v) = %v, want %v", tc.name, tc.sum, got, tc.want)
		}
	}
}

func TestResolveInputDir(t *testing.T) {
	// The positional argument wins over the project file.
	got, err := resolveInputDir([]string{"arg/dir"}, &config.Config{InputDir: "proj/dir"})
	if err != nil || got != "arg/dir" {
		t.Errorf("with arg: %q, %v", got, err)
	}
	// No argument falls back to the configured input.
	got, err = resolveInputDir(nil, &config.Config{InputDir: "proj/dir"})
	if err != nil || got != "proj/dir" {
		t.Errorf("from config: %q, %v", got, err)
	}
	// Neither is an error.
	if _, err := resolveInputDir(nil, &config.Config{}); err == nil {
		t.Error("missing input dir accepted")
	}
}

func TestNewLogger_Levels(t *testing.T) {
	if lvl := newLogger("warn", false).GetLevel().String(); lvl != "warn" {
		t.Errorf("level = %q, want warn", lvl)
	}
	// Verbose wins over the configured level.
	if lvl := newLogger("warn", true).GetLevel().String(); lvl != "debug" {
		t.Errorf("verbose level = %q, want debug", lvl)
	}
	// Garbage falls back to info.
	if lvl := newLogger("nope", false).GetLevel().String(); lvl != "info" {
		t.Errorf("fallback level = %q, want info", lvl)
	}
}

func TestRootCmd_HasCommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"build", "dry-run", "verify", "cache", "version"} {
		found := false
		for _, c := range root.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing command %q", name)
		}
	}
}
