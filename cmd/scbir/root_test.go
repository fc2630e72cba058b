package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd("test", testLoader(t, nil))

	want := []string{"status", "search", "compare", "watch", "fetch", "serve", "debug"}
	for _, name := range want {
		found := false
		for _, c := range root.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}

	for _, flag := range []string{"env", "config", "json"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("missing persistent flag --%s", flag)
		}
	}
}

func TestRootCmd_HelpDoesNotLoad(t *testing.T) {
	calls := 0
	load := func(*cobra.Command) (*app, error) {
		calls++
		return nil, errors.New("should not load")
	}

	out, err := run(t, load, "", "--help")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "scbir") {
		t.Errorf("expected usage in output, got %q", out)
	}
	if calls != 0 {
		t.Errorf("loader ran %d times for --help", calls)
	}
}

func TestRootCmd_LoadErrorSurfaces(t *testing.T) {
	load := func(*cobra.Command) (*app, error) {
		return nil, errors.New("failed to read config")
	}

	_, err := run(t, load, "", "status")
	if err == nil || !strings.Contains(err.Error(), "failed to read config") {
		t.Fatalf("expected load error, got %v", err)
	}
}
