package main

import "testing"

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"measure", "inspect", "manage", "assess"} {
		if !names[want] {
			t.Errorf("expected root command to register a %q subcommand, got %v", want, names)
		}
	}
}

func TestRootCommandHasConfigAndVerboseFlags(t *testing.T) {
	root := newRootCmd()
	if f := root.PersistentFlags().Lookup("config"); f == nil {
		t.Error("expected a --config persistent flag")
	}
	if f := root.PersistentFlags().Lookup("verbose"); f == nil {
		t.Error("expected a --verbose persistent flag")
	}
}

func TestInspectCommandRegistersSubcommands(t *testing.T) {
	inspect := newInspectCmd()
	names := map[string]bool{}
	for _, c := range inspect.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"functions", "edges", "type"} {
		if !names[want] {
			t.Errorf("expected inspect command to register a %q subcommand, got %v", want, names)
		}
	}
}
