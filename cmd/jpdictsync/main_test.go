package main

import "testing"

func TestRootCommandRegistersSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"sync", "query", "serve"} {
		if !names[want] {
			t.Errorf("rootCmd is missing the %q subcommand", want)
		}
	}
}

func TestQueryCommandRegistersKanjiAndNames(t *testing.T) {
	names := map[string]bool{}
	for _, c := range queryCmd.Commands() {
		names[c.Name()] = true
	}
	if !names["kanji"] {
		t.Error("queryCmd is missing the kanji subcommand")
	}
	if !names["names"] {
		t.Error("queryCmd is missing the names subcommand")
	}
}
