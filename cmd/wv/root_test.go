package main

import "testing"

// expectedCommands is the minimal set of top-level subcommands the spec's
// operations map onto; this just guards against a command silently
// failing to register via its file's init().
var expectedCommands = []string{
	"add", "update", "delete", "list", "show",
	"block", "link", "resolve", "related", "edges", "path", "tree", "ready",
	"work", "done", "batch-done", "bulk-update", "quick", "ship", "status",
	"sync", "load", "prune", "clean-ghosts", "recover", "doctor", "selftest",
	"health", "digest", "overview", "session-summary",
	"search", "reindex",
	"init", "import", "plan",
	"learnings", "audit-pitfalls",
	"breadcrumbs", "context", "enrich-topology", "refs", "rpc",
	"edge-types", "guide", "mcp-status",
}

func TestRootCommandRegistersEveryExpectedSubcommand(t *testing.T) {
	registered := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		registered[c.Name()] = true
	}
	for _, name := range expectedCommands {
		if !registered[name] {
			t.Errorf("expected %q registered as a subcommand of wv", name)
		}
	}
}

func TestRootCommandHasPersistentJSONFlag(t *testing.T) {
	if rootCmd.PersistentFlags().Lookup("json") == nil {
		t.Error("expected a persistent --json flag")
	}
}

func TestInitCommandSkipsStoreSetup(t *testing.T) {
	for _, c := range rootCmd.Commands() {
		if c.Name() == "init" {
			if c.Annotations[skipStoreAnnotation] != "1" {
				t.Error("expected init to skip automatic store setup")
			}
			return
		}
	}
	t.Fatal("init command not found")
}
