package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/weave-dev/weave/internal/bridge"
	"github.com/weave-dev/weave/internal/cache"
	"github.com/weave-dev/weave/internal/config"
	"github.com/weave-dev/weave/internal/graph"
	"github.com/weave-dev/weave/internal/persistence"
	"github.com/weave-dev/weave/internal/runtime"
	"github.com/weave-dev/weave/internal/storage"
	"github.com/weave-dev/weave/internal/storage/sqlite"
	"github.com/weave-dev/weave/internal/types"
	"github.com/weave-dev/weave/internal/werr"
	"github.com/weave-dev/weave/internal/workflow"
)

// App composes every engine wired against one Runtime; commands reach it
// through the package-level app variable set up in PersistentPreRunE.
type App struct {
	RT       *runtime.Runtime
	Store    storage.Store
	Cache    *cache.Store
	Graph    *graph.Engine
	Workflow *workflow.Engine
	Persist  *persistence.Manager
}

var (
	jsonOutput bool
	actorFlag  string
	ghFlag     bool
	app        *App
	rootCtx    = context.Background()
)

// skipStore marks commands that must not open (and thereby auto-create) a
// hot-zone database — pure info commands and init itself, which manages
// its own store lifecycle through persistence.Manager.Init.
const skipStoreAnnotation = "skip-store"

var rootCmd = &cobra.Command{
	Use:   "wv",
	Short: "wv is the task-graph workflow engine for AI coding agents",
	Long: `wv tracks work as a typed graph of nodes and edges: what's done, what's
blocked, what an agent should pick up next, and the learnings recorded
along the way.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations[skipStoreAnnotation] == "1" {
			return nil
		}
		return setupApp()
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "core", Title: "Core:"},
		&cobra.Group{ID: "graph", Title: "Graph:"},
		&cobra.Group{ID: "diagnostics", Title: "Diagnostics:"},
		&cobra.Group{ID: "persistence", Title: "Persistence:"},
		&cobra.Group{ID: "info", Title: "Info:"},
	)
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit machine-readable JSON")
	rootCmd.PersistentFlags().StringVar(&actorFlag, "actor", "", "actor identity (accepted but not recorded anywhere)")
	rootCmd.PersistentFlags().StringVar(&dbFlagValue, "db", "", "override WV_DB (hot-zone sqlite path)")
}

var dbFlagValue string

func setupApp() error {
	if err := config.Initialize(); err != nil {
		return werr.Wrap(werr.PersistenceError, err, "initializing config")
	}
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	rt, err := runtime.New(cwd)
	if err != nil {
		return err
	}
	if dbFlagValue != "" {
		rt.Cfg.DB = dbFlagValue
	}
	if err := rt.EnsureHotZone(); err != nil {
		return werr.Wrap(werr.PersistenceError, err, "creating hot zone")
	}

	store, err := sqlite.Open(rootCtx, rt.DBPath())
	if err != nil {
		return werr.Wrap(werr.PersistenceError, err, "opening %s", rt.DBPath())
	}

	c := cache.New(rt.HotZone)
	g := graph.New(store, c)
	wf := workflow.New(g, store, resolveBridge(rt), rt)
	pm := persistence.New(store, g, rt)
	wf.Syncer = pm

	app = &App{RT: rt, Store: store, Cache: c, Graph: g, Workflow: wf, Persist: pm}
	return nil
}

func resolveBridge(rt *runtime.Runtime) bridge.Bridge {
	if rt.Cfg.GHSync {
		return bridge.GHCLI{}
	}
	return bridge.Noop{}
}

// Execute runs the root command, translating any returned error into the
// same one-line stderr convention FatalErrorRespectJSON uses.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		FatalErrorRespectJSON("%v", err)
	}
}

// FatalErrorRespectJSON prints a structured {"error": "..."} object when
// --json is set, otherwise a plain "Error: ..." line, then exits 1. Any
// werr.Error Remedy is appended as a second line/field.
func FatalErrorRespectJSON(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	var remedy string
	for _, a := range args {
		if we, ok := a.(*werr.Error); ok && we.Remedy != "" {
			remedy = we.Remedy
		}
	}
	if jsonOutput {
		payload := map[string]string{"error": msg}
		if remedy != "" {
			payload["remedy"] = remedy
		}
		data, _ := json.Marshal(payload)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
		if remedy != "" {
			fmt.Fprintf(os.Stderr, "Remedy: %s\n", remedy)
		}
	}
	os.Exit(1)
}

// warn prints a non-fatal "Warning: ..." line to stderr, used for
// IntegrityWarning/ExternalToolError results that must not abort the op.
func warn(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Warning: "+format+"\n", args...)
}

// writeHints runs the shared write-time advisory checks (spec 4.E step
// 10) against the current store for n.
func writeHints(n *types.Node) []workflow.Hint {
	return workflow.Hints(rootCtx, app.Store, n)
}

// outputJSON marshals v with indentation and writes it to stdout,
// terminating the process on marshal failure (should never happen for
// the well-typed results every command produces).
func outputJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		FatalErrorRespectJSON("marshaling output: %v", err)
	}
	fmt.Println(string(data))
}
