// Package config loads Weave's process configuration from environment
// variables (no config file is read) into one typed struct, following the spec's design note to replace global mutable
// state with an explicit configuration object threaded through every
// operation (see internal/runtime.Runtime).
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// Config holds every environment-tunable knob from spec section 6,
// resolved once at process startup.
type Config struct {
	HotZone              string        // WV_HOT_ZONE
	DB                   string        // WV_DB
	SyncInterval         time.Duration // WV_SYNC_INTERVAL (seconds)
	AutoSync             bool          // WV_AUTO_SYNC
	AutoCheckpoint       bool          // WV_AUTO_CHECKPOINT
	CheckpointInterval   time.Duration // WV_CHECKPOINT_INTERVAL (seconds)
	CheckpointPull       bool          // WV_CHECKPOINT_PULL
	CheckpointAll        bool          // WV_CHECKPOINT_ALL
	GHSync               bool          // WV_GH_SYNC
	NoWarn               bool          // WV_NO_WARN
	Active               string        // WV_ACTIVE
	SkipPrecommit        bool          // WV_SKIP_PRECOMMIT
	AutoCheckpointActive bool          // WV_AUTO_CHECKPOINT_ACTIVE
}

var v *viper.Viper

// Initialize sets up the viper singleton: env vars prefixed WV_, bound to
// the underscore-separated keys below, matching the reference's BD_ pattern.
func Initialize() error {
	v = viper.New()
	v.SetEnvPrefix("WV")
	v.AutomaticEnv()

	v.SetDefault("hot_zone", "")
	v.SetDefault("db", "")
	v.SetDefault("sync_interval", 60)
	v.SetDefault("auto_sync", true)
	v.SetDefault("auto_checkpoint", true)
	v.SetDefault("checkpoint_interval", 0)
	v.SetDefault("checkpoint_pull", true)
	v.SetDefault("checkpoint_all", false)
	v.SetDefault("gh_sync", false)
	v.SetDefault("no_warn", false)
	v.SetDefault("active", "")
	v.SetDefault("skip_precommit", false)
	v.SetDefault("auto_checkpoint_active", false)
	return nil
}

// Load resolves the Config from the viper singleton, calling Initialize
// first when it has not been called yet.
func Load() (*Config, error) {
	if v == nil {
		if err := Initialize(); err != nil {
			return nil, err
		}
	}
	return &Config{
		HotZone:              v.GetString("hot_zone"),
		DB:                   v.GetString("db"),
		SyncInterval:         time.Duration(v.GetInt("sync_interval")) * time.Second,
		AutoSync:             v.GetBool("auto_sync"),
		AutoCheckpoint:       v.GetBool("auto_checkpoint"),
		CheckpointInterval:   time.Duration(v.GetInt("checkpoint_interval")) * time.Second,
		CheckpointPull:       v.GetBool("checkpoint_pull"),
		CheckpointAll:        v.GetBool("checkpoint_all"),
		GHSync:               v.GetBool("gh_sync"),
		NoWarn:               v.GetBool("no_warn"),
		Active:               v.GetString("active"),
		SkipPrecommit:        v.GetBool("skip_precommit"),
		AutoCheckpointActive: v.GetBool("auto_checkpoint_active"),
	}, nil
}

// HotZoneCandidates returns the preference order from spec section 4.F:
// /dev/shm, then XDG_RUNTIME_DIR, then TMPDIR, each suffixed with the
// project name.
func HotZoneCandidates(project string) []string {
	var out []string
	if explicit := os.Getenv("WV_HOT_ZONE"); explicit != "" {
		return []string{explicit}
	}
	dirname := "weave-" + project
	if _, err := os.Stat("/dev/shm"); err == nil {
		out = append(out, filepath.Join("/dev/shm", dirname))
	}
	if xdg := os.Getenv("XDG_RUNTIME_DIR"); xdg != "" {
		out = append(out, filepath.Join(xdg, dirname))
	}
	tmp := os.Getenv("TMPDIR")
	if tmp == "" {
		tmp = os.TempDir()
	}
	out = append(out, filepath.Join(tmp, dirname))
	return out
}

// ParseBoolEnv mirrors the 0/1 convention used by every WV_* boolean flag.
func ParseBoolEnv(name string, def bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return b
}
