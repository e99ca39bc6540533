package config

import (
	"os"
	"testing"
)

func resetViper(t *testing.T) {
	t.Helper()
	v = nil
	for _, name := range []string{
		"WV_HOT_ZONE", "WV_DB", "WV_SYNC_INTERVAL", "WV_AUTO_SYNC",
		"WV_AUTO_CHECKPOINT", "WV_CHECKPOINT_INTERVAL", "WV_CHECKPOINT_PULL",
		"WV_CHECKPOINT_ALL", "WV_GH_SYNC", "WV_NO_WARN", "WV_ACTIVE",
		"WV_SKIP_PRECOMMIT", "WV_AUTO_CHECKPOINT_ACTIVE",
	} {
		os.Unsetenv(name)
	}
	t.Cleanup(func() { v = nil })
}

func TestLoadAppliesDefaultsWithNoEnv(t *testing.T) {
	resetViper(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.AutoSync || !cfg.AutoCheckpoint || !cfg.CheckpointPull {
		t.Errorf("expected the documented true defaults, got %+v", cfg)
	}
	if cfg.GHSync || cfg.NoWarn || cfg.CheckpointAll {
		t.Errorf("expected the documented false defaults, got %+v", cfg)
	}
	if cfg.SyncInterval.Seconds() != 60 {
		t.Errorf("expected a 60s default sync interval, got %v", cfg.SyncInterval)
	}
}

func TestLoadReadsEnvOverrides(t *testing.T) {
	resetViper(t)
	os.Setenv("WV_AUTO_SYNC", "false")
	os.Setenv("WV_SYNC_INTERVAL", "120")
	os.Setenv("WV_DB", "/custom/weave.db")
	defer os.Unsetenv("WV_AUTO_SYNC")
	defer os.Unsetenv("WV_SYNC_INTERVAL")
	defer os.Unsetenv("WV_DB")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AutoSync {
		t.Error("expected WV_AUTO_SYNC=false to be honored")
	}
	if cfg.SyncInterval.Seconds() != 120 {
		t.Errorf("expected a 120s sync interval, got %v", cfg.SyncInterval)
	}
	if cfg.DB != "/custom/weave.db" {
		t.Errorf("expected WV_DB override, got %q", cfg.DB)
	}
}

func TestHotZoneCandidatesHonorsExplicitOverride(t *testing.T) {
	os.Setenv("WV_HOT_ZONE", "/explicit/zone")
	defer os.Unsetenv("WV_HOT_ZONE")
	got := HotZoneCandidates("myproj")
	if len(got) != 1 || got[0] != "/explicit/zone" {
		t.Errorf("expected the explicit override alone, got %v", got)
	}
}

func TestHotZoneCandidatesFallsBackToTMPDIR(t *testing.T) {
	os.Unsetenv("WV_HOT_ZONE")
	os.Unsetenv("XDG_RUNTIME_DIR")
	tmp := t.TempDir()
	os.Setenv("TMPDIR", tmp)
	defer os.Unsetenv("TMPDIR")

	got := HotZoneCandidates("myproj")
	if len(got) == 0 {
		t.Fatal("expected at least one candidate")
	}
	last := got[len(got)-1]
	if last != tmp+"/weave-myproj" {
		t.Errorf("expected the last candidate to be under TMPDIR, got %q", last)
	}
}

func TestParseBoolEnvFallsBackOnMissingOrInvalid(t *testing.T) {
	os.Unsetenv("WV_TEST_FLAG")
	if got := ParseBoolEnv("WV_TEST_FLAG", true); !got {
		t.Error("expected default true when env unset")
	}
	os.Setenv("WV_TEST_FLAG", "not-a-bool")
	defer os.Unsetenv("WV_TEST_FLAG")
	if got := ParseBoolEnv("WV_TEST_FLAG", true); !got {
		t.Error("expected default preserved on unparsable value")
	}
	os.Setenv("WV_TEST_FLAG", "0")
	if got := ParseBoolEnv("WV_TEST_FLAG", true); got {
		t.Error("expected WV_TEST_FLAG=0 to parse false")
	}
}
