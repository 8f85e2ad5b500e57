package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("OTELL_CONFIG", "")

	v := viper.New()
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	defaults := Defaults()
	if cfg.OTLPGRPCAddr != defaults.OTLPGRPCAddr {
		t.Errorf("OTLPGRPCAddr = %q, want %q", cfg.OTLPGRPCAddr, defaults.OTLPGRPCAddr)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.SelfObserve != SelfObserveOff {
		t.Errorf("SelfObserve = %q, want off", cfg.SelfObserve)
	}
}

func TestLoadEnvOverridesDefault(t *testing.T) {
	t.Setenv("OTELL_CONFIG", "")
	t.Setenv("OTELL_QUERY_TCP_ADDR", "127.0.0.1:9999")

	v := viper.New()
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.QueryTCPAddr != "127.0.0.1:9999" {
		t.Errorf("QueryTCPAddr = %q, want 127.0.0.1:9999", cfg.QueryTCPAddr)
	}
}

func TestLoadConfigFileLowerPrecedenceThanEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(`db-path = "/from/file.duckdb"`+"\n"), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("OTELL_CONFIG", path)
	t.Setenv("OTELL_DB_PATH", "/from/env.duckdb")

	v := viper.New()
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "/from/env.duckdb" {
		t.Errorf("DBPath = %q, want env value to win over file", cfg.DBPath)
	}
}

func TestLoadConfigFileAppliesWhenNoEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(`db-path = "/from/file.duckdb"`+"\n"), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("OTELL_CONFIG", path)

	v := viper.New()
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "/from/file.duckdb" {
		t.Errorf("DBPath = %q, want value from config file", cfg.DBPath)
	}
}

func TestForwardConfigPreservesChannelSizeDefault(t *testing.T) {
	cfg := Defaults()
	cfg.ForwardEndpoint = "http://collector:4318"
	cfg.ForwardCompression = "gzip"

	fc := cfg.ForwardConfig()
	if fc.Endpoint != "http://collector:4318" {
		t.Errorf("Endpoint = %q", fc.Endpoint)
	}
	if !fc.Gzip {
		t.Error("Gzip = false, want true")
	}
	if fc.ChannelSize == 0 {
		t.Error("ChannelSize = 0, want DefaultForwardConfig's nonzero default preserved")
	}
}

func TestParseHeaderList(t *testing.T) {
	got := parseHeaderList("x-api-key=abc, x-tenant = foo")
	if got["x-api-key"] != "abc" {
		t.Errorf("x-api-key = %q, want abc", got["x-api-key"])
	}
	if got["x-tenant"] != "foo" {
		t.Errorf("x-tenant = %q, want foo", got["x-tenant"])
	}
}

func TestParseHeaderListEmpty(t *testing.T) {
	got := parseHeaderList("")
	if len(got) != 0 {
		t.Errorf("expected empty map, got %v", got)
	}
}
