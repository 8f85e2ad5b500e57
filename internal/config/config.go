// Package config resolves otell's settings from the layered sources
// spec.md §4.6 lists: built-in defaults, a TOML config file, OTELL_*
// environment variables, and CLI flags on the run command — in that
// precedence order, lowest to highest. Grounded on
// atikulmunna-loom's internal/cmd/root.go cobra+viper bootstrap (the
// teacher itself carries no config package), generalized from loom's
// YAML-only layout to TOML plus an explicit env prefix and
// viper.BindPFlag wiring per spec.md's richer precedence chain.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/runmat-org/otell/internal/ingest"
	"github.com/runmat-org/otell/internal/pipeline"
	"github.com/runmat-org/otell/internal/store"
	"github.com/runmat-org/otell/pkg/logger"
)

// SelfObserveMode controls otell's own OTLP self-export, per spec.md §6.
type SelfObserveMode string

const (
	SelfObserveOff   SelfObserveMode = "off"
	SelfObserveStore SelfObserveMode = "store"
	SelfObserveBoth  SelfObserveMode = "both"
)

// Config is the fully-resolved runtime configuration for `otell run`.
type Config struct {
	DBPath string

	OTLPGRPCAddr   string
	OTLPHTTPAddr   string
	QueryTCPAddr   string
	QueryHTTPAddr  string
	QueryUDSPath   string
	EnqueueTimeout time.Duration

	RetentionTTL      time.Duration
	RetentionMaxBytes int64

	SelfObserve SelfObserveMode

	ForwardEndpoint    string
	ForwardProtocol    string
	ForwardCompression string
	ForwardHeaders     map[string]string
	ForwardTimeout     time.Duration

	OTelExporterEndpoint string
	OTelExporterProtocol string
	OTelExporterHeaders  map[string]string

	LogLevel string
}

// Defaults returns otell's built-in defaults, the lowest-precedence
// layer.
func Defaults() Config {
	return Config{
		DBPath:            defaultDBPath(),
		OTLPGRPCAddr:      "0.0.0.0:4317",
		OTLPHTTPAddr:      "0.0.0.0:4318",
		QueryTCPAddr:      "127.0.0.1:1778",
		QueryHTTPAddr:     "127.0.0.1:1778",
		QueryUDSPath:      defaultUDSPath(),
		EnqueueTimeout:    2 * time.Second,
		RetentionTTL:      24 * time.Hour,
		RetentionMaxBytes: 2 << 30, // 2 GiB
		SelfObserve:       SelfObserveOff,
		ForwardTimeout:    5 * time.Second,
		LogLevel:          "info",
	}
}

func defaultDBPath() string {
	dir := xdgDataHome()
	return filepath.Join(dir, "otell", "otell.duckdb")
}

func defaultUDSPath() string {
	dir := os.TempDir()
	return filepath.Join(dir, "otell.sock")
}

func xdgDataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

func configFilePath() string {
	if v := os.Getenv("OTELL_CONFIG"); v != "" {
		return v
	}
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			dir = filepath.Join(home, ".config")
		}
	}
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "otell", "config.toml")
}

// BindFlags registers `run`'s flags on cmd and binds them into v,
// giving CLI flags the highest precedence once v.Get is consulted
// after cmd.Execute.
func BindFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().String("db-path", "", "DuckDB file path")
	cmd.Flags().String("otlp-grpc-addr", "", "OTLP gRPC ingest bind address")
	cmd.Flags().String("otlp-http-addr", "", "OTLP HTTP ingest bind address")
	cmd.Flags().String("query-tcp-addr", "", "query TCP bind address")
	cmd.Flags().String("query-http-addr", "", "query HTTP bind address")
	cmd.Flags().String("query-uds-path", "", "query Unix domain socket path")

	for _, name := range []string{
		"db-path", "otlp-grpc-addr", "otlp-http-addr",
		"query-tcp-addr", "query-http-addr", "query-uds-path",
	} {
		_ = v.BindPFlag(name, cmd.Flags().Lookup(name))
	}
}

// Load resolves Config from defaults, an optional TOML file, OTELL_*
// env vars, and (if v carries bound flags) CLI flags — in that
// precedence order, matching viper's own override layering.
func Load(v *viper.Viper) (Config, error) {
	cfg := Defaults()

	if path := configFilePath(); path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("toml")
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
			}
		}
	}

	v.SetEnvPrefix("OTELL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	applyString(v, "db-path", &cfg.DBPath)
	applyString(v, "otlp-grpc-addr", &cfg.OTLPGRPCAddr)
	applyString(v, "otlp-http-addr", &cfg.OTLPHTTPAddr)
	applyString(v, "query-tcp-addr", &cfg.QueryTCPAddr)
	applyString(v, "query-http-addr", &cfg.QueryHTTPAddr)
	applyString(v, "query-uds-path", &cfg.QueryUDSPath)

	if s := v.GetString("retention-ttl"); s != "" {
		d, err := ParseDuration(s)
		if err != nil {
			return Config{}, fmt.Errorf("OTELL_RETENTION_TTL: %w", err)
		}
		cfg.RetentionTTL = d
	}
	if s := v.GetString("retention-max-bytes"); s != "" {
		n, err := ParseBytes(s)
		if err != nil {
			return Config{}, fmt.Errorf("OTELL_RETENTION_MAX_BYTES: %w", err)
		}
		cfg.RetentionMaxBytes = n
	}

	if s := v.GetString("self-observe"); s != "" {
		cfg.SelfObserve = SelfObserveMode(s)
	}

	applyString(v, "forward-otlp-endpoint", &cfg.ForwardEndpoint)
	applyString(v, "forward-otlp-protocol", &cfg.ForwardProtocol)
	applyString(v, "forward-otlp-compression", &cfg.ForwardCompression)
	if s := v.GetString("forward-otlp-timeout"); s != "" {
		d, err := ParseDuration(s)
		if err != nil {
			return Config{}, fmt.Errorf("OTELL_FORWARD_OTLP_TIMEOUT: %w", err)
		}
		cfg.ForwardTimeout = d
	}
	cfg.ForwardHeaders = parseHeaderList(v.GetString("forward-otlp-headers"))

	// OTEL_EXPORTER_OTLP_* follows the upstream OpenTelemetry env
	// convention, not the OTELL_ prefix, per spec.md §6.
	if s := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); s != "" {
		cfg.OTelExporterEndpoint = s
	}
	if s := os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL"); s != "" {
		cfg.OTelExporterProtocol = s
	}
	cfg.OTelExporterHeaders = parseHeaderList(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))

	return cfg, nil
}

func applyString(v *viper.Viper, key string, dst *string) {
	if s := v.GetString(key); s != "" {
		*dst = s
	}
}

// parseHeaderList parses a comma-separated k=v list, the format both
// spec.md's forwarder and OTEL_EXPORTER_OTLP_HEADERS use.
func parseHeaderList(s string) map[string]string {
	out := map[string]string{}
	if s == "" {
		return out
	}
	for _, pair := range strings.Split(s, ",") {
		kv := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(kv) == 2 {
			out[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
		}
	}
	return out
}

// StoreConfig derives a store.Config from the resolved Config.
func (c Config) StoreConfig() store.Config {
	return store.DefaultConfig(c.DBPath)
}

// PipelineConfig derives the write pipeline's batching Config.
func (c Config) PipelineConfig() pipeline.Config {
	return pipeline.DefaultConfig()
}

// RetentionConfig derives the store's retention sweep Config.
func (c Config) RetentionConfig() store.RetentionConfig {
	return store.RetentionConfig{
		TTLNanos: int64(c.RetentionTTL),
		MaxBytes: c.RetentionMaxBytes,
	}
}

// GRPCConfig derives the OTLP gRPC receiver's Config.
func (c Config) GRPCConfig() ingest.GRPCConfig {
	return ingest.GRPCConfig{Addr: c.OTLPGRPCAddr, EnqueueTimeout: c.EnqueueTimeout}
}

// HTTPIngestConfig derives the OTLP HTTP receiver's Config.
func (c Config) HTTPIngestConfig() ingest.HTTPConfig {
	return ingest.HTTPConfig{Addr: c.OTLPHTTPAddr, EnqueueTimeout: c.EnqueueTimeout}
}

// ForwardConfig derives the optional tee forwarder's Config; Endpoint
// is empty when forwarding is disabled.
func (c Config) ForwardConfig() ingest.ForwardConfig {
	fc := ingest.DefaultForwardConfig()
	fc.Endpoint = c.ForwardEndpoint
	fc.Gzip = strings.EqualFold(c.ForwardCompression, "gzip")
	fc.Headers = c.ForwardHeaders
	fc.Timeout = c.ForwardTimeout
	return fc
}

// LoggerConfig derives the process-wide logger Config.
func (c Config) LoggerConfig() logger.Config {
	return logger.Config{Level: c.LogLevel, Output: "stderr"}
}
