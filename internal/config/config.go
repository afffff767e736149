// Package config loads the Engine's operating configuration (§6) via
// viper, the ambient stack's configuration layer: flags, environment
// variables (ECRINGEST_ prefix), and an optional config file, in that
// precedence order.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sam4s/ecringest/internal/money"
	"github.com/sam4s/ecringest/internal/normalizer"
)

// OperatingConfig bundles every recognized option from §6's table plus the
// resource paths the core needs wired at startup.
type OperatingConfig struct {
	Dialect       normalizer.Dialect
	OpeningHour   int
	ClosingHour   int
	QuietSeconds  int
	SingleItemCap money.Amount
	CurrencySymbol string
	MonitorMode   bool
	LoggingEnabled bool

	SerialPath     string
	OutputDir      string
	CheckpointDir  string
	CatalogPath    string
	ShopsPath      string
	SiteHostname   string
	Register       string
	MetricsAddr    string
}

// Defaults mirror the spec's stated defaults where one is given.
func Defaults() OperatingConfig {
	return OperatingConfig{
		Dialect:        normalizer.Dialect420,
		OpeningHour:    7,
		ClosingHour:    23,
		QuietSeconds:   1200,
		SingleItemCap:  money.MustParse("200.00"),
		CurrencySymbol: "£",
		OutputDir:      "ecr_data",
		CheckpointDir:  ".",
		MetricsAddr:    ":9160",
	}
}

// newViper builds the viper instance shared by Load and Watch: flags bound,
// environment prefixed with ECRINGEST_, and configFile read if non-empty
// (a missing file is tolerated, matching the "config file is optional"
// precedence rule).
func newViper(flags *pflag.FlagSet, configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("ECRINGEST")
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("config: bind flags: %w", err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %s: %w", configFile, err)
			}
		}
	}
	return v, nil
}

// populate registers the Defaults() values on v, reads every §6 field out of
// it, and resolves the dialect via both the marker file and an explicit
// "dialect" override.
func populate(v *viper.Viper) OperatingConfig {
	cfg := Defaults()

	v.SetDefault("opening-hour", cfg.OpeningHour)
	v.SetDefault("closing-hour", cfg.ClosingHour)
	v.SetDefault("quiet-seconds", cfg.QuietSeconds)
	v.SetDefault("single-item-cap", cfg.SingleItemCap.Float64())
	v.SetDefault("currency-symbol", cfg.CurrencySymbol)
	v.SetDefault("monitor-mode", cfg.MonitorMode)
	v.SetDefault("logging-enabled", cfg.LoggingEnabled)
	v.SetDefault("output-dir", cfg.OutputDir)
	v.SetDefault("checkpoint-dir", cfg.CheckpointDir)
	v.SetDefault("metrics-addr", cfg.MetricsAddr)

	cfg.OpeningHour = v.GetInt("opening-hour")
	cfg.ClosingHour = v.GetInt("closing-hour")
	cfg.QuietSeconds = v.GetInt("quiet-seconds")
	cfg.SingleItemCap = money.FromFloat64(v.GetFloat64("single-item-cap"))
	cfg.CurrencySymbol = v.GetString("currency-symbol")
	cfg.MonitorMode = v.GetBool("monitor-mode")
	cfg.LoggingEnabled = v.GetBool("logging-enabled")
	cfg.OutputDir = v.GetString("output-dir")
	cfg.CheckpointDir = v.GetString("checkpoint-dir")
	cfg.CatalogPath = v.GetString("catalog-path")
	cfg.ShopsPath = v.GetString("shops-path")
	cfg.SerialPath = v.GetString("serial-path")
	cfg.SiteHostname = v.GetString("site-hostname")
	cfg.Register = v.GetString("register")
	cfg.MetricsAddr = v.GetString("metrics-addr")

	markerDir := v.GetString("dialect-marker-dir")
	if markerDir == "" {
		markerDir = "."
	}
	if DialectFromMarker(markerDir) == normalizer.Dialect520 {
		cfg.Dialect = normalizer.Dialect520
	}
	if v.IsSet("dialect") {
		switch v.GetString("dialect") {
		case "520":
			cfg.Dialect = normalizer.Dialect520
		case "420":
			cfg.Dialect = normalizer.Dialect420
		}
	}

	return cfg
}

// Load builds an OperatingConfig from flags, environment, and an optional
// config file, in viper's standard precedence order (flag > env > file >
// default).
func Load(flags *pflag.FlagSet, configFile string) (OperatingConfig, error) {
	v, err := newViper(flags, configFile)
	if err != nil {
		return Defaults(), err
	}
	return populate(v), nil
}

// Watch loads the initial config exactly as Load does, then keeps watching
// configFile for changes (via viper's fsnotify-backed WatchConfig) and
// invokes onChange with the freshly reloaded config on every write. Flag and
// environment overrides are re-applied on each reload since they still take
// precedence. A no-op if configFile is empty.
func Watch(flags *pflag.FlagSet, configFile string, onChange func(OperatingConfig)) (OperatingConfig, error) {
	v, err := newViper(flags, configFile)
	if err != nil {
		return Defaults(), err
	}
	cfg := populate(v)
	if configFile == "" || onChange == nil {
		return cfg, nil
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		onChange(populate(v))
	})
	v.WatchConfig()
	return cfg, nil
}

// DialectFromMarker inspects dir for a `config/520` marker file, per §6:
// "presence of a marker file config/520" selects the 520 dialect.
func DialectFromMarker(dir string) normalizer.Dialect {
	if _, err := os.Stat(filepath.Join(dir, "config", "520")); err == nil {
		return normalizer.Dialect520
	}
	return normalizer.Dialect420
}
