// Package config loads OrbitSim settings from defaults, an optional config
// file and ORBITSIM_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/liamnightingale/OrbitSim/internal/auth"
	"github.com/liamnightingale/OrbitSim/internal/propagation"
	"github.com/liamnightingale/OrbitSim/internal/stream"
	"github.com/liamnightingale/OrbitSim/internal/tle"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. ORBITSIM_HTTP_ADDR.
const EnvPrefix = "ORBITSIM"

// Config is the full application configuration.
type Config struct {
	HTTPAddr   string
	TrustProxy bool // honour X-Forwarded-For / X-Real-IP
	LogLevel   slog.Level
	Auth       auth.Config
	Prop       propagation.Config
	TLE        TLEConfig
	Stream     stream.Config
}

// TLEConfig controls where TLE text comes from.
type TLEConfig struct {
	File        string // local catalog loaded at startup, if set
	SourceURL   string
	ExtraURLs   []string
	CacheDir    string
	MaxFiles    int
	EnableFetch bool // fetch from SourceURL at serve startup when no file is set
}

// Key names; environment variables are the upper-cased key with "." -> "_".
const (
	keyHTTPAddr     = "http.addr"
	keyTrustProxy   = "http.trust_proxy"
	keyLogLevel     = "log.level"
	keyAuthEnabled  = "auth.enabled"
	keyAuthToken    = "auth.token"
	keyPropWorkers  = "prop.workers"
	keyPropSamples  = "prop.samples"
	keyPropPeriods  = "prop.periods"
	keyTLEFile      = "tle.file"
	keyTLESource    = "tle.source_url"
	keyTLEExtraURLs = "tle.extra_urls"
	keyTLECacheDir  = "tle.cache_dir"
	keyTLEMaxFiles  = "tle.max_files"
	keyTLEFetch     = "tle.fetch"
	keyStreamPerIP  = "stream.max_per_ip"
	keyStreamTotal  = "stream.max_total"
	keyStreamAlive  = "stream.keepalive_seconds"
)

// defaults returns the value of every key when nothing overrides it.
func defaults() map[string]any {
	return map[string]any{
		keyHTTPAddr:     ":8080",
		keyTrustProxy:   false,
		keyLogLevel:     "info",
		keyAuthEnabled:  false,
		keyAuthToken:    "",
		keyPropWorkers:  runtime.NumCPU(),
		keyPropSamples:  propagation.DefaultSamples,
		keyPropPeriods:  propagation.DefaultPeriodMultiple,
		keyTLEFile:      "",
		keyTLESource:    tle.DefaultSourceURL,
		keyTLEExtraURLs: []string{},
		keyTLECacheDir:  filepath.Join(os.TempDir(), "orbitsim", "tle"),
		keyTLEMaxFiles:  5,
		keyTLEFetch:     false,
		keyStreamPerIP:  10,
		keyStreamTotal:  1000,
		keyStreamAlive:  30,
	}
}

// New returns a viper instance with defaults and environment binding. If
// configFile is empty, orbitsim.yaml is looked up in the working directory
// and $HOME/.config/orbitsim.
func New(configFile string) *viper.Viper {
	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("orbitsim")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "orbitsim"))
		}
	}
	return v
}

// Load reads the config file, if any, and decodes the settings. A missing
// default config file is not an error; a missing explicit one is.
func Load(configFile string, logger *slog.Logger) (Config, error) {
	v := New(configFile)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	} else {
		logger.Info("config file loaded", "path", v.ConfigFileUsed())
	}
	return Decode(v, logger)
}

// Decode extracts a Config from v. Invalid numeric or boolean values are
// logged and replaced by their defaults. Enabling auth without a token is
// an error.
func Decode(v *viper.Viper, logger *slog.Logger) (Config, error) {
	def := defaults()
	cfg := Config{
		HTTPAddr:   v.GetString(keyHTTPAddr),
		TrustProxy: boolean(v, def, keyTrustProxy, logger),
		Prop: propagation.Config{
			Workers:        positiveInt(v, def, keyPropWorkers, logger),
			Samples:        positiveInt(v, def, keyPropSamples, logger),
			PeriodMultiple: positiveFloat(v, def, keyPropPeriods, logger),
		},
		TLE: TLEConfig{
			File:        v.GetString(keyTLEFile),
			SourceURL:   v.GetString(keyTLESource),
			ExtraURLs:   splitList(v.Get(keyTLEExtraURLs)),
			CacheDir:    v.GetString(keyTLECacheDir),
			MaxFiles:    positiveInt(v, def, keyTLEMaxFiles, logger),
			EnableFetch: boolean(v, def, keyTLEFetch, logger),
		},
		Stream: stream.Config{
			MaxConcurrentPerIP: positiveInt(v, def, keyStreamPerIP, logger),
			MaxTotal:           positiveInt(v, def, keyStreamTotal, logger),
			KeepaliveInterval:  time.Duration(positiveInt(v, def, keyStreamAlive, logger)) * time.Second,
		},
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString(keyLogLevel))); err != nil {
		logger.Warn("invalid log level, using info", "value", v.GetString(keyLogLevel))
		cfg.LogLevel = slog.LevelInfo
	}

	enabled, err := cast.ToBoolE(v.Get(keyAuthEnabled))
	if err != nil {
		return cfg, fmt.Errorf("%s_AUTH_ENABLED must be a boolean value (true/false/1/0)", EnvPrefix)
	}
	cfg.Auth.Enabled = enabled
	if enabled {
		cfg.Auth.Token = v.GetString(keyAuthToken)
		if cfg.Auth.Token == "" {
			return cfg, fmt.Errorf("%s_AUTH_TOKEN is required when auth is enabled", EnvPrefix)
		}
	}

	return cfg, nil
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func positiveInt(v *viper.Viper, def map[string]any, key string, logger *slog.Logger) int {
	n, err := cast.ToIntE(v.Get(key))
	if err != nil || n < 1 {
		fallback := cast.ToInt(def[key])
		logger.Warn("invalid "+envName(key)+" value, using default", "value", v.Get(key), "default", fallback)
		return fallback
	}
	return n
}

func positiveFloat(v *viper.Viper, def map[string]any, key string, logger *slog.Logger) float64 {
	f, err := cast.ToFloat64E(v.Get(key))
	if err != nil || !(f > 0) {
		fallback := cast.ToFloat64(def[key])
		logger.Warn("invalid "+envName(key)+" value, using default", "value", v.Get(key), "default", fallback)
		return fallback
	}
	return f
}

func boolean(v *viper.Viper, def map[string]any, key string, logger *slog.Logger) bool {
	b, err := cast.ToBoolE(v.Get(key))
	if err != nil {
		fallback := cast.ToBool(def[key])
		logger.Warn("invalid "+envName(key)+" value, using default", "value", v.Get(key), "default", fallback)
		return fallback
	}
	return b
}

// splitList accepts a YAML list or a comma-separated string.
func splitList(raw any) []string {
	var parts []string
	if s, ok := raw.(string); ok {
		parts = strings.Split(s, ",")
	} else {
		parts = cast.ToStringSlice(raw)
	}

	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LogValue summarizes the configuration without the auth token.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("http_addr", c.HTTPAddr),
		slog.String("log_level", c.LogLevel.String()),
		slog.Bool("auth_enabled", c.Auth.Enabled),
		slog.Int("workers", c.Prop.Workers),
		slog.Int("samples", c.Prop.Samples),
		slog.Float64("periods", c.Prop.PeriodMultiple),
		slog.String("tle_file", c.TLE.File),
		slog.String("tle_source_url", c.TLE.SourceURL),
		slog.Any("tle_extra_urls", c.TLE.ExtraURLs),
		slog.String("tle_cache_dir", c.TLE.CacheDir),
		slog.Int("stream_max_per_ip", c.Stream.MaxConcurrentPerIP),
	)
}
