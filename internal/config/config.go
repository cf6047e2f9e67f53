package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"edge-rules/internal/formatters"
	"edge-rules/internal/manifest"
	"edge-rules/internal/rules"
	"edge-rules/internal/storage"
)

// EnvPrefix prefixes every environment variable, e.g. EDGE_RULES_S3_BUCKET
const EnvPrefix = "EDGE_RULES"

// ErrInvalidConfig wraps every Validate failure
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the resolved configuration of a run
type Config struct {
	Manifest    string
	Output      string
	OutputFile  string
	SkipInvalid bool
	CacheSize   int
	Log         LogConfig
	S3          S3Config
}

// LogConfig configures the process logger
type LogConfig struct {
	Level string
	File  string
}

// S3Config configures the optional S3 source and sink
type S3Config struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	SourceKey string
	Upload    bool
	RunID     string
}

// Storage returns the bucket location for the storage package
func (c S3Config) Storage() storage.Config {
	return storage.Config{
		Bucket:   c.Bucket,
		Prefix:   c.Prefix,
		Region:   c.Region,
		Endpoint: c.Endpoint,
	}
}

var defaults = map[string]any{
	"manifest":      manifest.DefaultPath,
	"output":        formatters.FormatJSON,
	"output_file":   "",
	"skip_invalid":  false,
	"cache_size":    rules.DefaultCacheSize,
	"log.level":     "info",
	"log.file":      "",
	"s3.bucket":     "",
	"s3.prefix":     "",
	"s3.region":     storage.DefaultRegion,
	"s3.endpoint":   "",
	"s3.source_key": "",
	"s3.upload":     false,
	"s3.run_id":     "",
}

// FlagName returns the command line flag bound to key, e.g. "s3.source_key"
// is bound to --s3-source-key.
func FlagName(key string) string {
	return strings.NewReplacer(".", "-", "_", "-").Replace(key)
}

// Load resolves the configuration. Precedence is flags, then environment,
// then the config file at path (if any), then defaults. Only flags that
// exist in flags and match a key are bound; flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key := range defaults {
			if f := flags.Lookup(FlagName(key)); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", f.Name, err)
				}
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		Manifest:    v.GetString("manifest"),
		Output:      strings.ToLower(v.GetString("output")),
		OutputFile:  v.GetString("output_file"),
		SkipInvalid: v.GetBool("skip_invalid"),
		CacheSize:   v.GetInt("cache_size"),
		Log: LogConfig{
			Level: v.GetString("log.level"),
			File:  v.GetString("log.file"),
		},
		S3: S3Config{
			Bucket:    v.GetString("s3.bucket"),
			Prefix:    v.GetString("s3.prefix"),
			Region:    v.GetString("s3.region"),
			Endpoint:  v.GetString("s3.endpoint"),
			SourceKey: v.GetString("s3.source_key"),
			Upload:    v.GetBool("s3.upload"),
			RunID:     v.GetString("s3.run_id"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem with c at once
func (c *Config) Validate() error {
	var errs []error

	if !slices.Contains(formatters.Formats(), c.Output) {
		errs = append(errs, fmt.Errorf("output must be one of %s, got %q", strings.Join(formatters.Formats(), ", "), c.Output))
	}
	if c.CacheSize <= 0 {
		errs = append(errs, fmt.Errorf("cache_size must be positive, got %d", c.CacheSize))
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.S3.SourceKey == "" && c.Manifest == "" {
		errs = append(errs, errors.New("manifest path must not be empty"))
	}
	if (c.S3.Upload || c.S3.SourceKey != "") && c.S3.Bucket == "" {
		errs = append(errs, errors.New("s3.bucket is required when s3.upload or s3.source_key is set"))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
