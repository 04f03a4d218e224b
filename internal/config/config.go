// Package config loads diskscope settings from defaults, a config file, a .env
// file, the environment and command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/idelchi/diskscope/internal/diskusage"
	"github.com/idelchi/diskscope/internal/logging"
	"github.com/idelchi/diskscope/internal/server"
)

// EnvPrefix is the prefix of all environment variables read by Load.
const EnvPrefix = "DISKSCOPE"

// DotenvVar names the variable holding the path of the .env file.
const DotenvVar = EnvPrefix + "_DOTENV"

// Outputs lists the accepted output formats.
//
//nolint:gochecknoglobals // Config constant
var Outputs = []string{"table", "json"}

// Config represents the diskscope configuration.
type Config struct {
	// Workers is the number of concurrent scan workers.
	Workers int `mapstructure:"workers"`
	// MinSize is the size limit as a human string, e.g. "10MB".
	MinSize string `mapstructure:"min_size"`
	// Strategy selects how directory totals are computed.
	Strategy string `mapstructure:"strategy"`
	// LogLevel is the minimum level logged.
	LogLevel string `mapstructure:"log_level"`
	// LogFormat is console or json.
	LogFormat string `mapstructure:"log_format"`
	// Output is table or json.
	Output string `mapstructure:"output"`
	// Addr is the listen address of the HTTP server.
	Addr string `mapstructure:"addr"`
	// AllowedOrigins are the browser origins the HTTP server accepts commands from.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// ProgressInterval controls how often the progress line is redrawn.
	ProgressInterval time.Duration `mapstructure:"progress_interval"`
}

// flagKeys maps command-line flag names onto configuration keys.
//
//nolint:gochecknoglobals // Config constant
var flagKeys = map[string]string{
	"workers":         "workers",
	"min-size":        "min_size",
	"strategy":        "strategy",
	"log-level":       "log_level",
	"log-format":      "log_format",
	"output":          "output",
	"addr":            "addr",
	"allowed-origins": "allowed_origins",
}

// Load reads the configuration. file is an optional YAML config file and flags,
// if non-nil, overrides any key whose flag was set on the command line.
func Load(file string, flags *pflag.FlagSet) (*Config, error) {
	dotenv := os.Getenv(DotenvVar)
	if dotenv == "" {
		dotenv = ".env"
	}

	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env file: %w", err)
	}

	v := viper.New()

	// Set defaults
	v.SetDefault("workers", runtime.NumCPU())
	v.SetDefault("min_size", "0B")
	v.SetDefault("strategy", string(diskusage.StrategyBottomUp))
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "console")
	v.SetDefault("output", "table")
	v.SetDefault("addr", "127.0.0.1:7878")
	v.SetDefault("allowed_origins", server.DefaultAllowedOrigins)
	v.SetDefault("progress_interval", diskusage.DefaultProgressInterval)

	if file != "" {
		v.SetConfigFile(file)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %q: %w", file, err)
		}
	}

	// Read environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if flag := flags.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return nil, fmt.Errorf("binding flag %q: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return errors.New("workers cannot be negative")
	}

	if _, err := c.SizeLimit(); err != nil {
		return err
	}

	if _, err := diskusage.ParseStrategy(c.Strategy); err != nil {
		return err
	}

	if !slices.Contains(Outputs, c.Output) {
		return fmt.Errorf("invalid output format %q: must be one of %v", c.Output, Outputs)
	}

	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}

	if !slices.Contains(logging.Formats, c.LogFormat) {
		return fmt.Errorf("invalid log format %q: must be one of %v", c.LogFormat, logging.Formats)
	}

	if err := validateOrigins(c.AllowedOrigins); err != nil {
		return err
	}

	return nil
}

// validateOrigins accepts "*" or http(s) origins without a path.
func validateOrigins(origins []string) error {
	if len(origins) == 0 {
		return errors.New("allowed origins cannot be empty")
	}

	for _, origin := range origins {
		if origin == "*" {
			continue
		}

		u, err := url.Parse(origin)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" || strings.Trim(u.Path, "/") != "" {
			return fmt.Errorf("invalid allowed origin %q: must look like http://host[:port]", origin)
		}
	}

	return nil
}

// ServerOptions returns the HTTP server options described by the configuration.
func (c *Config) ServerOptions() server.Options {
	return server.Options{AllowedOrigins: c.AllowedOrigins}
}

// SizeLimit parses MinSize into bytes.
func (c *Config) SizeLimit() (uint64, error) {
	if c.MinSize == "" {
		return 0, nil
	}

	size, err := humanize.ParseBytes(c.MinSize)
	if err != nil {
		return 0, fmt.Errorf("invalid min-size: %w", err)
	}

	return size, nil
}

// ScanOptions returns the scanner options described by the configuration.
func (c *Config) ScanOptions() diskusage.Options {
	strategy, _ := diskusage.ParseStrategy(c.Strategy)

	return diskusage.Options{
		Workers:          c.Workers,
		Strategy:         strategy,
		ProgressInterval: c.ProgressInterval,
	}
}
