// Package config loads calgateway settings from a TOML or YAML file and
// overlays environment variables. Command-line flags are applied on top by
// the cmd package.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	DefaultHTTPTimeout   = 30 * time.Second
	DefaultExportPath    = "calendar.ics"
	DefaultExportLimit   = 500
	DefaultJournalPath   = "calgateway.db"
	DefaultImportHorizon = 90 * 24 * time.Hour
)

// Environment variables read by ApplyEnv.
const (
	EnvBaseURL        = "CALENDAR_BASE_URL"
	EnvClientID       = "CALENDAR_CLIENT_ID"
	EnvClientSecret   = "CALENDAR_CLIENT_SECRET"
	EnvHTTPTimeout    = "CALENDAR_HTTP_TIMEOUT"
	EnvExportSchedule = "CALENDAR_EXPORT_SCHEDULE"
	EnvJournalPath    = "CALENDAR_JOURNAL_PATH"
)

// Config is the top-level application configuration.
type Config struct {
	// BaseURL is the root of the upstream API, e.g. "https://example.com/api/".
	BaseURL      string `toml:"base_url" yaml:"base_url"`
	ClientID     string `toml:"client_id" yaml:"client_id"`
	ClientSecret string `toml:"client_secret" yaml:"client_secret"`

	// HTTPTimeout bounds every upstream exchange, authentication included.
	HTTPTimeout time.Duration `toml:"http_timeout" yaml:"http_timeout"`

	Export  ExportConfig  `toml:"export" yaml:"export"`
	Import  ImportConfig  `toml:"import" yaml:"import"`
	Journal JournalConfig `toml:"journal" yaml:"journal"`
}

// ExportConfig controls the ICS export command.
type ExportConfig struct {
	Path string `toml:"path" yaml:"path"`

	// Schedule is a standard five-field cron expression. Empty means export once.
	Schedule string `toml:"schedule" yaml:"schedule"`

	// Limit caps the number of events written per export.
	Limit  int    `toml:"limit" yaml:"limit"`
	Filter string `toml:"filter" yaml:"filter"`
}

// ImportConfig controls the ICS import command.
type ImportConfig struct {
	// Horizon bounds recurrence expansion, measured from the time of import.
	Horizon time.Duration `toml:"horizon" yaml:"horizon"`
}

// JournalConfig locates the sqlite import journal.
type JournalConfig struct {
	Path string `toml:"path" yaml:"path"`
}

// DefaultConfig returns a configuration with every default filled in and
// no upstream identity.
func DefaultConfig() *Config {
	c := &Config{}
	c.Normalize()
	return c
}

// Normalize fills zero values with defaults and appends a trailing slash
// to BaseURL.
func (c *Config) Normalize() {
	c.BaseURL = strings.TrimSpace(c.BaseURL)
	if c.BaseURL != "" && !strings.HasSuffix(c.BaseURL, "/") {
		c.BaseURL += "/"
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = DefaultHTTPTimeout
	}
	if c.Export.Path == "" {
		c.Export.Path = DefaultExportPath
	}
	if c.Export.Limit <= 0 {
		c.Export.Limit = DefaultExportLimit
	}
	if c.Import.Horizon <= 0 {
		c.Import.Horizon = DefaultImportHorizon
	}
	if c.Journal.Path == "" {
		c.Journal.Path = DefaultJournalPath
	}
}

// Validate checks that the upstream identity is complete and that optional
// settings are well formed.
func (c *Config) Validate() error {
	var errs []error

	if c.BaseURL == "" {
		errs = append(errs, errors.New("base URL is required"))
	} else if u, err := url.Parse(c.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("base URL %q must be an absolute http(s) URL", c.BaseURL))
	}
	if c.ClientID == "" {
		errs = append(errs, errors.New("client id is required"))
	}
	if c.ClientSecret == "" {
		errs = append(errs, errors.New("client secret is required"))
	}
	if c.Export.Schedule != "" {
		if _, err := cron.ParseStandard(c.Export.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("invalid export schedule %q: %w", c.Export.Schedule, err))
		}
	}

	return errors.Join(errs...)
}

// Load reads the file at path. The format is chosen by extension:
// .toml, or .yaml/.yml.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML config %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension %q (use .toml, .yaml or .yml)", ext)
	}

	cfg.Normalize()
	return &cfg, nil
}

// SearchPaths returns the files Resolve tries when no path is given.
func SearchPaths() []string {
	paths := []string{"calgateway.toml", "calgateway.yaml", "calgateway.yml"}
	if dir, err := os.UserConfigDir(); err == nil {
		base := filepath.Join(dir, "calgateway")
		paths = append(paths,
			filepath.Join(base, "config.toml"),
			filepath.Join(base, "config.yaml"),
		)
	}
	return paths
}

// Resolve loads the explicit path if one is given and fails if it is
// missing. Otherwise it loads the first existing file from SearchPaths, or
// returns DefaultConfig when none exists. The returned string names the
// file used, empty for defaults.
func Resolve(explicit string) (*Config, string, error) {
	if explicit != "" {
		cfg, err := Load(explicit)
		return cfg, explicit, err
	}

	for _, p := range SearchPaths() {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, "", fmt.Errorf("failed to stat config file %s: %w", p, err)
		}
		cfg, err := Load(p)
		return cfg, p, err
	}

	return DefaultConfig(), "", nil
}

// ApplyEnv overlays the CALENDAR_* environment variables that are set.
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv(EnvBaseURL); ok && v != "" {
		c.BaseURL = v
	}
	if v, ok := os.LookupEnv(EnvClientID); ok && v != "" {
		c.ClientID = v
	}
	if v, ok := os.LookupEnv(EnvClientSecret); ok && v != "" {
		c.ClientSecret = v
	}
	if v, ok := os.LookupEnv(EnvHTTPTimeout); ok && v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvHTTPTimeout, err)
		}
		c.HTTPTimeout = d
	}
	if v, ok := os.LookupEnv(EnvExportSchedule); ok && v != "" {
		c.Export.Schedule = v
	}
	if v, ok := os.LookupEnv(EnvJournalPath); ok && v != "" {
		c.Journal.Path = v
	}

	c.Normalize()
	return nil
}

// parseDuration accepts Go durations ("45s") and bare seconds ("45").
func parseDuration(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}
