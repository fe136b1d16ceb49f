// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Defaults applied when the file leaves a value unset.
const (
	DefaultSourceTimeout   = 60 * time.Second
	DefaultSyncConcurrency = 4
	DefaultLimit           = 50
	DefaultOutputDir       = "output"
	DefaultSQLitePath      = "jobs.db"
)

// Source types.
const (
	SourceAdzuna   = "adzuna"
	SourceBoard    = "board"
	SourceJSONFile = "jsonfile"
)

// ErrNoSources is the fatal precondition: every source is disabled.
var ErrNoSources = errors.New("config error: no sources enabled")

// Error is a configuration problem tied to a field.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config error: '%s' %s", e.Field, e.Message)
}

// Duration reads "90s"-style strings or integer seconds from JSON.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var secs float64
	if err := json.Unmarshal(data, &secs); err != nil {
		return fmt.Errorf("invalid duration %s", string(data))
	}
	*d = Duration(time.Duration(secs * float64(time.Second)))
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config represents the CLI configuration loaded from a JSON file.
type Config struct {
	Query   QueryConfig    `json:"query"`
	Sources []SourceConfig `json:"sources" validate:"dive"`

	// RulesetPath points at a YAML or JSON keyword ruleset; empty uses the built-in one.
	RulesetPath string `json:"ruleset_path,omitempty"`
	OutputDir   string `json:"output_dir,omitempty"`

	SourceTimeout   Duration `json:"source_timeout,omitempty" validate:"gte=0"`
	SyncConcurrency int      `json:"sync_concurrency,omitempty" validate:"gte=0,lte=64"`

	Store    StoreConfig `json:"store"`
	RedisURL string      `json:"redis_url,omitempty"`

	// Schedule is a cron spec for the schedule command, e.g. "@every 6h".
	Schedule string `json:"schedule,omitempty"`
	LogMode  string `json:"log_mode,omitempty" validate:"omitempty,oneof=dev prod"`
}

// QueryConfig is what every source is asked for.
type QueryConfig struct {
	Keywords string `json:"keywords"`
	Location string `json:"location,omitempty"`
	Limit    int    `json:"limit,omitempty" validate:"gte=0"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver      string `json:"driver,omitempty" validate:"omitempty,oneof=postgres sqlite memory"`
	DatabaseURL string `json:"database_url,omitempty"`
	Path        string `json:"path,omitempty"`
}

// SourceConfig describes one connector. Fields apply per type.
type SourceConfig struct {
	Name     string   `json:"name,omitempty"`
	Type     string   `json:"type" validate:"required,oneof=adzuna board jsonfile"`
	Platform string   `json:"platform,omitempty"`
	Disabled bool     `json:"disabled,omitempty"`
	Timeout  Duration `json:"timeout,omitempty" validate:"gte=0"`

	// adzuna
	AppID    string `json:"app_id,omitempty"`
	AppKey   string `json:"app_key,omitempty"`
	Country  string `json:"country,omitempty"`
	MaxPages int    `json:"max_pages,omitempty" validate:"gte=0"`

	// board
	SearchURL  string   `json:"search_url,omitempty" validate:"omitempty,url"`
	UseBrowser bool     `json:"use_browser,omitempty"`
	PageDelay  Duration `json:"page_delay,omitempty" validate:"gte=0"`

	// jsonfile
	Pattern string `json:"pattern,omitempty"`
}

// Default is the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{
		Query:   QueryConfig{Keywords: "seo"},
		Sources: []SourceConfig{{Type: SourceBoard}},
	}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig loads configuration from a JSON file, applies environment
// overrides and defaults, and validates the result.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	cfg.ApplyEnv(os.Getenv)
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv overrides secrets and endpoints from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("DATABASE_URL"); v != "" {
		c.Store.DatabaseURL = v
		if c.Store.Driver == "" {
			c.Store.Driver = "postgres"
		}
	}
	if v := getenv("REDIS_URL"); v != "" {
		c.RedisURL = v
	}
	if v := getenv("JOB_AGENT_LOG_MODE"); v != "" {
		c.LogMode = v
	}
	appID, appKey := getenv("ADZUNA_APP_ID"), getenv("ADZUNA_APP_KEY")
	for i := range c.Sources {
		if c.Sources[i].Type != SourceAdzuna {
			continue
		}
		if appID != "" && c.Sources[i].AppID == "" {
			c.Sources[i].AppID = appID
		}
		if appKey != "" && c.Sources[i].AppKey == "" {
			c.Sources[i].AppKey = appKey
		}
	}
}

func (c *Config) applyDefaults() {
	if c.SourceTimeout == 0 {
		c.SourceTimeout = Duration(DefaultSourceTimeout)
	}
	if c.SyncConcurrency == 0 {
		c.SyncConcurrency = DefaultSyncConcurrency
	}
	if c.Query.Limit == 0 {
		c.Query.Limit = DefaultLimit
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.Store.Driver == "" {
		if c.Store.DatabaseURL != "" {
			c.Store.Driver = "postgres"
		} else {
			c.Store.Driver = "sqlite"
		}
	}
	if c.Store.Driver == "sqlite" && c.Store.Path == "" {
		c.Store.Path = DefaultSQLitePath
	}
	if c.LogMode == "" {
		c.LogMode = "dev"
	}
	for i := range c.Sources {
		c.Sources[i].Type = strings.ToLower(strings.TrimSpace(c.Sources[i].Type))
	}
}

var validate = validator.New()

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &Error{Field: fe.Namespace(), Message: fmt.Sprintf("failed %q validation", fe.Tag())}
		}
		return fmt.Errorf("config error: %w", err)
	}

	if strings.TrimSpace(c.Query.Keywords) == "" {
		return &Error{Field: "query.keywords", Message: "is required"}
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		return &Error{Field: "store.database_url", Message: "is required for the postgres driver"}
	}

	names := make(map[string]bool)
	for i, src := range c.Sources {
		if src.Type == SourceJSONFile && src.Pattern == "" {
			return &Error{Field: fmt.Sprintf("sources[%d].pattern", i), Message: "is required for jsonfile sources"}
		}
		if src.Name != "" {
			if names[src.Name] {
				return &Error{Field: fmt.Sprintf("sources[%d].name", i), Message: fmt.Sprintf("duplicates %q", src.Name)}
			}
			names[src.Name] = true
		}
	}

	if len(c.EnabledSources()) == 0 {
		return ErrNoSources
	}
	return nil
}

// EnabledSources returns the sources that are not disabled, in file order.
func (c *Config) EnabledSources() []SourceConfig {
	var out []SourceConfig
	for _, src := range c.Sources {
		if !src.Disabled {
			out = append(out, src)
		}
	}
	return out
}

// TimeoutFor returns the acquisition timeout of src.
func (c *Config) TimeoutFor(src SourceConfig) time.Duration {
	if src.Timeout > 0 {
		return src.Timeout.Std()
	}
	return c.SourceTimeout.Std()
}
