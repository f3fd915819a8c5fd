// Package config loads tallysync configuration from a YAML file, with
// environment variable overrides under the TALLYSYNC_ prefix.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ledgerbridge/tallysync/internal/tags"
)

// Config is the full runtime configuration.
type Config struct {
	Tally   TallyConfig   `mapstructure:"tally"`
	Store   StoreConfig   `mapstructure:"store"`
	Company CompanyConfig `mapstructure:"company"`
	Sync    SyncConfig    `mapstructure:"sync"`
	Dates   DatesConfig   `mapstructure:"dates"`
	Tags    TagsConfig    `mapstructure:"tags"`
	Spool   SpoolConfig   `mapstructure:"spool"`
}

// TallyConfig locates the export server.
type TallyConfig struct {
	URL            string `mapstructure:"url"`
	CompanyName    string `mapstructure:"company_name"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Timeout returns the request timeout as a duration.
func (t TallyConfig) Timeout() time.Duration {
	return time.Duration(t.TimeoutSeconds) * time.Second
}

// StoreConfig selects and locates the target database.
type StoreConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `mapstructure:"driver"`
	// Path is the database file for sqlite.
	Path string `mapstructure:"path"`
	// DSN is the connection string for postgres.
	DSN string `mapstructure:"dsn"`
}

// Source returns the driver-appropriate data source string.
func (s StoreConfig) Source() string {
	if s.Driver == "postgres" {
		return s.DSN
	}
	return s.Path
}

// CompanyConfig carries the tenant identifiers stamped on every row.
type CompanyConfig struct {
	ID         string `mapstructure:"id"`
	DivisionID string `mapstructure:"division_id"`
}

// SyncConfig tunes the sync engine.
type SyncConfig struct {
	// Workers bounds within-tier parallelism.
	Workers int `mapstructure:"workers"`
}

// DatesConfig tunes date normalization.
type DatesConfig struct {
	// PivotYear splits two-digit years between 19xx and 20xx.
	PivotYear int `mapstructure:"pivot_year"`
}

// TagsConfig points at an optional tag map override file.
type TagsConfig struct {
	File string `mapstructure:"file"`
}

// SpoolConfig locates the export drop directory for watch mode.
type SpoolConfig struct {
	Dir string `mapstructure:"dir"`
}

// Load reads configuration from path (optional; "" skips the file) and the
// environment, on top of defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("tally.url", "http://localhost:9000")
	v.SetDefault("tally.company_name", "")
	v.SetDefault("tally.timeout_seconds", 60)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "tallysync.db")
	v.SetDefault("store.dsn", "")
	v.SetDefault("company.id", "")
	v.SetDefault("company.division_id", "")
	v.SetDefault("sync.workers", 4)
	v.SetDefault("dates.pivot_year", 50)
	v.SetDefault("tags.file", "")
	v.SetDefault("spool.dir", "spool")

	v.SetEnvPrefix("TALLYSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown store.driver %q (want sqlite or postgres)", c.Store.Driver)
	}
	if c.Sync.Workers < 1 {
		return fmt.Errorf("sync.workers must be at least 1, got %d", c.Sync.Workers)
	}
	if c.Dates.PivotYear < 0 || c.Dates.PivotYear > 99 {
		return fmt.Errorf("dates.pivot_year must be in [0, 99], got %d", c.Dates.PivotYear)
	}
	return nil
}

// TagMap returns the configured tag map: the override file if tags.file is
// set, the stock map otherwise. Override files replace whole namespaces;
// a namespace absent from the file keeps its default.
func (c *Config) TagMap() (tags.Map, error) {
	m := tags.Default()
	if c.Tags.File == "" {
		return m, nil
	}
	raw, err := os.ReadFile(c.Tags.File)
	if err != nil {
		return m, fmt.Errorf("failed to read tag map %s: %w", c.Tags.File, err)
	}
	var override struct {
		Voucher   *tags.Namespace `yaml:"voucher"`
		Ledger    *tags.Namespace `yaml:"ledger"`
		Inventory *tags.Namespace `yaml:"inventory"`
		Master    *tags.Namespace `yaml:"master"`
	}
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return m, fmt.Errorf("failed to parse tag map %s: %w", c.Tags.File, err)
	}
	if override.Voucher != nil {
		m.Voucher = *override.Voucher
	}
	if override.Ledger != nil {
		m.Ledger = *override.Ledger
	}
	if override.Inventory != nil {
		m.Inventory = *override.Inventory
	}
	if override.Master != nil {
		m.Master = *override.Master
	}
	return m, nil
}
