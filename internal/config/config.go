// Package config loads CLI configuration.
// Settings are layered with viper: built-in defaults, then an optional YAML file in
// the XDG config dir, then ASANA2SQL_* environment variables, then command-line flags.
// Secrets may live here too, but the CLI falls back to the OS keychain for them.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"asana2sql/cli/internal/xdg"

	"github.com/spf13/viper"
)

// DefaultBaseURL is the public Asana API root.
const DefaultBaseURL = "https://app.asana.com/api/1.0"

// EnvPrefix prefixes every environment variable the CLI reads.
const EnvPrefix = "ASANA2SQL"

// Config holds every CLI setting.
type Config struct {
	ProjectID string       `mapstructure:"project_id"`
	TableName string       `mapstructure:"table_name"`
	DumpPerf  bool         `mapstructure:"dump_perf"`
	Tables    TablesConfig `mapstructure:"tables"`
	Asana     AsanaConfig  `mapstructure:"asana"`
	DB        DBConfig     `mapstructure:"db"`
	Log       LogConfig    `mapstructure:"log"`
}

// TablesConfig names the auxiliary workspace tables. An empty name disables the table.
type TablesConfig struct {
	Projects              string `mapstructure:"projects"`
	ProjectMemberships    string `mapstructure:"project_memberships"`
	Users                 string `mapstructure:"users"`
	Followers             string `mapstructure:"followers"`
	CustomFields          string `mapstructure:"custom_fields"`
	CustomFieldEnumValues string `mapstructure:"custom_field_enum_values"`
	CustomFieldValues     string `mapstructure:"custom_field_values"`
}

// AsanaConfig holds API client settings.
type AsanaConfig struct {
	AccessToken string        `mapstructure:"access_token"`
	BaseURL     string        `mapstructure:"base_url"`
	NoVerify    bool          `mapstructure:"no_verify"`
	DumpAPI     bool          `mapstructure:"dump_api"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// DBConfig holds database settings.
type DBConfig struct {
	DSN     string `mapstructure:"dsn"`
	DumpSQL bool   `mapstructure:"dump_sql"`
	Dry     bool   `mapstructure:"dry"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// SetDefaults registers every key with its default so environment variables
// are picked up by Unmarshal even when no file or flag mentions the key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("project_id", "")
	v.SetDefault("table_name", "")
	v.SetDefault("dump_perf", false)
	for _, k := range []string{
		"projects", "project_memberships", "users", "followers",
		"custom_fields", "custom_field_enum_values", "custom_field_values",
	} {
		v.SetDefault("tables."+k, "")
	}
	v.SetDefault("asana.access_token", "")
	v.SetDefault("asana.base_url", DefaultBaseURL)
	v.SetDefault("asana.no_verify", false)
	v.SetDefault("asana.dump_api", false)
	v.SetDefault("asana.timeout", 30*time.Second)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.dump_sql", false)
	v.SetDefault("db.dry", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

// Load reads configuration into a Config. When file is empty the default
// config.yaml in the XDG config dir is used if it exists; a missing default file
// yields defaults, while a missing explicit file is an error.
func Load(v *viper.Viper, file string) (Config, error) {
	var c Config

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file == "" {
		dir, err := xdg.ConfigDir()
		if err == nil {
			candidate := filepath.Join(dir, "config.yaml")
			if _, statErr := os.Stat(candidate); statErr == nil {
				file = candidate
			}
		}
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return c, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decode config: %w", err)
	}
	c.ProjectID = strings.TrimSpace(c.ProjectID)
	c.Asana.BaseURL = strings.TrimRight(strings.TrimSpace(c.Asana.BaseURL), "/")
	return c, nil
}

// ErrProjectIDRequired is returned when a table command runs without a project id.
var ErrProjectIDRequired = errors.New("project id is required (--project-id or ASANA2SQL_PROJECT_ID)")

// ValidateProject checks the settings needed by create/export/synchronize.
func (c Config) ValidateProject() error {
	if c.ProjectID == "" {
		return ErrProjectIDRequired
	}
	for _, r := range c.ProjectID {
		if r < '0' || r > '9' {
			return fmt.Errorf("project id %q must be a numeric Asana gid", c.ProjectID)
		}
	}
	if c.Asana.BaseURL == "" {
		return errors.New("asana base url must not be empty")
	}
	return nil
}
