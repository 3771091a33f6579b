// Package config loads runtime configuration from a config file and
// SUIVIFI_* environment variables.
package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// Config is everything the binaries need to wire themselves up.
type Config struct {
	// AppID namespaces the shared collections in the document store.
	AppID string `mapstructure:"app_id"`
	// ProjectID is the GCP project hosting the store.
	ProjectID string `mapstructure:"project_id"`
	// CredentialsFile optionally points at a service-account key; empty
	// means application-default credentials.
	CredentialsFile string `mapstructure:"credentials_file"`
	// AdminEmails lists the administrator accounts. Admins bypass the
	// permission records entirely.
	AdminEmails []string `mapstructure:"admin_emails"`
}

// Paths are the store collection paths derived from the app id.
type Paths struct {
	Transactions string
	Options      string
	Users        string
	Permissions  string
	Counters     string
}

// Paths derives the collection layout used by every component.
func (c Config) Paths() Paths {
	base := fmt.Sprintf("artifacts/%s/public/data", c.AppID)
	return Paths{
		Transactions: base + "/transactions",
		Options:      base + "/dropdown_options",
		Users:        base + "/users",
		Permissions:  base + "/user_permissions",
		Counters:     base + "/counters",
	}
}

// Load reads configuration from ~/.suivifi.yaml (or the explicit file) with
// environment overrides. A missing config file is fine; defaults and
// environment variables carry the day.
func Load(file string) (Config, error) {
	v := viper.New()
	v.SetDefault("app_id", "fsadev-suivifi")
	v.SetDefault("project_id", "")
	v.SetDefault("credentials_file", "")
	v.SetDefault("admin_emails", []string{})

	v.SetEnvPrefix("SUIVIFI")
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(".suivifi")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}
