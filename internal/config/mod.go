// Package config loads the configuration of a node.
//
// The configuration is read from the config.yaml file of the configuration
// folder, if it exists, and each field can then be overridden by an
// environment variable prefixed with EZYVOTE_, for instance EZYVOTE_OWNER.
package config

import (
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"go.ezyvote.org/ezyvote/core/access/wallet"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

// FileName is the name of the configuration file inside the folder.
const FileName = "config.yaml"

// EnvPrefix is the prefix of the environment variables.
const EnvPrefix = "EZYVOTE"

const (
	defaultDatabase    = "ezyvote.db"
	defaultHTTPAddr    = "127.0.0.1:8080"
	defaultEventBuffer = 100
)

// Config is the configuration of a node.
type Config struct {
	// Owner is the wallet address granted the administrative rights when the
	// ledger is created.
	Owner string `yaml:"owner" envconfig:"OWNER"`

	// Database is the file name of the database inside the config folder.
	Database string `yaml:"database" envconfig:"DATABASE"`

	HTTPAddr string `yaml:"httpAddr" envconfig:"HTTP_ADDR"`

	// EventBuffer is the size of the channel of each watcher.
	EventBuffer int `yaml:"eventBuffer" envconfig:"EVENT_BUFFER"`
}

// Default returns the configuration with the default values.
func Default() Config {
	return Config{
		Database:    defaultDatabase,
		HTTPAddr:    defaultHTTPAddr,
		EventBuffer: defaultEventBuffer,
	}
}

// Load reads the configuration of the folder and applies the environment
// overrides. A missing file is not an error.
func Load(dir string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return cfg, xerrors.Errorf("failed to read config: %v", err)
	default:
		err = yaml.UnmarshalStrict(data, &cfg)
		if err != nil {
			return cfg, xerrors.Errorf("failed to parse config: %v", err)
		}
	}

	err = envconfig.Process(EnvPrefix, &cfg)
	if err != nil {
		return cfg, xerrors.Errorf("failed to read environment: %v", err)
	}

	err = cfg.Validate()
	if err != nil {
		return cfg, xerrors.Errorf("invalid config: %v", err)
	}

	return cfg, nil
}

// Validate returns an error if a field has an invalid value. The owner
// address is normalized.
func (cfg *Config) Validate() error {
	if cfg.Owner != "" {
		owner, err := wallet.Normalize(cfg.Owner)
		if err != nil {
			return xerrors.Errorf("owner: %v", err)
		}

		cfg.Owner = owner
	}

	if cfg.Database == "" {
		return xerrors.New("database is empty")
	}

	if cfg.EventBuffer < 0 {
		return xerrors.Errorf("event buffer must be positive: %d", cfg.EventBuffer)
	}

	return nil
}

// Save writes the configuration to the folder.
func (cfg Config) Save(dir string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return xerrors.Errorf("failed to marshal config: %v", err)
	}

	err = os.WriteFile(filepath.Join(dir, FileName), data, 0600)
	if err != nil {
		return xerrors.Errorf("failed to write config: %v", err)
	}

	return nil
}
