package config

import (
	"fmt"
	"io"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is the startup configuration for the typesense-mcp server.
// Values are layered: defaults, then an optional YAML file, then
// environment variables.
type Config struct {
	// Addr is the listen address for all transports
	Addr string `yaml:"addr" env:"ADDR"`

	Typesense Typesense `yaml:"typesense"`
}

// Typesense holds the initial search adapter settings
type Typesense struct {
	Host        string   `yaml:"host" env:"TYPESENSE_HOST"`
	Protocol    string   `yaml:"protocol" env:"TYPESENSE_PROTOCOL"`
	Port        int      `yaml:"port" env:"TYPESENSE_PORT"`
	APIKey      string   `yaml:"apiKey" env:"TYPESENSE_API_KEY"`
	Collection  string   `yaml:"collection" env:"TYPESENSE_COLLECTION"`
	QueryFields []string `yaml:"queryFields" env:"TYPESENSE_QUERY_FIELDS" envSeparator:","`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Addr: ":8080",
		Typesense: Typesense{
			Protocol:   "https",
			Port:       443,
			Collection: "products",
		},
	}
}

// LoadFile loads configuration from an optional YAML file and the
// environment. A missing file is not an error; the environment always
// applies last.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		switch {
		case os.IsNotExist(err):
			// fall through to env
		case err != nil:
			return nil, fmt.Errorf("error opening config file: %w", err)
		default:
			defer f.Close()
			cfg, err = Load(f)
			if err != nil {
				return nil, err
			}
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("error parsing environment: %w", err)
	}

	return cfg, nil
}

// Load loads configuration from an io.Reader of YAML data
func Load(r io.Reader) (*Config, error) {
	cfg := Default()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading config data: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config YAML: %w", err)
	}

	return cfg, nil
}
