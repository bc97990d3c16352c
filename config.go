package pouw

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml"
)

const configFilePermission = 0o644

// Config holds the broker credentials shared between the coordinator
// and workers, provisioned once and read at startup.
type Config struct {
	Coordinator CoordinatorConfig `toml:"coordinator"`
	Worker      WorkerConfig      `toml:"worker"`
}

type CoordinatorConfig struct {
	ClientID  string `toml:"client_id"`
	ClientKey string `toml:"client_key"`
	ChannelID string `toml:"channel_id"`
}

type WorkerConfig struct {
	ClientID  string `toml:"client_id"`
	ClientKey string `toml:"client_key"`
	ChannelID string `toml:"channel_id"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	tree, err := toml.Load(string(data))
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	var cfg Config
	if err := tree.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, configFilePermission); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}
