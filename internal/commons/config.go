package commons

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"absstitch/internal/config"
)

// LoadConfig reads a yaml config file. Values absent from the file keep
// their zero value; cmd/server falls back to config.Load for env-based
// configuration when no file is given.
func LoadConfig(path string) (*config.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return &cfg, nil
}
