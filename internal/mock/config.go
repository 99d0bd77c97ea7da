package mock

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/studiowebux/todoload/internal/seed"
	"gopkg.in/yaml.v3"
)

// LoadConfig loads a server configuration from a file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{Logging: true}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s (use .yaml, .yml, or .json)", ext)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// validateConfig validates the server configuration
func validateConfig(config *Config) error {
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535")
	}
	if config.DelayMs < 0 {
		return fmt.Errorf("delay_ms cannot be negative")
	}
	if config.ListLimit < 0 {
		return fmt.Errorf("list_limit cannot be negative")
	}
	if len(config.Todos) > 0 {
		if err := seed.ValidateRecords(config.Todos); err != nil {
			return err
		}
	}
	return nil
}
