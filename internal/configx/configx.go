// Package configx holds the file and environment stages shared by the client
// and server configuration loaders.
package configx

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// ReadFile decodes the config file at path into v. Files ending in .yaml or
// .yml are parsed as YAML, everything else as JSON.
func ReadFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, v)
	default:
		err = json.Unmarshal(data, v)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ParseEnv overlays v with values from environment variables declared via
// `env:"..."` struct tags. Unset variables leave fields untouched.
func ParseEnv(v any) error {
	if err := env.Parse(v); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
