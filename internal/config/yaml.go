package config

import (
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"
)

// MaxFileSize caps config files read by LoadConfig.
var MaxFileSize = 1 << 20

var (
	ErrEmptyData     = errors.New("config data is empty")
	ErrInputTooLarge = errors.New("config data exceeds maximum size")
)

// decodeStrict decodes YAML onto v, rejecting unknown keys.
func decodeStrict(data []byte, v any) error {
	if len(data) == 0 {
		return ErrEmptyData
	}
	if len(data) > MaxFileSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrInputTooLarge, len(data), MaxFileSize)
	}
	return yaml.UnmarshalWithOptions(data, v, yaml.Strict())
}

// Marshal renders cfg as YAML, with the same keys LoadConfig accepts.
func Marshal(cfg *Config) ([]byte, error) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return out, nil
}
