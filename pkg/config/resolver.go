package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BoardOverride carries the subset of Stack a board-specific YAML file may
// override. Pointer fields distinguish "not set" from "set to zero".
type BoardOverride struct {
	PairingTableSize *int    `yaml:"pairing_table_size"`
	Channels         []uint8 `yaml:"channels"`
}

// Resolver merges a board-specific override file over the stack defaults,
// mirroring spec.Resolver's role of layering device-specific configuration
// over platform-wide defaults.
type Resolver struct {
	base *Stack
}

// NewResolver creates a resolver seeded with the stack-wide defaults/config.
func NewResolver(base *Stack) *Resolver {
	return &Resolver{base: base}
}

// Resolve reads a board override file (if it exists) and returns a Stack
// with the board's overrides applied on top of the resolver's base.
func (r *Resolver) Resolve(boardOverridePath string) (*Stack, error) {
	merged := *r.base // shallow copy

	if boardOverridePath == "" {
		return &merged, nil
	}

	data, err := os.ReadFile(boardOverridePath)
	if os.IsNotExist(err) {
		return &merged, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading board override %s: %w", boardOverridePath, err)
	}

	var override BoardOverride
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parsing board override %s: %w", boardOverridePath, err)
	}

	if override.PairingTableSize != nil {
		merged.PairingTableSize = *override.PairingTableSize
	}
	if len(override.Channels) > 0 {
		merged.Channels = override.Channels
	}

	return &merged, nil
}
