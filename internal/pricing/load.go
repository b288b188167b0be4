package pricing

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load parses a YAML pricing table and validates it.
func Load(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse pricing table: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadFile reads a YAML pricing table from disk.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read pricing table %s: %w", path, err)
	}
	t, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("pricing table %s: %w", path, err)
	}
	return t, nil
}

// Resolve returns the table at path, or the built-in default when path is empty.
func Resolve(path string) (*Table, error) {
	if path == "" {
		return Quebec2025(), nil
	}
	return LoadFile(path)
}

// Marshal renders a table as YAML, e.g. to seed an override file.
func Marshal(t *Table) ([]byte, error) {
	data, err := yaml.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to render pricing table: %w", err)
	}
	return data, nil
}
