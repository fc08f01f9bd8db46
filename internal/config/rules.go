package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadRules reads a YAML rules file and overlays it on base. Keys absent from
// the file keep the value from base.
func LoadRules(path string, base RulesConfig) (RulesConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read rules file: %w", err)
	}

	rules := base
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&rules); err != nil && !errors.Is(err, io.EOF) {
		return base, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	return rules, nil
}
