// Package schema loads policy form schemas from TOML or YAML files.
package schema

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/alfredjeanlab/policyconf/internal/model"
)

//go:embed default.toml
var defaultTOML []byte

// Format is a schema file encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatFor returns the format implied by the file extension of path.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: unsupported schema file %q (want .toml, .yaml or .yml)", model.ErrInvalidInput, path)
	}
}

// Load reads and validates the schema at path.
func Load(path string) (*model.Schema, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	s, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates a schema. Unknown keys are rejected.
func Parse(data []byte, format Format) (*model.Schema, error) {
	var s model.Schema
	switch format {
	case FormatTOML:
		md, err := toml.Decode(string(data), &s)
		if err != nil {
			return nil, fmt.Errorf("%w: decode toml: %v", model.ErrInvalidInput, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			sort.Strings(keys)
			return nil, fmt.Errorf("%w: unknown keys: %s", model.ErrInvalidInput, strings.Join(keys, ", "))
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: decode yaml: %v", model.ErrInvalidInput, err)
		}
	default:
		return nil, fmt.Errorf("%w: unknown schema format %q", model.ErrInvalidInput, format)
	}

	if len(s.Fields) == 0 {
		return nil, fmt.Errorf("%w: schema has no fields", model.ErrInvalidInput)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrInvalidInput, err)
	}
	return &s, nil
}

// Default returns the built-in schema.
func Default() *model.Schema {
	s, err := Parse(defaultTOML, FormatTOML)
	if err != nil {
		panic(fmt.Sprintf("built-in schema is invalid: %v", err))
	}
	return s
}

// LoadOrDefault loads path, or returns the built-in schema when path is empty.
func LoadOrDefault(path string) (*model.Schema, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}
