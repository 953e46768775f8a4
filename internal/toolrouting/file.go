package toolrouting

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk tool routing document.
//
//	servers:
//	  docs:
//	    command: docs-mcp
//	bundles:
//	  docs-read:
//	    server: docs
//	    allow_tools: [search, fetch]
//	routes:
//	  codeReview:
//	    reviewer:
//	      plan: [docs-read]
//	overrides: {}
type File struct {
	Servers   map[string]Server `yaml:"servers"`
	Bundles   map[string]Bundle `yaml:"bundles"`
	Routes    Table             `yaml:"routes"`
	Overrides Table             `yaml:"overrides,omitempty"`
}

// ErrEmptyFile is returned for a routing document with no content.
var ErrEmptyFile = errors.New("tool routing file is empty")

// Parse decodes a routing document.
func Parse(data []byte) (*File, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse tool routing file: %w", err)
	}

	return &f, nil
}

// Load reads and parses the routing document at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tool routing file: %w", err)
	}

	return Parse(data)
}

// Registry builds a validated registry from the document.
func (f *File) Registry() (*Registry, error) {
	return NewRegistry(f.Servers, f.Bundles, NewRouter(f.Routes, f.Overrides))
}

// LoadRegistry is Load followed by Registry.
func LoadRegistry(path string) (*Registry, error) {
	f, err := Load(path)
	if err != nil {
		return nil, err
	}

	return f.Registry()
}
