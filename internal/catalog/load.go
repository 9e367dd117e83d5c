package catalog

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type catalogFile struct {
	Version    int                  `yaml:"version"`
	Categories []CategoryDefinition `yaml:"categories"`
}

// Load reads a YAML catalog from path.
func Load(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(b)
}

// Parse decodes a YAML catalog document of the form
//
//	version: 1
//	categories:
//	  - id: Memory
//	    label: 内存
//	    fields:
//	      - key: 容量(GB)
//	        value_type: numeric
//	      - key: 硬件版本
//	        value_type: enum
//	        allowed_values: [A1, A2]
func Parse(b []byte) (*Catalog, error) {
	var cf catalogFile
	if err := yaml.Unmarshal(b, &cf); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if cf.Version != 1 {
		return nil, errors.New("catalog: unsupported version")
	}
	if len(cf.Categories) == 0 {
		return nil, errors.New("catalog: no categories")
	}
	return New(cf.Categories)
}

// Marshal renders c in the format Parse accepts.
func Marshal(c *Catalog) ([]byte, error) {
	return yaml.Marshal(catalogFile{Version: 1, Categories: c.Definitions()})
}
