// Package catalog loads the court stations and document types offered on the filing form.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"github.com/efiling-portal/backend/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Default returns the built-in catalog.
func Default() *models.Catalog {
	c, err := Parse(bytes.NewReader(defaultCatalog))
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}

// Load reads a catalog YAML file. An empty path yields the built-in catalog.
func Load(path string) (*models.Catalog, error) {
	if path == "" {
		return Default(), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse decodes a catalog from r and checks it is usable.
func Parse(r io.Reader) (*models.Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var c models.Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	if err := validate(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func validate(c *models.Catalog) error {
	if len(c.Courts) == 0 {
		return fmt.Errorf("catalog has no courts")
	}
	if len(c.DocumentTypes) == 0 {
		return fmt.Errorf("catalog has no document types")
	}
	for name, opts := range map[string][]models.Option{"court": c.Courts, "document type": c.DocumentTypes} {
		seen := make(map[string]bool, len(opts))
		for _, o := range opts {
			if o.Value == "" {
				return fmt.Errorf("%s with label %q has no value", name, o.Label)
			}
			if seen[o.Value] {
				return fmt.Errorf("duplicate %s %q", name, o.Value)
			}
			seen[o.Value] = true
		}
	}
	return nil
}
