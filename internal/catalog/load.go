package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/keithlinneman/jslearn-web/internal/xerrors"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

type document struct {
	Version string   `yaml:"version"`
	Modules []Module `yaml:"modules"`
}

// Parse decodes a YAML catalog and validates it. Unknown keys are rejected
// so a typo in a field name fails at startup instead of dropping data.
func Parse(data []byte) (*Registry, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidCatalog)
		}
		return nil, fmt.Errorf("%w: decode yaml: %w", ErrInvalidCatalog, err)
	}
	return New(doc.Version, doc.Modules)
}

// Default returns the registry built from the embedded catalog.yaml.
func Default() (*Registry, error) {
	r, err := Parse(embeddedCatalog)
	if err != nil {
		return nil, xerrors.Wrap(err, "embedded catalog")
	}
	return r, nil
}

// LoadFile reads and parses a catalog file from disk.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Wrapf(err, "read catalog %s", path)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, xerrors.Wrapf(err, "catalog %s", path)
	}
	return r, nil
}
