package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

//go:embed default.cue
var defaultCUE []byte

// file is the on-disk shape shared by the CUE and YAML formats.
type file struct {
	Sectors []Sector `json:"sectors" yaml:"sectors"`
}

// Load reads a catalog file, choosing the decoder by extension.
func Load(path string) (*Catalog, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return LoadCUE(path)
	case ".yaml", ".yml":
		return LoadYAML(path)
	default:
		return nil, fmt.Errorf("catalog: unsupported file type %q (want .cue, .yaml or .yml)", filepath.Ext(path))
	}
}

// LoadCUE reads a CUE catalog and validates it against the embedded schema.
func LoadCUE(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return ParseCUE(path, data)
}

// ParseCUE compiles CUE source into a Catalog. filename is used in error positions.
func ParseCUE(filename string, data []byte) (*Catalog, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("catalog: compile schema: %s", cueerrors.Details(err, nil))
	}

	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("catalog: compile %s: %s", filename, cueerrors.Details(err, nil))
	}

	unified := schema.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("catalog: validate %s: %s", filename, cueerrors.Details(err, nil))
	}

	var f file
	if err := unified.Decode(&f); err != nil {
		return nil, fmt.Errorf("catalog: decode %s: %s", filename, cueerrors.Details(err, nil))
	}
	return New(f.Sectors)
}

// LoadYAML reads a YAML catalog. Unknown fields are rejected.
func LoadYAML(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return ParseYAML(data)
}

// ParseYAML decodes YAML source into a Catalog.
func ParseYAML(data []byte) (*Catalog, error) {
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("catalog: parse yaml: %w", err)
	}
	return New(f.Sectors)
}

// Default returns the built-in bakery catalog.
func Default() *Catalog {
	c, err := ParseCUE("default.cue", defaultCUE)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded default is invalid: %v", err))
	}
	return c
}
