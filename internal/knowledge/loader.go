package knowledge

import (
	"bytes"
	"context"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/peptide-safety-engine/internal/domain"
)

//go:embed data/catalog.yaml
var defaultCatalogYAML []byte

// Document is the on-disk shape of a catalog.
type Document struct {
	Version     string                 `yaml:"version" json:"version"`
	DrugClasses map[string][]string    `yaml:"drug_classes" json:"drug_classes"`
	Compounds   []domain.CompoundEntry `yaml:"compounds" json:"compounds"`
}

// Loader produces a catalog from some source.
type Loader func(ctx context.Context) (*Catalog, error)

// LoadYAML parses a catalog document. Unknown keys are rejected so that a
// misspelled field cannot silently drop safety data.
func LoadYAML(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	return NewCatalog(doc.Version, doc.Compounds, doc.DrugClasses)
}

// LoadFile parses the catalog document at path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()

	c, err := LoadYAML(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return c, nil
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return LoadYAML(bytes.NewReader(defaultCatalogYAML))
}

// FileLoader returns a Loader reading path on every call.
func FileLoader(path string) Loader {
	return func(ctx context.Context) (*Catalog, error) {
		return LoadFile(path)
	}
}

// ToDocument converts a catalog back into its document form.
func ToDocument(c *Catalog) Document {
	return Document{
		Version:     c.Version(),
		DrugClasses: c.DrugClasses(),
		Compounds:   c.Entries(),
	}
}

// WriteYAML serializes a catalog as a YAML document.
func WriteYAML(w io.Writer, c *Catalog) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(ToDocument(c)); err != nil {
		return fmt.Errorf("encoding catalog: %w", err)
	}
	return enc.Close()
}

// Fingerprint hashes the YAML form of a catalog, version included, so two
// catalogs with equal fingerprints carry the same safety data.
func Fingerprint(c *Catalog) (string, error) {
	var buf bytes.Buffer
	if err := WriteYAML(&buf, c); err != nil {
		return "", err
	}
	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:]), nil
}
