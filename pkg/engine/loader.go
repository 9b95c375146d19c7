package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rmax-ai/schemabuilder/pkg/graph"
)

// LoadProfile reads a YAML vocabulary profile. Fields left out fall back to
// the schema.org vocabulary. Relationship keys need no profile entry: any
// "<prefix>:domainIncludes" or "<prefix>:rangeIncludes" key is read as one.
func LoadProfile(path string) (*graph.Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var v graph.Vocabulary
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&v); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}

	v = v.WithDefaults()
	return &v, nil
}
