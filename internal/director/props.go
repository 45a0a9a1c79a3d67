// Package director reads and writes the YAML documents that drive renders:
// a props document pins one composition to its input, a render plan lists
// several jobs.
package director

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/acoeffic/readon/internal/compositions"
)

const Version = "1.0"

var ErrNoComposition = errors.New("director: document names no composition")

// PropsDocument is one composition and its input.
type PropsDocument struct {
	Version     string    `yaml:"version"`
	Composition string    `yaml:"composition"`
	Props       yaml.Node `yaml:"props,omitempty"`
}

// NewPropsDocument encodes props for the composition id.
func NewPropsDocument(id string, props any) (*PropsDocument, error) {
	doc := &PropsDocument{Version: Version, Composition: id}
	if props != nil {
		if err := doc.Props.Encode(props); err != nil {
			return nil, fmt.Errorf("encode props: %w", err)
		}
	}
	return doc, nil
}

// WriteProps writes doc to a YAML file.
func WriteProps(doc *PropsDocument, path string) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadProps reads a props document from a YAML file.
func ReadProps(path string) (*PropsDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc PropsDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &doc, nil
}

// DecodeProps resolves the composition and decodes the typed input. Empty
// props fall back to the composition's sample data.
func DecodeProps(doc *PropsDocument) (compositions.Composition, any, error) {
	if doc == nil || doc.Composition == "" {
		return compositions.Composition{}, nil, ErrNoComposition
	}
	return decodeNode(doc.Composition, &doc.Props)
}

func decodeNode(id string, node *yaml.Node) (compositions.Composition, any, error) {
	c, err := compositions.Lookup(id)
	if err != nil {
		return compositions.Composition{}, nil, err
	}
	if node == nil || node.Kind == 0 {
		return c, c.DefaultProps(), nil
	}
	props := c.NewProps()
	if err := node.Decode(props); err != nil {
		return c, nil, fmt.Errorf("decode %s props: %w", id, err)
	}
	return c, props, nil
}

// DecodeJSONProps decodes app-side JSON props for the composition id.
// Empty data falls back to the sample data.
func DecodeJSONProps(id string, data []byte) (compositions.Composition, any, error) {
	c, err := compositions.Lookup(id)
	if err != nil {
		return compositions.Composition{}, nil, err
	}
	if len(data) == 0 {
		return c, c.DefaultProps(), nil
	}
	props := c.NewProps()
	if err := json.Unmarshal(data, props); err != nil {
		return c, nil, fmt.Errorf("decode %s props: %w", id, err)
	}
	return c, props, nil
}
