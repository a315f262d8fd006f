// Package loader reads declarative rule-set documents from disk and
// decodes them into the untyped tree the validator consumes.
package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileLoader loads a single document from a fixed file path. The encoding
// is chosen by extension: .json via encoding/json, .yaml/.yml via yaml.v3.
// Both decoders produce map[string]any / []any trees, so downstream code
// is encoding-agnostic.
type FileLoader struct {
	path string
}

func NewFileLoader(path string) *FileLoader {
	return &FileLoader{path: path}
}

// Path returns the document path the loader reads from.
func (l *FileLoader) Path() string {
	return l.path
}

// Load reads and decodes the document. Any failure (missing file,
// unreadable bytes, unknown extension, malformed syntax) is a load error;
// schema problems are left to the validator.
func (l *FileLoader) Load(_ context.Context) (any, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read document %q: %w", l.path, err)
	}

	ext := strings.ToLower(filepath.Ext(l.path))
	switch ext {
	case ".json":
		var document any
		if err := json.Unmarshal(data, &document); err != nil {
			return nil, fmt.Errorf("parse JSON document %q: %w", l.path, err)
		}
		return document, nil
	case ".yaml", ".yml":
		var document any
		if err := yaml.Unmarshal(data, &document); err != nil {
			return nil, fmt.Errorf("parse YAML document %q: %w", l.path, err)
		}
		return document, nil
	default:
		return nil, fmt.Errorf("unsupported document extension %q", ext)
	}
}
