// Package document decodes and encodes the structured configuration files that
// canonsync merges. The format is chosen from the file extension; every
// document must have an object (map) at the top level.
package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Format identifies a serialization format.
type Format string

const (
	// FormatJSON is used for .json files and any unrecognized extension.
	FormatJSON Format = "json"
	// FormatYAML is used for .yaml and .yml files.
	FormatYAML Format = "yaml"
	// FormatTOML is used for .toml files.
	FormatTOML Format = "toml"
)

// ErrMalformed is returned when content cannot be parsed as an object.
var ErrMalformed = errors.New("malformed document")

// Object is a decoded top-level document.
type Object = map[string]any

// FormatFor returns the format implied by path's extension.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return FormatJSON
	}
}

// Decode parses data as an object in the given format.
func Decode(format Format, data []byte) (Object, error) {
	obj := Object{}

	switch format {
	case FormatYAML:
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if raw == nil {
			return obj, nil
		}
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: top level is %T, not a mapping", ErrMalformed, raw)
		}
		return m, nil
	case FormatTOML:
		if _, err := toml.Decode(string(data), &obj); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return obj, nil
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: unexpected data after the top-level value", ErrMalformed)
		}
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: top level is %T, not an object", ErrMalformed, raw)
		}
		return m, nil
	}
}

// Encode serializes obj in the given format. Keys are written in sorted order
// and the output ends with a newline, so equal objects encode to equal bytes.
func Encode(format Format, obj Object) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(obj); err != nil {
			return nil, fmt.Errorf("failed to encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("failed to encode yaml: %w", err)
		}
	case FormatTOML:
		if err := toml.NewEncoder(&buf).Encode(obj); err != nil {
			return nil, fmt.Errorf("failed to encode toml: %w", err)
		}
	default:
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(obj); err != nil {
			return nil, fmt.Errorf("failed to encode json: %w", err)
		}
	}

	return buf.Bytes(), nil
}

// Read loads and decodes the document at path using its extension's format.
// A missing file returns exists=false and no error.
func Read(fsys afero.Fs, path string) (obj Object, exists bool, err error) {
	data, err := afero.ReadFile(fsys, path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %q: %w", path, err)
	}

	obj, err = Decode(FormatFor(path), data)
	if err != nil {
		return nil, true, fmt.Errorf("%q: %w", path, err)
	}
	return obj, true, nil
}

// Clone returns a shallow copy of obj.
func Clone(obj Object) Object {
	out := make(Object, len(obj))
	for k, v := range obj {
		out[k] = v
	}
	return out
}
