// Package manifest reads the upstream extraction manifest describing
// every candidate image: page index, bounding box, source type, quality
// metrics. The evaluator reads this file read-only and never writes it
// (spec.md §3).
package manifest

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"mobiusrecall/internal/evalerr"
)

// Record is one candidate's manifest entry. FileName, Width, and Height
// are required by spec.md §6; every other field is passed through
// verbatim for diagnostic output.
type Record struct {
	FileName string         `json:"file_name" yaml:"file_name"`
	Width    int            `json:"width" yaml:"width"`
	Height   int            `json:"height" yaml:"height"`
	Extra    map[string]any `json:"-" yaml:"-"`
}

// Manifest is the parsed, read-only mapping from candidate filename to
// its metadata.
type Manifest struct {
	Items map[string]Record
}

// Format selects which encoding to parse. JSON is the only encoding
// accepted by default (spec.md §6); YAML is available for upstream
// tooling that emits it, gated behind an explicit flag so the default
// path still rejects anything but JSON.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Load reads and parses the manifest file at path in the given format.
func Load(path string, format Format) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, evalerr.InputMissing(path, "manifest not found")
		}
		return nil, evalerr.InputMissing(path, fmt.Sprintf("cannot read manifest: %s", err))
	}

	switch format {
	case FormatYAML:
		return parseYAML(path, data)
	case FormatJSON, "":
		return parseJSON(path, data)
	default:
		return nil, evalerr.ManifestMalformed(path, fmt.Sprintf("unsupported manifest format %q", format))
	}
}

func parseJSON(path string, data []byte) (*Manifest, error) {
	var raw struct {
		Items []map[string]any `json:"items"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, evalerr.ManifestMalformed(path, fmt.Sprintf("invalid JSON: %s", err))
	}
	return build(path, raw.Items)
}

func parseYAML(path string, data []byte) (*Manifest, error) {
	var raw struct {
		Items []map[string]any `yaml:"items"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, evalerr.ManifestMalformed(path, fmt.Sprintf("invalid YAML: %s", err))
	}
	return build(path, raw.Items)
}

func build(path string, rawItems []map[string]any) (*Manifest, error) {
	m := &Manifest{Items: make(map[string]Record, len(rawItems))}
	for i, item := range rawItems {
		fileName, ok := item["file_name"].(string)
		if !ok || fileName == "" {
			return nil, evalerr.ManifestMalformed(path, fmt.Sprintf("item %d: missing or invalid file_name", i))
		}
		width, err := requirePositiveInt(item, "width")
		if err != nil {
			return nil, evalerr.ManifestMalformed(path, fmt.Sprintf("item %d (%s): %s", i, fileName, err))
		}
		height, err := requirePositiveInt(item, "height")
		if err != nil {
			return nil, evalerr.ManifestMalformed(path, fmt.Sprintf("item %d (%s): %s", i, fileName, err))
		}

		extra := make(map[string]any, len(item))
		for k, v := range item {
			if k == "file_name" || k == "width" || k == "height" {
				continue
			}
			extra[k] = v
		}

		m.Items[fileName] = Record{FileName: fileName, Width: width, Height: height, Extra: extra}
	}
	return m, nil
}

func requirePositiveInt(item map[string]any, key string) (int, error) {
	raw, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("missing %q", key)
	}
	var value int
	switch v := raw.(type) {
	case float64:
		value = int(v)
	case int:
		value = v
	default:
		return 0, fmt.Errorf("%q must be a number", key)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%q must be positive, got %d", key, value)
	}
	return value, nil
}
