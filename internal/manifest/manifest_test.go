package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mobiusrecall/internal/evalerr"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadJSON(t *testing.T) {
	path := writeTemp(t, "manifest.json", `{
		"items": [
			{"file_name": "a.png", "width": 100, "height": 200, "page_index": 3},
			{"file_name": "b.png", "width": 50, "height": 50}
		]
	}`)

	m, err := Load(path, FormatJSON)
	require.NoError(t, err)
	require.Len(t, m.Items, 2)

	a := m.Items["a.png"]
	assert.Equal(t, 100, a.Width)
	assert.Equal(t, 200, a.Height)
	assert.Equal(t, float64(3), a.Extra["page_index"])

	b := m.Items["b.png"]
	assert.Empty(t, b.Extra)
}

func TestLoadYAML(t *testing.T) {
	path := writeTemp(t, "manifest.yaml", `
items:
  - file_name: a.png
    width: 100
    height: 200
    size_tier: MID
`)

	m, err := Load(path, FormatYAML)
	require.NoError(t, err)
	require.Len(t, m.Items, 1)
	assert.Equal(t, "MID", m.Items["a.png"].Extra["size_tier"])
}

func TestLoadDefaultsToJSON(t *testing.T) {
	path := writeTemp(t, "manifest.json", `{"items": []}`)
	m, err := Load(path, "")
	require.NoError(t, err)
	assert.Empty(t, m.Items)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"), FormatJSON)
	require.Error(t, err)
	var evalErr *evalerr.Error
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, evalerr.CodeInputMissing, evalErr.Code)
}

func TestLoadMalformedMissingRequiredField(t *testing.T) {
	path := writeTemp(t, "manifest.json", `{"items": [{"file_name": "a.png", "width": 100}]}`)
	_, err := Load(path, FormatJSON)
	require.Error(t, err)
	var evalErr *evalerr.Error
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, evalerr.CodeManifestMalformed, evalErr.Code)
}

func TestLoadMalformedNonPositiveDimension(t *testing.T) {
	path := writeTemp(t, "manifest.json", `{"items": [{"file_name": "a.png", "width": 0, "height": 10}]}`)
	_, err := Load(path, FormatJSON)
	require.Error(t, err)
}

func TestLoadUnsupportedFormat(t *testing.T) {
	path := writeTemp(t, "manifest.toml", `items = []`)
	_, err := Load(path, Format("toml"))
	require.Error(t, err)
	var evalErr *evalerr.Error
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, evalerr.CodeManifestMalformed, evalErr.Code)
}
