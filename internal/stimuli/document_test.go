package stimuli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_BareList(t *testing.T) {
	doc, err := Parse([]byte(`[["accordion"],["altoid"],["apple"],["backpack"]]`), FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, DefaultStimulusDir, doc.StimulusDir)
	assert.Equal(t, []string{"accordion", "altoid", "apple", "backpack"}, doc.Names())
	assert.Empty(t, doc.Tracked)
}

func TestParse_ObjectJSON(t *testing.T) {
	data := `{
		"stimulus_dir": "img/",
		"groups": [["accordion", "altoid"], ["apple"]],
		"trial_orders": [["apple", "altoid", "accordion"]],
		"tracked": {"smaller": ["altoid", "apple"], "bigger": ["accordion"]}
	}`
	doc, err := Parse([]byte(data), FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, "img/", doc.StimulusDir)
	assert.Len(t, doc.Groups, 2)
	assert.Equal(t, [][]string{{"apple", "altoid", "accordion"}}, doc.TrialOrders)
	assert.Equal(t, []string{"bigger", "smaller"}, doc.Conditions())

	label, ok := doc.Label("apple")
	assert.True(t, ok)
	assert.Equal(t, "smaller", label)

	_, ok = doc.Label("unknown")
	assert.False(t, ok)
}

func TestParse_YAML(t *testing.T) {
	data := `
groups:
  - [accordion]
  - [altoid]
tracked:
  bigger: [accordion]
  smaller: [altoid]
`
	doc, err := Parse([]byte(data), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, []string{"accordion", "altoid"}, doc.Names())
	assert.Equal(t, []string{"bigger", "smaller"}, doc.Conditions())
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format Format
	}{
		{"not json", `{groups`, FormatJSON},
		{"not yaml", "groups: [unclosed", FormatYAML},
		{"empty list", `[]`, FormatJSON},
		{"empty group", `[[]]`, FormatJSON},
		{"number name", `[[1]]`, FormatJSON},
		{"empty name", `[[""]]`, FormatJSON},
		{"missing groups", `{"stimulus_dir": "x/"}`, FormatJSON},
		{"unknown key", `{"groups": [["a"]], "extra": true}`, FormatJSON},
		{"tracked not list", `{"groups": [["a"]], "tracked": {"smaller": "a"}}`, FormatJSON},
		{"scalar", `"apple"`, FormatJSON},
		{"duplicate label", `{"groups": [["a"]], "tracked": {"smaller": ["a"], "bigger": ["a"]}}`, FormatJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), tt.format)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig), "err = %v", err)
		})
	}
}

func TestParse_UnknownFormat(t *testing.T) {
	_, err := Parse([]byte(`[["a"]]`), Format("toml"))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "stimuli.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`[["apple"]]`), 0o644))
	doc, err := LoadFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"apple"}, doc.Names())

	yamlPath := filepath.Join(dir, "stimuli.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("- [apple, altoid]\n"), 0o644))
	doc, err = LoadFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"apple", "altoid"}, doc.Names())

	_, err = LoadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	doc := Default()
	require.NoError(t, doc.check())
	assert.Len(t, doc.Names(), 4)
	for _, name := range doc.Names() {
		_, ok := doc.Label(name)
		assert.True(t, ok, "%s has no label", name)
	}
}
