package stimuli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned for stimulus documents that fail validation.
var ErrInvalidConfig = errors.New("stimuli: invalid configuration")

// DefaultStimulusDir is the asset directory prefix used when a document sets none.
const DefaultStimulusDir = "stim/"

// Format selects the document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Document is the stimulus configuration consumed at startup.
type Document struct {
	StimulusDir string `json:"stimulus_dir,omitempty" yaml:"stimulus_dir,omitempty"`

	// Groups are stimulus-set groupings; each inner list holds stimulus names.
	Groups [][]string `json:"groups" yaml:"groups"`

	// TrialOrders are fixed alternative orders for single-image trials.
	TrialOrders [][]string `json:"trial_orders,omitempty" yaml:"trial_orders,omitempty"`

	// Tracked maps a condition label ("smaller", "bigger") to the stimulus
	// names scored under it.
	Tracked map[string][]string `json:"tracked,omitempty" yaml:"tracked,omitempty"`
}

// Default returns the built-in document: four objects, two fixed orders,
// and two tracked size conditions.
func Default() *Document {
	return &Document{
		StimulusDir: DefaultStimulusDir,
		Groups:      [][]string{{"accordion"}, {"altoid"}, {"apple"}, {"backpack"}},
		TrialOrders: [][]string{
			{"accordion", "altoid", "apple", "backpack"},
			{"backpack", "apple", "altoid", "accordion"},
		},
		Tracked: map[string][]string{
			"smaller": {"altoid", "apple"},
			"bigger":  {"accordion", "backpack"},
		},
	}
}

// LoadFile reads a document, picking the format from the file extension.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stimuli file: %w", err)
	}
	format := FormatJSON
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = FormatYAML
	}
	doc, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes and validates a document. Both forms are accepted: a bare
// nested list of groups, or an object with a "groups" key.
func Parse(data []byte, format Format) (*Document, error) {
	var raw any
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	case FormatYAML:
		var y any
		if err := yaml.Unmarshal(data, &y); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		// Round-trip through JSON so the validator sees JSON-shaped values.
		b, err := json.Marshal(y)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		if err := json.Unmarshal(b, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	default:
		return nil, fmt.Errorf("unknown stimuli format %q", format)
	}

	if err := validate(raw); err != nil {
		return nil, err
	}

	b, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	doc := &Document{}
	if _, isList := raw.([]any); isList {
		if err := json.Unmarshal(b, &doc.Groups); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	} else if err := json.Unmarshal(b, doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if doc.StimulusDir == "" {
		doc.StimulusDir = DefaultStimulusDir
	}
	if err := doc.check(); err != nil {
		return nil, err
	}
	return doc, nil
}

// check enforces the rules the schema cannot express.
func (d *Document) check() error {
	labelOf := make(map[string]string)
	for label, names := range d.Tracked {
		for _, n := range names {
			if prev, ok := labelOf[n]; ok && prev != label {
				return fmt.Errorf("%w: %q tracked as both %q and %q", ErrInvalidConfig, n, prev, label)
			}
			labelOf[n] = label
		}
	}
	return nil
}

// Names returns every stimulus name in group order.
func (d *Document) Names() []string {
	var names []string
	for _, g := range d.Groups {
		names = append(names, g...)
	}
	return names
}

// Label returns the tracked condition of a stimulus name.
func (d *Document) Label(name string) (string, bool) {
	for label, names := range d.Tracked {
		for _, n := range names {
			if n == name {
				return label, true
			}
		}
	}
	return "", false
}

// Conditions returns the tracked condition labels.
func (d *Document) Conditions() []string {
	labels := make([]string, 0, len(d.Tracked))
	for l := range d.Tracked {
		labels = append(labels, l)
	}
	return sortedStrings(labels)
}
