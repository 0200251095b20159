// Package mapdef holds the declarative layouts of the maps: which column
// colors the choropleth, the legend, and the tooltip fields with their labels
// and formats.
package mapdef

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Names of the built-in maps.
const (
	Triggers  = "triggers"
	Mortality = "mortality"
)

// Tooltip value formats.
const (
	FormatDecimal2 = "decimal2"
	FormatPlain    = "plain"
)

//go:embed maps.yaml
var defaultMaps []byte

// Field is one tooltip line.
type Field struct {
	Column string `yaml:"column"`
	Label  string `yaml:"label"`
	Format string `yaml:"format"`
	Unit   string `yaml:"unit,omitempty"`
}

// Definition describes one map.
type Definition struct {
	Name        string  `yaml:"name"`
	Title       string  `yaml:"title"`
	KeyColumn   string  `yaml:"key_column"`
	ValueColumn string  `yaml:"value_column"`
	Legend      string  `yaml:"legend"`
	Palette     string  `yaml:"palette"`
	Bins        int     `yaml:"bins"`
	FillOpacity *float64 `yaml:"fill_opacity"` // nil means 0.7; 0 is transparent
	LineOpacity *float64 `yaml:"line_opacity"` // nil means 0.2
	Tooltip     []Field `yaml:"tooltip"`
}

// Set is the collection of map definitions, keyed by name.
type Set map[string]Definition

type document struct {
	Maps []Definition `yaml:"maps"`
}

// Default returns the embedded map definitions.
func Default() (Set, error) {
	return Parse(defaultMaps)
}

// Load reads definitions from path, falling back to the embedded ones when
// path is empty. Maps defined in the file replace the built-in map of the same name.
func Load(path string) (Set, error) {
	set, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return set, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read map definitions: %w", err)
	}
	override, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("map definitions %q: %w", path, err)
	}
	for name, def := range override {
		set[name] = def
	}
	return set, nil
}

// Parse decodes and validates a YAML document of map definitions.
func Parse(data []byte) (Set, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse map definitions: %w", err)
	}

	set := make(Set, len(doc.Maps))
	for i, def := range doc.Maps {
		def = def.withDefaults()
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("map %d: %w", i, err)
		}
		if _, dup := set[def.Name]; dup {
			return nil, fmt.Errorf("map %q defined twice", def.Name)
		}
		set[def.Name] = def
	}
	return set, nil
}

// Get returns the definition called name.
func (s Set) Get(name string) (Definition, error) {
	def, ok := s[name]
	if !ok {
		return Definition{}, fmt.Errorf("map definition %q not found", name)
	}
	return def, nil
}

func (d Definition) withDefaults() Definition {
	if d.KeyColumn == "" {
		d.KeyColumn = "provincia"
	}
	if d.Palette == "" {
		d.Palette = "YlOrRd"
	}
	if d.Bins == 0 {
		d.Bins = 6
	}
	if d.FillOpacity == nil {
		d.FillOpacity = ptr(0.7)
	}
	if d.LineOpacity == nil {
		d.LineOpacity = ptr(0.2)
	}
	for i := range d.Tooltip {
		if d.Tooltip[i].Format == "" {
			d.Tooltip[i].Format = FormatPlain
		}
		if d.Tooltip[i].Label == "" {
			d.Tooltip[i].Label = d.Tooltip[i].Column
		}
	}
	return d
}

func ptr(f float64) *float64 { return &f }

// Validate checks that a definition can be rendered. Defaults must have been
// applied.
func (d Definition) Validate() error {
	if d.Name == "" {
		return errors.New("name is required")
	}
	if d.ValueColumn == "" {
		return fmt.Errorf("map %q: value_column is required", d.Name)
	}
	if d.Bins < 3 || d.Bins > 9 {
		return fmt.Errorf("map %q: bins must be between 3 and 9, got %d", d.Name, d.Bins)
	}
	for _, o := range []*float64{d.FillOpacity, d.LineOpacity} {
		if o == nil || *o < 0 || *o > 1 {
			return fmt.Errorf("map %q: opacities must be within [0, 1]", d.Name)
		}
	}
	for _, f := range d.Tooltip {
		if f.Column == "" {
			return fmt.Errorf("map %q: tooltip field without column", d.Name)
		}
		switch f.Format {
		case FormatDecimal2, FormatPlain:
		default:
			return fmt.Errorf("map %q: tooltip field %q: unknown format %q", d.Name, f.Column, f.Format)
		}
	}
	return nil
}

// Columns returns every data column the definition reads.
func (d Definition) Columns() []string {
	cols := []string{d.KeyColumn, d.ValueColumn}
	for _, f := range d.Tooltip {
		cols = append(cols, f.Column)
	}
	return cols
}
