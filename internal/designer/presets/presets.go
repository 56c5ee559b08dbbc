package presets

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/threadforge/design-backend/internal/pkg/errors"
	"github.com/threadforge/design-backend/internal/pkg/logger"
)

// BaselineDPI is the fixed print resolution every preset is defined at.
const BaselineDPI = 300

// DesignArea is one print-area preset. Immutable for the lifetime of a
// session; switching presets resizes the live scene without disposing it.
type DesignArea struct {
	Name         string  `yaml:"name" json:"name"`
	WidthPx      float64 `yaml:"width_px" json:"width_px"`
	HeightPx     float64 `yaml:"height_px" json:"height_px"`
	Label        string  `yaml:"label" json:"label"`
	PhysicalSize string  `yaml:"physical_size" json:"physical_size"`
	DPI          int     `yaml:"dpi" json:"dpi"`
}

// Table maps preset names to design areas.
type Table struct {
	areas map[string]DesignArea
}

// Default ships the presets the storefront sells today. An external YAML
// table overrides it when PRINT_AREA_PRESETS_PATH is set.
func Default() *Table {
	t := &Table{areas: map[string]DesignArea{}}
	for _, a := range []DesignArea{
		{Name: "letter", WidthPx: 816, HeightPx: 1056, Label: "Letter", PhysicalSize: `8.5" x 11"`, DPI: BaselineDPI},
		{Name: "a4", WidthPx: 827, HeightPx: 1169, Label: "A4", PhysicalSize: "210mm x 297mm", DPI: BaselineDPI},
		{Name: "square", WidthPx: 900, HeightPx: 900, Label: "Square", PhysicalSize: `9" x 9"`, DPI: BaselineDPI},
		{Name: "pocket", WidthPx: 400, HeightPx: 400, Label: "Pocket", PhysicalSize: `4" x 4"`, DPI: BaselineDPI},
		{Name: "back-full", WidthPx: 1200, HeightPx: 1600, Label: "Full Back", PhysicalSize: `12" x 16"`, DPI: BaselineDPI},
	} {
		t.areas[a.Name] = a
	}
	return t
}

type tableFile struct {
	Presets []DesignArea `yaml:"presets"`
}

// LoadFile reads a preset table from YAML.
func LoadFile(path string, log *logger.Logger) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read preset table: %w", err)
	}
	var tf tableFile
	if err := yaml.Unmarshal(raw, &tf); err != nil {
		return nil, fmt.Errorf("parse preset table: %w", err)
	}
	if len(tf.Presets) == 0 {
		return nil, fmt.Errorf("%w: preset table %s is empty", errors.ErrInvalidArgument, path)
	}
	t := &Table{areas: map[string]DesignArea{}}
	for _, a := range tf.Presets {
		if a.Name == "" || a.WidthPx <= 0 || a.HeightPx <= 0 {
			return nil, fmt.Errorf("%w: malformed preset %+v", errors.ErrInvalidArgument, a)
		}
		if a.DPI == 0 {
			a.DPI = BaselineDPI
		}
		t.areas[a.Name] = a
	}
	if log != nil {
		log.Info("Loaded print-area presets", "path", path, "count", len(t.areas))
	}
	return t, nil
}

// Load reads the table at path, falling back to the built-in set when path
// is empty.
func Load(path string, log *logger.Logger) (*Table, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path, log)
}

func (t *Table) Lookup(name string) (DesignArea, error) {
	a, ok := t.areas[name]
	if !ok {
		return DesignArea{}, fmt.Errorf("%w: print-area preset %q", errors.ErrNotFound, name)
	}
	return a, nil
}

// Names lists the preset names in stable order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.areas))
	for n := range t.areas {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// All returns the presets sorted by name.
func (t *Table) All() []DesignArea {
	out := make([]DesignArea, 0, len(t.areas))
	for _, n := range t.Names() {
		out = append(out, t.areas[n])
	}
	return out
}
