package registry

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// catalogEntry is the YAML shape for one cataloged setting, grounded on the
// teacher's GeneratorConfig YAML decoding (database.ParseGeneratorConfig):
// a small struct decoded with strict field checking, then translated into
// the domain type.
type catalogEntry struct {
	Name        string   `yaml:"name"`
	Kind        string   `yaml:"kind"`
	ChangeClass string   `yaml:"change_class"`
	Default     string   `yaml:"default"`
	EnumValues  []string `yaml:"enum_values,omitempty"`
	Description string   `yaml:"description,omitempty"`
	Unit        string   `yaml:"unit,omitempty"`
}

type catalogFile struct {
	Settings []catalogEntry `yaml:"settings"`
}

// LoadCatalog reads a YAML catalog file and returns a Memory registry
// seeded with one Setting per entry, each starting from SourceDefault with
// its Default value as both Value and BootDefault.
func LoadCatalog(path string) (*Memory, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %q: %w", path, err)
	}
	return ParseCatalog(buf)
}

// ParseCatalog decodes catalog YAML from memory, for tests and for callers
// that already have the bytes (e.g. embedded catalogs).
func ParseCatalog(buf []byte) (*Memory, error) {
	var doc catalogFile
	dec := yaml.NewDecoder(bytes.NewReader(buf))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	m := NewMemory()
	for _, e := range doc.Settings {
		kind, err := parseKind(e.Kind)
		if err != nil {
			return nil, fmt.Errorf("setting %q: %w", e.Name, err)
		}
		class, err := parseChangeClass(e.ChangeClass)
		if err != nil {
			return nil, fmt.Errorf("setting %q: %w", e.Name, err)
		}
		m.Register(Setting{
			Name:        e.Name,
			Kind:        kind,
			ChangeClass: class,
			Value:       e.Default,
			Source:      SourceDefault,
			ResetSource: SourceDefault,
			BootDefault: e.Default,
			EnumValues:  e.EnumValues,
			Description: e.Description,
			Unit:        e.Unit,
		})
	}
	return m, nil
}

func parseKind(s string) (Kind, error) {
	switch s {
	case "boolean":
		return KindBoolean, nil
	case "integer":
		return KindInteger, nil
	case "real":
		return KindReal, nil
	case "string":
		return KindString, nil
	case "enum":
		return KindEnum, nil
	default:
		return 0, fmt.Errorf("unknown kind %q", s)
	}
}

func parseChangeClass(s string) (ChangeClass, error) {
	switch s {
	case "only_at_boot":
		return OnlyAtBoot, nil
	case "only_by_signal_or_boot":
		return OnlyBySignalOrBoot, nil
	case "runtime_by_any":
		return RuntimeByAny, nil
	default:
		return 0, fmt.Errorf("unknown change_class %q", s)
	}
}
