package registry

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/confreload/confreload/util"
)

// Memory is an in-memory Registry implementation. It plays the role the
// teacher's per-backend adapter.Database implementations play for DDL
// diffing: a concrete collaborator the engine can be exercised against,
// standing in for the real process-wide GUC table.
type Memory struct {
	settings map[string]*Setting
}

// NewMemory returns an empty registry. Use LoadCatalog to seed it from a
// YAML catalog file.
func NewMemory() *Memory {
	return &Memory{settings: make(map[string]*Setting)}
}

// Register adds s to the registry, keyed case-insensitively. An empty
// BootDefault is taken from Value, and an empty ResetValue with ResetSource
// left at SourceDefault is taken from BootDefault. ResetSource is never
// derived from Source.
func (m *Memory) Register(s Setting) {
	if s.BootDefault == "" {
		s.BootDefault = s.Value
	}
	if s.ResetValue == "" && s.ResetSource == SourceDefault {
		s.ResetValue = s.BootDefault
	}
	key := strings.ToLower(s.Name)
	cp := s
	m.settings[key] = &cp
}

func (m *Memory) Find(name string) (*Setting, bool) {
	s, ok := m.settings[strings.ToLower(name)]
	return s, ok
}

func (m *Memory) IsCustomClass(prefix, whitelistValue string) bool {
	for _, c := range SplitClassList(whitelistValue) {
		if strings.EqualFold(c, prefix) {
			return true
		}
	}
	return false
}

func (m *Memory) CheckStringHook(name string, value *string, source Source) error {
	if name != "custom_variable_classes" {
		return nil
	}
	// Canonicalize: trim whitespace around each comma-separated class and
	// drop empties, the way the real hook reformats the GUC's display
	// value after accepting it.
	classes := SplitClassList(*value)
	*value = strings.Join(classes, ",")
	return nil
}

func (m *Memory) GetConfigOption(name string) (string, bool) {
	s, ok := m.Find(name)
	if !ok {
		return "", false
	}
	return s.Value, true
}

// SetConfigSourcefile records provenance after a successful commit: the
// file and line whose assignment last set name's value, so a committed
// setting can answer "which file set me" long after the Assignment list
// that carried filename/line is freed.
func (m *Memory) SetConfigSourcefile(name, filename string, line int) {
	s, ok := m.Find(name)
	if !ok {
		return
	}
	s.SourceFile = filename
	s.SourceLine = line
}

// ForEach visits settings in sorted-key order via util.CanonicalMapIter, the
// same deterministic iteration the teacher relies on when rendering DDL from
// a map-shaped schema.
func (m *Memory) ForEach(fn func(*Setting) bool) {
	for _, s := range util.CanonicalMapIter(m.settings) {
		if !fn(s) {
			return
		}
	}
}

func (m *Memory) EnsurePlaceholder(name string) *Setting {
	if s, ok := m.Find(name); ok {
		return s
	}
	s := &Setting{
		Name:        name,
		Kind:        KindString,
		ChangeClass: RuntimeByAny,
		Source:      SourceDefault,
		ResetSource: SourceDefault,
	}
	m.settings[strings.ToLower(name)] = s
	return s
}

// SetConfigOption validates (apply=false) or commits (apply=true) value
// against name's registered kind and change class. A nil value means
// "reset to whatever ResetValue/ResetSource currently hold" — Phase R
// demotes those to the boot default itself before calling this with a nil
// value, so a removed setting ends up back at BootDefault/SourceDefault.
func (m *Memory) SetConfigOption(name string, value *string, ctx Context, source Source, apply bool) error {
	s, ok := m.Find(name)
	if !ok {
		// Qualified names with no registration are handled by the reload
		// engine before reaching here (Phase V case 2); an unqualified
		// unknown name is the caller's mistake to report.
		return fmt.Errorf("unrecognized configuration parameter %q", name)
	}

	if !s.ChangeClass.AllowsChange(ctx) {
		return fmt.Errorf("parameter %q cannot be changed in this context (%s)", name, s.ChangeClass)
	}

	newValue := s.ResetValue
	newSource := s.ResetSource
	if value != nil {
		if err := checkKind(s, *value); err != nil {
			return err
		}
		newValue = *value
		newSource = source
	}

	if apply {
		s.Value = newValue
		s.Source = newSource
		if source == SourceFile && value != nil {
			s.ResetValue = newValue
			s.ResetSource = SourceFile
		}
	}
	s.InFileFlag = true
	return nil
}

func checkKind(s *Setting, value string) error {
	switch s.Kind {
	case KindBoolean:
		switch strings.ToLower(value) {
		case "on", "off", "true", "false", "yes", "no", "1", "0":
			return nil
		}
		return fmt.Errorf("parameter %q requires a Boolean value", s.Name)
	case KindInteger:
		trimmed := strings.TrimRight(value, "kKmMgGBsSmin")
		if trimmed == "" {
			trimmed = value
		}
		// base 0 lets ParseInt recognize the lexer's 0x-prefixed hex
		// integers (§4.1) in addition to plain decimal.
		if _, err := strconv.ParseInt(trimmed, 0, 64); err != nil {
			return fmt.Errorf("invalid value for integer parameter %q: %q", s.Name, value)
		}
		return nil
	case KindReal:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return fmt.Errorf("invalid value for floating-point parameter %q: %q", s.Name, value)
		}
		return nil
	case KindEnum:
		for _, v := range s.EnumValues {
			if strings.EqualFold(v, value) {
				return nil
			}
		}
		return fmt.Errorf("invalid value for enum parameter %q: %q", s.Name, value)
	default:
		return nil
	}
}
