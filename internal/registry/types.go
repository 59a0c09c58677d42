// Package registry defines the Setting Registry contract the reload engine
// depends on (internal/reload) and an in-memory implementation used to
// bootstrap it, since the definitions of individual settings are deliberately
// external to the reload engine itself.
package registry

import "strings"

// Source is the provenance of a setting's currently-effective value,
// totally ordered by trust from lowest to highest.
type Source int

const (
	SourceDefault Source = iota
	SourceEnvironment
	SourceDynamicDefault
	SourceFile
	SourceArgv
	SourceClient
)

func (s Source) String() string {
	switch s {
	case SourceDefault:
		return "default"
	case SourceEnvironment:
		return "environment"
	case SourceDynamicDefault:
		return "dynamic_default"
	case SourceFile:
		return "file"
	case SourceArgv:
		return "argv"
	case SourceClient:
		return "client"
	default:
		return "unknown"
	}
}

// Outranks reports whether s is strictly more trusted than other.
func (s Source) Outranks(other Source) bool {
	return s > other
}

// ChangeClass is a setting's policy for when a value change is legal.
type ChangeClass int

const (
	OnlyAtBoot ChangeClass = iota
	OnlyBySignalOrBoot
	RuntimeByAny
)

func (c ChangeClass) String() string {
	switch c {
	case OnlyAtBoot:
		return "only_at_boot"
	case OnlyBySignalOrBoot:
		return "only_by_signal_or_boot"
	case RuntimeByAny:
		return "runtime_by_any"
	default:
		return "unknown"
	}
}

// AllowsChange reports whether this change class permits a value change in
// the given reload Context.
func (c ChangeClass) AllowsChange(ctx Context) bool {
	switch c {
	case OnlyAtBoot:
		return ctx == Boot
	case OnlyBySignalOrBoot:
		return true // both Boot and Reload are "signal or boot"
	case RuntimeByAny:
		return true
	default:
		return false
	}
}

// Kind is a setting's value type.
type Kind int

const (
	KindBoolean Kind = iota
	KindInteger
	KindReal
	KindString
	KindEnum
)

// Context distinguishes the initial boot load from a signal-triggered
// reload; it affects error severity and which auxiliary steps run.
type Context int

const (
	Boot Context = iota
	Reload
)

func (c Context) String() string {
	if c == Boot {
		return "boot"
	}
	return "reload"
}

// StackEntry is one pushed value in a setting's override stack.
type StackEntry struct {
	Value  string
	Source Source
}

// Setting is one registered tunable parameter.
type Setting struct {
	Name        string
	Kind        Kind
	ChangeClass ChangeClass

	Value       string
	Source      Source
	ResetValue  string
	ResetSource Source
	Stack       []StackEntry

	// BootDefault is the immutable compiled-in default this setting is
	// reverted to when it is removed from the file (spec's "boot
	// default"), distinct from ResetValue/ResetSource which track
	// whatever a plain RESET would currently restore.
	BootDefault string

	// InFileFlag is transient, cleared and set within a single reload.
	InFileFlag bool

	// SourceFile and SourceLine record which file and line last committed
	// this setting's value, stamped by SetConfigSourcefile after a
	// successful commit. Zero value ("", 0) means the setting has never
	// been set from a file.
	SourceFile string
	SourceLine int

	// EnumValues lists the legal values for KindEnum settings, compared
	// case-insensitively.
	EnumValues []string

	// Display-only metadata, not consulted by the reload engine itself.
	Description string
	Unit        string
	Min, Max    *float64
}

// EqualName reports whether two setting names refer to the same setting
// under the registry's case-insensitive comparison rule.
func EqualName(a, b string) bool {
	return strings.EqualFold(a, b)
}
