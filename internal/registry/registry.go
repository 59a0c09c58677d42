package registry

import "strings"

// Registry is the contract the reload engine (internal/reload) depends on.
// A Setting's check/assign hooks, and the catalog of settings that exist at
// all, are deliberately external to this contract — reload only needs to
// locate, validate, and commit against whatever is registered.
type Registry interface {
	// Find looks up name case-insensitively. A miss is reported only
	// through the boolean; callers decide what a miss means.
	Find(name string) (*Setting, bool)

	// IsCustomClass reports whether prefix appears as one of the
	// comma-separated entries of whitelistValue.
	IsCustomClass(prefix, whitelistValue string) bool

	// CheckStringHook validates and, for the whitelist setting,
	// canonicalizes *value in place. Returns an error describing why the
	// hook rejected the value.
	CheckStringHook(name string, value *string, source Source) error

	// SetConfigOption is the atomic validate-or-apply primitive. A nil
	// value resets the setting to its boot default. When apply is false
	// this is a dry run: it must not mutate the registry, but on success
	// it does set the setting's InFileFlag (the one deliberate side
	// effect a dry run performs, per the reload engine's Phase V).
	SetConfigOption(name string, value *string, ctx Context, source Source, apply bool) error

	// SetConfigSourcefile records provenance after a successful commit.
	SetConfigSourcefile(name, filename string, line int)

	// GetConfigOption reads the currently effective value, for
	// change-detection logging.
	GetConfigOption(name string) (string, bool)

	// ForEach enumerates every registered setting in a stable order. fn
	// returning false stops the iteration early.
	ForEach(fn func(*Setting) bool)

	// EnsurePlaceholder creates (or returns the existing) setting entry
	// for a qualified custom name whose class is in the whitelist but has
	// no registration yet — called only at commit time, per the open
	// question in spec §9.
	EnsurePlaceholder(name string) *Setting
}

// SplitClassList splits a comma-separated whitelist value into trimmed,
// non-empty entries.
func SplitClassList(whitelistValue string) []string {
	parts := strings.Split(whitelistValue, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
