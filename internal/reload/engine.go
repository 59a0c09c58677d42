// Package reload implements the reload engine: it parses a configuration
// file (internal/confparser), validates every assignment against a Setting
// Registry (internal/registry) in a dry-run pass, and only then commits —
// preserving the invariant that a failed reload changes nothing.
//
// This mirrors, in shape, how the teacher's schema package diffs a desired
// schema against the current one before ever emitting DDL, and how
// database.RunDDLs runs the whole batch inside one transaction: validate
// everything, then apply everything, never interleaved.
package reload

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/confreload/confreload/internal/confparser"
	"github.com/confreload/confreload/internal/registry"
)

// Options configures one Run call. Every field models an external
// collaborator spec.md places out of scope for the engine itself.
type Options struct {
	// Now supplies the current time for Phase T. Defaults to time.Now.
	Now func() time.Time

	// ReseedEnvironment re-reads environment-derived and dynamic defaults
	// (timezone abbreviations, default client encoding, ...). Called only
	// when Context is Reload, never at Boot — preserving the "unmaintainable
	// crock" behavior spec.md §9 documents rather than unifying the two
	// paths. May be nil.
	ReseedEnvironment func()

	// RootProcess indicates this call runs in the postmaster-equivalent
	// root process rather than a child; it gates per-setting "changed to"
	// change logging, which only the root process emits.
	RootProcess bool

	// DataDir anchors the root file's own includes when the root file is
	// given as a relative path. Passed straight through to confparser.New.
	DataDir string

	// Logger receives the "parameter changed to" / "parameter removed"
	// / "cannot be changed without restarting" log records the reload
	// engine itself emits. Defaults to slog.Default(). Per §7, the
	// severity of the "changed to" and "removed" records depends on
	// RootProcess: the root process logs at LevelWarn (the teacher's "LOG"
	// equivalent), children at LevelDebug ("DEBUG2"). The "cannot be
	// changed without restarting" record is always written at LevelWarn.
	Logger *slog.Logger
}

func (o Options) logLevel() slog.Level {
	if o.RootProcess {
		return slog.LevelWarn
	}
	return slog.LevelDebug
}

// Run executes one reload attempt: Parse, resolve the class whitelist,
// validate every assignment, detect removed settings, re-seed
// environment/dynamic defaults (reload only), apply, and stamp the reload
// time. Any failure before the apply phase leaves reg completely
// unchanged except for each setting's transient InFileFlag.
func Run(fs confparser.FileSystem, reg registry.Registry, rootFile string, ctx registry.Context, opts Options) (*Report, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	// Phase P — Parse.
	parser := confparser.New(fs, opts.DataDir)
	list, err := parser.Parse(rootFile)
	if err != nil {
		return nil, classifyParseError(err)
	}

	// Phase W — Resolve class whitelist.
	whitelist, err := resolveWhitelist(reg, list)
	if err != nil {
		return nil, err
	}

	// Phase C — Clear flags.
	reg.ForEach(func(s *registry.Setting) bool {
		s.InFileFlag = false
		return true
	})

	// Phase V — Validate (dry run).
	if err := validate(reg, list, ctx, whitelist); err != nil {
		return nil, err
	}

	// Phase R — Detect removals.
	removed, warnings := detectRemovals(reg, ctx, opts.Logger, opts.logLevel())

	// Phase E — Re-seed environment/dynamic defaults (reload only).
	if ctx == registry.Reload && opts.ReseedEnvironment != nil {
		opts.ReseedEnvironment()
	}

	// Phase A — Apply.
	changed, err := apply(reg, list, ctx, opts.RootProcess, opts.Logger, opts.logLevel())
	if err != nil {
		return nil, err
	}

	// Phase T — Stamp.
	report := &Report{
		Context:    ctx.String(),
		Changed:    changed,
		Removed:    removed,
		Warnings:   warnings,
		ReloadedAt: opts.Now(),
	}

	// Phase F — Free: nothing to release explicitly; list and its
	// Assignments become garbage once report is returned and the caller
	// drops its reference to list.
	return report, nil
}

// resolveWhitelist implements spec.md §4.5 Phase W.
func resolveWhitelist(reg registry.Registry, list *confparser.List) (string, error) {
	setting, found := reg.Find(confparser.WhitelistSetting)

	if found && setting.ResetSource.Outranks(registry.SourceFile) {
		return setting.ResetValue, nil
	}

	if head, ok := list.Head(); ok {
		value := head.Value
		if err := reg.CheckStringHook(confparser.WhitelistSetting, &value, registry.SourceFile); err != nil {
			return "", &Error{Kind: SemanticReject, Filename: head.Filename, Line: head.SourceLine,
				Name: confparser.WhitelistSetting, Msg: err.Error()}
		}
		return value, nil
	}

	if found {
		return setting.Value, nil
	}
	return "", nil
}

// validate implements spec.md §4.5 Phase V.
func validate(reg registry.Registry, list *confparser.List, ctx registry.Context, whitelist string) error {
	for _, a := range list.Items() {
		if prefix, qualified := a.ClassPrefix(); qualified {
			if !reg.IsCustomClass(prefix, whitelist) {
				return &Error{Kind: SemanticUnknown, Filename: a.Filename, Line: a.SourceLine, Name: a.Name,
					Msg: fmt.Sprintf("unrecognized configuration parameter class %q", prefix)}
			}
			if _, ok := reg.Find(a.Name); !ok {
				// No registration yet: a placeholder is only created at
				// commit time (spec §9 open question).
				continue
			}
		}

		value := a.Value
		if err := reg.SetConfigOption(a.Name, &value, ctx, registry.SourceFile, false); err != nil {
			return &Error{Kind: SemanticReject, Filename: a.Filename, Line: a.SourceLine, Name: a.Name, Msg: err.Error()}
		}
	}
	return nil
}

// detectRemovals implements spec.md §4.5 Phase R.
func detectRemovals(reg registry.Registry, ctx registry.Context, logger *slog.Logger, level slog.Level) ([]RemovedSetting, []Warning) {
	var removed []RemovedSetting
	var warnings []Warning

	reg.ForEach(func(s *registry.Setting) bool {
		if s.ResetSource != registry.SourceFile || s.InFileFlag {
			return true
		}

		// The file's claim on this setting is gone either way: demote
		// every file-sourced provenance tag (source, reset_source, the
		// pushed-value stack) down to default. Whether the *running*
		// value actually moves depends on change_class.
		old := s.Value
		if s.Source == registry.SourceFile {
			s.Source = registry.SourceDefault
		}
		for i := range s.Stack {
			if s.Stack[i].Source == registry.SourceFile {
				s.Stack[i].Source = registry.SourceDefault
			}
		}
		s.ResetSource = registry.SourceDefault
		s.ResetValue = s.BootDefault

		if !s.ChangeClass.AllowsChange(ctx) {
			msg := fmt.Sprintf("parameter %q cannot be changed without restarting the server", s.Name)
			warnings = append(warnings, Warning{Name: s.Name, Msg: msg})
			logger.Warn(msg, "setting", s.Name)
			return true
		}

		_ = reg.SetConfigOption(s.Name, nil, ctx, registry.SourceDefault, true)

		removed = append(removed, RemovedSetting{Name: s.Name, OldValue: old})
		if ctx == registry.Reload {
			logger.Log(context.Background(), level, "parameter removed from configuration file, reset to default", "setting", s.Name)
		}
		return true
	})

	return removed, warnings
}

// apply implements spec.md §4.5 Phase A.
func apply(reg registry.Registry, list *confparser.List, ctx registry.Context, rootProcess bool, logger *slog.Logger, level slog.Level) ([]ChangedSetting, error) {
	var changed []ChangedSetting

	for _, a := range list.Items() {
		if _, qualified := a.ClassPrefix(); qualified {
			if _, ok := reg.Find(a.Name); !ok {
				reg.EnsurePlaceholder(a.Name)
			}
		}

		var pre string
		var havePre bool
		if rootProcess && ctx == registry.Reload {
			pre, havePre = reg.GetConfigOption(a.Name)
		}

		value := a.Value
		if err := reg.SetConfigOption(a.Name, &value, ctx, registry.SourceFile, true); err != nil {
			return nil, &Error{Kind: SemanticReject, Filename: a.Filename, Line: a.SourceLine, Name: a.Name, Msg: err.Error()}
		}
		reg.SetConfigSourcefile(a.Name, a.Filename, a.SourceLine)

		if havePre {
			if post, ok := reg.GetConfigOption(a.Name); ok && post != pre {
				changed = append(changed, ChangedSetting{Name: a.Name, OldValue: pre, NewValue: post})
				logger.Log(context.Background(), level, fmt.Sprintf("parameter %q changed to %q", a.Name, post), "setting", a.Name)
			}
		}
	}

	return changed, nil
}

func classifyParseError(err error) error {
	switch e := err.(type) {
	case *confparser.SyntaxError:
		return &Error{Kind: Syntax, Filename: e.Filename, Line: e.Line, Msg: e.Msg}
	case *confparser.LimitError:
		return &Error{Kind: Limit, Filename: e.Filename, Line: e.Line, Msg: err.Error()}
	case *confparser.FileAccessError:
		return &Error{Kind: FileAccess, Filename: e.Filename, Line: e.Line, Msg: err.Error()}
	default:
		return &Error{Kind: FileAccess, Msg: err.Error()}
	}
}
