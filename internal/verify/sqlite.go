package verify

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/confreload/confreload/internal/registry"
)

// SQLiteChecker verifies a reload against a running SQLite connection via
// PRAGMA, SQLite's closest analogue to a GUC. It uses modernc.org/sqlite,
// the pure-Go driver, so this checker's own tests need no cgo toolchain —
// the cheapest of the four backends to exercise in CI.
type SQLiteChecker struct {
	db *sql.DB
}

func NewSQLiteChecker(path string) (*SQLiteChecker, error) {
	db, err := open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return &SQLiteChecker{db: db}, nil
}

func (c *SQLiteChecker) Close() error { return c.db.Close() }

// Verify runs `PRAGMA <name>` per setting. SQLite's query parameters
// cannot stand in for a pragma name, so only names made of ASCII letters,
// digits and underscores are interpolated; any other name is skipped.
func (c *SQLiteChecker) Verify(ctx context.Context, settings []registry.Setting) ([]Mismatch, error) {
	var mismatches []Mismatch
	for _, s := range settings {
		if !isSafePragmaName(s.Name) {
			continue
		}
		var observed string
		err := c.db.QueryRowContext(ctx, fmt.Sprintf("PRAGMA %s", s.Name)).Scan(&observed)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return mismatches, fmt.Errorf("PRAGMA %s: %w", s.Name, err)
		}
		if observed != s.Value {
			mismatches = append(mismatches, Mismatch{Name: s.Name, Expected: s.Value, Observed: observed})
		}
	}
	return mismatches, nil
}

func isSafePragmaName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
		default:
			return false
		}
	}
	return true
}
