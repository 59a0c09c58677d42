// Package verify cross-checks a committed reload against a live server of
// one of four backends. It has no bearing on whether a reload succeeds:
// it runs strictly after the fact, the way an operator might run `SHOW
// work_mem` by hand to double check a reload actually took.
package verify

import (
	"context"
	"database/sql"

	"github.com/confreload/confreload/internal/registry"
)

// Mismatch records one setting whose live, server-reported value disagreed
// with what the registry believes it committed.
type Mismatch struct {
	Name     string
	Expected string
	Observed string
}

// Checker queries a running server for the current value of a set of
// settings and reports any that disagree with the registry's committed
// values. Settings the checker has no way to observe (unknown to the
// backend) are silently skipped, not reported as mismatches.
type Checker interface {
	Verify(ctx context.Context, settings []registry.Setting) ([]Mismatch, error)
	Close() error
}

// Config holds what each backend's DSN builder needs to open a connection.
type Config struct {
	Host     string
	Port     int
	Socket   string
	User     string
	Password string
	DbName   string
	SslMode  string
}

// open is the single sql.Open call site every checker constructor routes
// through, so a backend's driver name and DSN are always paired the same way.
func open(driverName, dsn string) (*sql.DB, error) {
	return sql.Open(driverName, dsn)
}
