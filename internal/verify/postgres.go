package verify

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"

	_ "github.com/lib/pq"
	pgquery "github.com/pganalyze/pg_query_go/v2"

	"github.com/confreload/confreload/internal/registry"
)

// PostgresChecker verifies a reload against a running Postgres server. It
// mirrors the teacher's PostgresDatabase in shape (a *sql.DB opened by one
// NewDatabase-style constructor from a Config) but queries pg_settings instead of
// dumping DDL.
type PostgresChecker struct {
	db *sql.DB
}

// NewPostgresChecker opens a connection the way the teacher's
// postgres.NewDatabase does, via a single DSN built from Config.
func NewPostgresChecker(cfg Config) (*PostgresChecker, error) {
	db, err := open("postgres", postgresBuildDSN(cfg))
	if err != nil {
		return nil, err
	}
	return &PostgresChecker{db: db}, nil
}

func (c *PostgresChecker) Close() error { return c.db.Close() }

// Verify requests the server reload its own configuration via
// pg_reload_conf(), then compares pg_settings.setting against each
// registry.Setting's committed Value. A setting whose ChangeClass is
// OnlyAtBoot is expected to still show pending_restart = true; that is not
// treated as a mismatch, since spec.md explicitly places hot-reloading of
// startup-only parameters out of scope.
func (c *PostgresChecker) Verify(ctx context.Context, settings []registry.Setting) ([]Mismatch, error) {
	if _, err := c.db.ExecContext(ctx, "SELECT pg_reload_conf()"); err != nil {
		return nil, fmt.Errorf("pg_reload_conf: %w", err)
	}

	var mismatches []Mismatch
	for _, s := range settings {
		var observed string
		var pending bool
		err := c.db.QueryRowContext(ctx,
			"SELECT setting, pending_restart FROM pg_settings WHERE name = $1", s.Name,
		).Scan(&observed, &pending)
		if err == sql.ErrNoRows {
			continue // server has no such GUC; nothing to verify against
		}
		if err != nil {
			return mismatches, fmt.Errorf("querying pg_settings for %q: %w", s.Name, err)
		}

		if s.ChangeClass == registry.OnlyAtBoot && pending {
			continue
		}
		if observed != s.Value {
			mismatches = append(mismatches, Mismatch{Name: s.Name, Expected: s.Value, Observed: observed})
		}
	}
	return mismatches, nil
}

// AlterSystemSet builds the `ALTER SYSTEM SET name = 'value'` statement an
// operator can push into postgresql.auto.conf, and validates it with
// pg_query_go before ever sending it over the wire — catching a malformed
// name or value locally rather than as a server-side syntax error.
func AlterSystemSet(name, value string) (string, error) {
	stmt := fmt.Sprintf("ALTER SYSTEM SET %s = %s", pgQuoteIdent(name), pgQuoteLiteral(value))
	if _, err := pgquery.Parse(stmt); err != nil {
		return "", fmt.Errorf("generated statement failed to parse: %w", err)
	}
	return stmt, nil
}

func pgQuoteIdent(s string) string {
	return `"` + s + `"`
}

func pgQuoteLiteral(s string) string {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '\'')
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			out = append(out, '\'')
		}
		out = append(out, s[i])
	}
	out = append(out, '\'')
	return string(out)
}

// postgresBuildDSN follows the teacher's postgresBuildDSN in
// database/postgres/database.go: a postgres:// URL, socket addresses
// expressed via a host query parameter rather than in the authority.
func postgresBuildDSN(cfg Config) string {
	host := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	var options []string
	if cfg.Socket != "" {
		host = ""
		options = append(options, fmt.Sprintf("host=%s", cfg.Socket))
	}
	if cfg.SslMode != "" {
		options = append(options, fmt.Sprintf("sslmode=%s", cfg.SslMode))
	} else if sslmode, ok := os.LookupEnv("PGSSLMODE"); ok {
		options = append(options, fmt.Sprintf("sslmode=%s", sslmode))
	}

	q := ""
	for i, o := range options {
		if i > 0 {
			q += "&"
		}
		q += o
	}
	return fmt.Sprintf("postgres://%s:%s@%s/%s?%s",
		url.QueryEscape(cfg.User), url.QueryEscape(cfg.Password), host, cfg.DbName, q)
}
