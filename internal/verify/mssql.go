package verify

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/denisenkom/go-mssqldb"

	"github.com/confreload/confreload/internal/registry"
)

// MSSQLChecker verifies a reload against a running SQL Server instance via
// sp_configure, the server-level GUC equivalent (requires
// `RECONFIGURE` to have already run on the server side).
type MSSQLChecker struct {
	db *sql.DB
}

func NewMSSQLChecker(cfg Config) (*MSSQLChecker, error) {
	db, err := open("sqlserver", mssqlBuildDSN(cfg))
	if err != nil {
		return nil, err
	}
	return &MSSQLChecker{db: db}, nil
}

func (c *MSSQLChecker) Close() error { return c.db.Close() }

func (c *MSSQLChecker) Verify(ctx context.Context, settings []registry.Setting) ([]Mismatch, error) {
	var mismatches []Mismatch
	for _, s := range settings {
		var name string
		var minimum, maximum, configValue, runValue int64
		err := c.db.QueryRowContext(ctx, "EXEC sp_configure @configname = ?", s.Name).
			Scan(&name, &minimum, &maximum, &configValue, &runValue)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return mismatches, fmt.Errorf("sp_configure for %q: %w", s.Name, err)
		}
		observed := fmt.Sprint(runValue)
		if observed != s.Value {
			mismatches = append(mismatches, Mismatch{Name: s.Name, Expected: s.Value, Observed: observed})
		}
	}
	return mismatches, nil
}

// mssqlBuildDSN follows the teacher's mssqlBuildDSN in
// database/mssql/database.go: a sqlserver:// URL built with net/url rather
// than string concatenation, so the password is escaped correctly.
func mssqlBuildDSN(cfg Config) string {
	query := url.Values{}
	query.Add("database", cfg.DbName)
	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		RawQuery: query.Encode(),
	}
	return u.String()
}
