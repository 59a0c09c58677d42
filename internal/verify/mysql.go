package verify

import (
	"context"
	"database/sql"
	"fmt"

	driver "github.com/go-sql-driver/mysql"

	"github.com/confreload/confreload/internal/registry"
)

// MySQLChecker verifies a reload against a running MySQL server by running
// SHOW VARIABLES, the closest MySQL has to pg_settings.
type MySQLChecker struct {
	db *sql.DB
}

func NewMySQLChecker(cfg Config) (*MySQLChecker, error) {
	db, err := open("mysql", mysqlBuildDSN(cfg))
	if err != nil {
		return nil, err
	}
	return &MySQLChecker{db: db}, nil
}

func (c *MySQLChecker) Close() error { return c.db.Close() }

func (c *MySQLChecker) Verify(ctx context.Context, settings []registry.Setting) ([]Mismatch, error) {
	var mismatches []Mismatch
	for _, s := range settings {
		var varName, observed string
		err := c.db.QueryRowContext(ctx, "SHOW VARIABLES LIKE ?", s.Name).Scan(&varName, &observed)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return mismatches, fmt.Errorf("SHOW VARIABLES for %q: %w", s.Name, err)
		}
		if observed != s.Value {
			mismatches = append(mismatches, Mismatch{Name: s.Name, Expected: s.Value, Observed: observed})
		}
	}
	return mismatches, nil
}

// mysqlBuildDSN follows the teacher's mysqlBuildDSN in
// database/mysql/database.go, using the driver's own Config/FormatDSN
// rather than hand-assembling a DSN string.
func mysqlBuildDSN(cfg Config) string {
	c := driver.NewConfig()
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.DBName = cfg.DbName
	c.TLSConfig = cfg.SslMode
	if cfg.Socket == "" {
		c.Net = "tcp"
		c.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	} else {
		c.Net = "unix"
		c.Addr = cfg.Socket
	}
	return c.FormatDSN()
}
