package verify

import (
	"context"
	"testing"

	"github.com/confreload/confreload/internal/registry"
)

func TestSQLiteChecker_VerifyMatch(t *testing.T) {
	c, err := NewSQLiteChecker(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteChecker: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	if _, err := c.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		t.Fatalf("set pragma: %v", err)
	}

	settings := []registry.Setting{{Name: "busy_timeout", Value: "5000"}}
	mismatches, err := c.Verify(ctx, settings)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(mismatches) != 0 {
		t.Fatalf("got %+v, want no mismatches", mismatches)
	}
}

func TestSQLiteChecker_VerifyMismatch(t *testing.T) {
	c, err := NewSQLiteChecker(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteChecker: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	settings := []registry.Setting{{Name: "busy_timeout", Value: "12345"}}
	mismatches, err := c.Verify(ctx, settings)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(mismatches) != 1 || mismatches[0].Name != "busy_timeout" || mismatches[0].Expected != "12345" || mismatches[0].Observed != "0" {
		t.Fatalf("got %+v", mismatches)
	}
}

func TestSQLiteChecker_UnsafePragmaNameSkipped(t *testing.T) {
	c, err := NewSQLiteChecker(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteChecker: %v", err)
	}
	defer c.Close()

	settings := []registry.Setting{{Name: "busy_timeout; DROP TABLE foo", Value: "1"}}
	mismatches, err := c.Verify(context.Background(), settings)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(mismatches) != 0 {
		t.Fatalf("got %+v, want the unsafe name skipped", mismatches)
	}
}
