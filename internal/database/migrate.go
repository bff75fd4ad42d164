package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
)

//go:embed schema.sql
var schema string

// Migrate creates the tables used by the booking service if they do not
// exist yet.  Statements are executed one by one so the DSN does not need
// multiStatements=true.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range statements(schema) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i+1, err)
		}
	}
	return nil
}

// statements splits a script on ";" line endings and drops empty parts.
func statements(script string) []string {
	var out []string
	for _, part := range strings.Split(script, ";\n") {
		part = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(part), ";"))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
