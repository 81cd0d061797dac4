package db

import (
	"testing"

	"emailanalyser/pkg/config"
)

func TestDescribeSQL(t *testing.T) {
	tests := []struct {
		sql, op, table string
	}{
		{"SELECT result FROM email_analyses ORDER BY analyzed_at DESC LIMIT $1", "select", "email_analyses"},
		{"INSERT INTO outbox_events (id) VALUES ($1)", "insert", "outbox_events"},
		{"update analysis_runs set finished_at = now()", "update", "analysis_runs"},
		{"  ", "unknown", "unknown"},
		{"BEGIN", "begin", "unknown"},
	}
	for _, tt := range tests {
		op, table := describeSQL(tt.sql)
		if op != tt.op || table != tt.table {
			t.Errorf("describeSQL(%q) = (%q, %q), want (%q, %q)", tt.sql, op, table, tt.op, tt.table)
		}
	}
}

func TestDSNEscapesPassword(t *testing.T) {
	got := DSN(config.DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss word", Name: "analyser"})
	want := "postgres://app:p%40ss%20word@db:5432/analyser?sslmode=disable"
	if got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
