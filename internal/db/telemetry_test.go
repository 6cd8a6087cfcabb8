package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestDBOperation(t *testing.T) {
	cases := map[string]string{
		"":                                       "unknown",
		"  select id from snippets":              "SELECT",
		"UPDATE snippets SET title = $1":         "UPDATE",
		"WITH v AS (SELECT 1) DELETE FROM x":     "DELETE",
		"\n\tINSERT INTO users (id) VALUES ($1)": "INSERT",
	}
	for sql, want := range cases {
		if got := dbOperation(sql); got != want {
			t.Fatalf("dbOperation(%q): expected %s, got %s", sql, want, got)
		}
	}
}

func TestStatusLabel(t *testing.T) {
	if statusLabel(nil) != "ok" {
		t.Fatal("nil error should be ok")
	}
	if statusLabel(fmt.Errorf("scan: %w", pgx.ErrNoRows)) != "no_rows" {
		t.Fatal("wrapped ErrNoRows should be no_rows")
	}
	if statusLabel(errors.New("boom")) != "error" {
		t.Fatal("other errors should be error")
	}
}
