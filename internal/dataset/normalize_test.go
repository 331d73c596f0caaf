package dataset

import (
	"errors"
	"testing"
)

func TestNormalizeBounds(t *testing.T) {
	tbl, err := New(
		[]string{"track_genre", "popularity", "liveness"},
		[][]string{{"rock", "80", "0.9"}, {"jazz", "40", "0.1"}, {"pop", "60", "0.3"}, {"pop", "", "0.5"}},
		DefaultOptions(),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := Normalize(tbl, []string{"popularity", "liveness"})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	for _, col := range []string{"popularity", "liveness"} {
		lo, hi, err := out.Range(col)
		if err != nil {
			t.Fatalf("Range(%s): %v", col, err)
		}
		if lo != 0 || hi != 1 {
			t.Fatalf("%s range = [%v,%v], want [0,1]", col, lo, hi)
		}
	}
	if got := out.Record(2)["popularity"]; got != "0.5" {
		t.Fatalf("pop popularity = %s, want 0.5", got)
	}
	if got := out.Record(3)["popularity"]; got != "" {
		t.Fatalf("empty cell rewritten to %q", got)
	}
	// source table is untouched
	if got := tbl.Record(0)["popularity"]; got != "80" {
		t.Fatalf("input mutated: %s", got)
	}
}

func TestNormalizeErrors(t *testing.T) {
	tbl, err := New(
		[]string{"track_genre", "popularity", "mode"},
		[][]string{{"rock", "80", "1"}, {"jazz", "40", "1"}},
		DefaultOptions(),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := Normalize(tbl, []string{"energy"}); !errors.Is(err, ErrUnknownColumn) {
		t.Fatalf("expected ErrUnknownColumn, got %v", err)
	}
	if _, err := Normalize(tbl, []string{"track_genre"}); !errors.Is(err, ErrNotNumeric) {
		t.Fatalf("expected ErrNotNumeric, got %v", err)
	}
}

func TestNormalizeConstantColumnBecomesZero(t *testing.T) {
	tbl, err := New(
		[]string{"track_genre", "popularity", "instrumentalness"},
		[][]string{{"rock", "80", "0.0"}, {"jazz", "40", "0.0"}, {"pop", "60", ""}},
		DefaultOptions(),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := Normalize(tbl, []string{"popularity", "instrumentalness"})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	for i, want := range []string{"0", "0", ""} {
		if got := out.Record(i)["instrumentalness"]; got != want {
			t.Fatalf("row %d instrumentalness = %q, want %q", i, got, want)
		}
	}
	if got := out.Record(0)["popularity"]; got != "1" {
		t.Fatalf("rock popularity = %s, want 1", got)
	}

	single, err := New([]string{"track_genre", "popularity"}, [][]string{{"rock", "55"}}, DefaultOptions())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err = Normalize(single, []string{"popularity"})
	if err != nil {
		t.Fatalf("Normalize single row: %v", err)
	}
	if got := out.Record(0)["popularity"]; got != "0" {
		t.Fatalf("single-row popularity = %s, want 0", got)
	}
}
