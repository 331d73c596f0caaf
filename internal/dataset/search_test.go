package dataset

import "testing"

func TestSearchCaseInsensitive(t *testing.T) {
	tbl, err := New(
		[]string{"track_name", "artists", "track_genre"},
		[][]string{
			{"Highway Song", "Blackfoot", "rock"},
			{"Piano Concerto No. 2", "Rachmaninoff", "classical"},
			{"Piano Man", "Billy Joel", "pop"},
			{"Solo Piano", "Chilly Gonzales", "piano"},
			{"Piano Sonata", "Mozart", "classical"},
		},
		DefaultOptions(),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got := Search(tbl, "piano", 0)
	if len(got) != DefaultSearchLimit {
		t.Fatalf("matches = %d, want %d", len(got), DefaultSearchLimit)
	}
	if got[0]["track_name"] != "Piano Concerto No. 2" {
		t.Fatalf("first match = %v", got[0])
	}
	if got[2]["track_name"] != "Solo Piano" {
		t.Fatalf("matches not in table order: %v", got)
	}

	if res := Search(tbl, "PIANO CONCERTO", 3); len(res) != 1 {
		t.Fatalf("expected one match for upper-case query, got %v", res)
	}
	if res := Search(tbl, "theremin", 3); res != nil {
		t.Fatalf("expected no results, got %v", res)
	}

	// Column names are part of each rendered row.
	if res := Search(tbl, "ARTISTS", 2); len(res) != 2 || res[0]["track_name"] != "Highway Song" {
		t.Fatalf("expected header text to match every row, got %v", res)
	}
}
