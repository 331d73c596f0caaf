package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/musicmax-cli/internal/chat"
	"github.com/KaramelBytes/musicmax-cli/internal/dataset"
)

const cliTracks = `track_name,artists,track_genre,danceability,popularity,speechiness,acousticness,instrumentalness,liveness
Back in Black,AC/DC,rock,0.7,80,0.05,0.01,0.0,0.3
Highway Song,Blackfoot,rock,0.5,70,0.04,0.10,0.1,0.2
So What,Miles Davis,jazz,0.4,40,0.06,0.80,0.6,0.1
Take Five,Dave Brubeck,jazz,0.5,50,0.04,0.70,0.7,0.1
Piano Concerto No. 2,Rachmaninoff,classical,0.2,30,0.03,0.99,0.9,0.1
Clair de Lune,Debussy,classical,0.1,45,0.03,0.98,0.9,0.05
One More Time,Daft Punk,house,0.9,75,0.10,0.02,0.4,0.6
Strobe,deadmau5,house,0.8,60,0.05,0.01,0.9,0.2
`

// setupCLI isolates HOME and writes a small dataset.
func setupCLI(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("MUSICMAX_API_KEY", "")
	t.Setenv("MUSICMAX_PROVIDER", "")
	path := filepath.Join(home, "dataset.csv")
	if err := os.WriteFile(path, []byte(cliTracks), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	return path
}

// runCmd executes the root command with args and returns its output.
func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	// Reset bound variables that persist between invocations
	genresAll = false
	metricsFig = false
	clusterFig = false
	chatAPIKey = ""
	chatNoContext = false
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCmd(t, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v\n%s", args, err, out)
	}
	return out
}

func TestCLI_GenresRankedByPopularity(t *testing.T) {
	path := setupCLI(t)
	out := mustRun(t, "--dataset", path, "genres", "--top", "2")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 3 {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if !strings.Contains(lines[1], "rock") || !strings.Contains(lines[2], "house") {
		t.Fatalf("ranking order wrong:\n%s", out)
	}
	if !strings.Contains(out, "(2 of 4 genres)") {
		t.Fatalf("missing footer:\n%s", out)
	}
}

func TestCLI_MetricsAndCluster(t *testing.T) {
	path := setupCLI(t)
	out := mustRun(t, "--dataset", path, "metrics", "jazz")
	if !strings.Contains(out, "Musical metrics for genre jazz") || !strings.Contains(out, "acousticness") {
		t.Fatalf("unexpected metrics output:\n%s", out)
	}
	if _, err := runCmd(t, "--dataset", path, "metrics", "polka"); err == nil {
		t.Fatalf("expected error for unknown genre")
	}

	out = mustRun(t, "--dataset", path, "cluster", "-k", "2")
	if !strings.Contains(out, "Cluster 0") || !strings.Contains(out, "Cluster 1") || strings.Contains(out, "Cluster 2") {
		t.Fatalf("unexpected cluster output:\n%s", out)
	}
	again := mustRun(t, "--dataset", path, "cluster", "-k", "2")
	if again != out {
		t.Fatalf("clustering is not deterministic:\n%s\nvs\n%s", out, again)
	}
	if _, err := runCmd(t, "--dataset", path, "cluster", "-k", "5"); err == nil {
		t.Fatalf("expected error for k larger than genre count")
	}
}

func TestCLI_AddThenSearch(t *testing.T) {
	path := setupCLI(t)
	out := mustRun(t, "--dataset", path, "add",
		"--set", "track_name=Giant Steps",
		"--set", "artists=John Coltrane",
		"--set", "track_genre=jazz",
		"--set", "popularity=55")
	if !strings.Contains(out, "9 rows") {
		t.Fatalf("unexpected add output: %s", out)
	}
	tbl, err := dataset.Load(path, dataset.DefaultOptions())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if tbl.Len() != 9 || tbl.Record(8)["track_name"] != "Giant Steps" {
		t.Fatalf("appended row not persisted: %v", tbl.Record(tbl.Len()-1))
	}

	out = mustRun(t, "--dataset", path, "search", "giant", "steps")
	if !strings.Contains(out, "track_name: Giant Steps") {
		t.Fatalf("search did not find appended row:\n%s", out)
	}
	out = mustRun(t, "--dataset", path, "search", "theremin")
	if !strings.Contains(out, "No results found.") {
		t.Fatalf("expected no results:\n%s", out)
	}
}

func TestCLI_ChatRequiresKey(t *testing.T) {
	path := setupCLI(t)
	_, err := runCmd(t, "--dataset", path, "chat", "recommend", "jazz")
	if !errors.Is(err, chat.ErrMissingCredential) {
		t.Fatalf("expected missing credential error, got %v", err)
	}
}

func TestCLI_ConfigSetShow(t *testing.T) {
	path := setupCLI(t)
	mustRun(t, "--dataset", path, "config", "set", "default_clusters", "4")
	out := mustRun(t, "--dataset", path, "config", "show")
	if !strings.Contains(out, "default_clusters: 4") {
		t.Fatalf("config not persisted:\n%s", out)
	}
	if _, err := runCmd(t, "config", "set", "api_key", "sk-secret"); err == nil {
		t.Fatalf("api_key must not be settable")
	}
	if _, err := runCmd(t, "config", "set", "provider", "nope"); err == nil {
		t.Fatalf("expected invalid provider error")
	}
}
