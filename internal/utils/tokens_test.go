package utils_test

import (
	"strings"
	"testing"

	"github.com/KaramelBytes/musicmax-cli/internal/utils"
)

func TestCountTokens(t *testing.T) {
	cases := []struct {
		name string
		in   string
		min  int
	}{
		{"empty", "", 0},
		{"simple", "hello world", 2},
		{"long", strings.Repeat("a", 4000), 900}, // heuristic ~ 1 tok ≈ 4 chars
	}
	for _, c := range cases {
		if got := utils.CountTokens(c.in); got < c.min {
			t.Errorf("%s: got %d < min %d", c.name, got, c.min)
		}
	}
}

func TestTruncateToTokenLimitKeepsTail(t *testing.T) {
	text := strings.Repeat("abcd ", 1000) + "latest question"
	trunc := utils.TruncateToTokenLimit(text, 300)
	if n := utils.CountTokens(trunc); n > 300 {
		t.Fatalf("tokens=%d exceeds limit", n)
	}
	if !strings.HasSuffix(trunc, "latest question") {
		t.Fatalf("expected the tail to survive truncation, got %q", trunc[len(trunc)-20:])
	}
}
