package main

import (
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
)

// suggest returns the closest known name for input, or "".
func suggest(input string, known []string) string {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return ""
	}
	if m := fuzzy.Find(input, known); len(m) > 0 {
		return m[0].Str
	}
	// Inputs with extra characters, e.g. "bottom-centerr", match the other way round.
	best, bestScore := "", 0
	for _, k := range known {
		if m := fuzzy.Find(k, []string{input}); len(m) > 0 && (best == "" || m[0].Score > bestScore) {
			best, bestScore = k, m[0].Score
		}
	}
	return best
}

func withSuggestion(err error, input string, known []string) error {
	if s := suggest(input, known); s != "" {
		return fmt.Errorf("%w; did you mean %q?", err, s)
	}
	return fmt.Errorf("%w; expected one of %s", err, strings.Join(known, ", "))
}
