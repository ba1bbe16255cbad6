package textutil

import (
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// Contains is the storefront match predicate: `text` must contain `needle`
// verbatim. It is case-sensitive and does no normalization, an empty
// needle never matches.
func Contains(text, needle string) bool {
	if needle == "" {
		return false
	}
	return strings.Contains(text, needle)
}

// ContainsAll reports whether `text` contains every needle, see Contains.
func ContainsAll(text string, needles ...string) bool {
	for _, n := range needles {
		if !Contains(text, n) {
			return false
		}
	}
	return len(needles) > 0
}

// CollapseSpace removes newlines and trims surrounding whitespace, inner
// runs of whitespace are squashed to a single space.
func CollapseSpace(s string) string {
	s = strings.ReplaceAll(s, "\n", "")
	s = strings.TrimSpace(s)
	return whitespaceRegex.ReplaceAllString(s, " ")
}

// Closest returns the candidate most similar to `name` by Jaro-Winkler
// distance. It is only used to explain rejected matches in logs.
func Closest(name string, candidates []string) (string, float64) {
	var best string
	var bestScore float64
	for _, c := range candidates {
		score := matchr.JaroWinkler(name, c, false)
		if score > bestScore {
			best = c
			bestScore = score
		}
	}
	return best, bestScore
}
