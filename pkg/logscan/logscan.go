// Package logscan provides stateless text extraction over raw container log
// output. All functions are pure: they take a text blob and return derived
// signals (timestamps, counters, metric values) without performing any I/O.
// Log text is treated as opaque; every extraction is heuristic and an absent
// match is represented as a missing value, never an error.
package logscan

import (
	"regexp"
	"strconv"
	"strings"
)

// timestampRegex matches RFC3339-ish timestamps as they appear in
// `docker logs --timestamps` output: date, T or space separator, time,
// optional fractional seconds, optional zone suffix.
var timestampRegex = regexp.MustCompile(`\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+\-][0-2]\d:\d{2})?`)

// Timestamps returns every timestamp-shaped substring in text, in order of
// appearance. The last element is the "most recent" signal used by callers.
func Timestamps(text string) []string {
	return timestampRegex.FindAllString(text, -1)
}

// LastTimestamp returns the final timestamp in text, or "" if none exist.
func LastTimestamp(text string) string {
	matches := Timestamps(text)
	if len(matches) == 0 {
		return ""
	}
	return matches[len(matches)-1]
}

// PatternSet is an ordered list of compiled, case-insensitive patterns that
// together describe one conceptual signal (e.g. "a block was mined").
// Members are not required to be mutually exclusive: a line matching two
// patterns in the same set counts twice, which is an accepted over-count
// for keyword families describing the same event.
type PatternSet []*regexp.Regexp

// MustCompileSet compiles exprs into a PatternSet, forcing case-insensitive
// matching. It panics on an invalid expression and is intended for
// package-level pattern tables.
func MustCompileSet(exprs ...string) PatternSet {
	set := make(PatternSet, 0, len(exprs))
	for _, expr := range exprs {
		set = append(set, regexp.MustCompile(`(?i)`+expr))
	}
	return set
}

var digitsRegex = regexp.MustCompile(`\d+`)

// normalizeInt strips thousands separators and whitespace from s and parses
// the first digit run as a non-negative integer.
func normalizeInt(s string) (int64, bool) {
	s = strings.NewReplacer(",", "", " ", "", "\t", "").Replace(s)
	digits := digitsRegex.FindString(s)
	if digits == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		// Digit run too long to represent; treat as no signal.
		return 0, false
	}
	return v, true
}

// MaxInt finds every numeric match for every pattern in set, normalizes
// thousands separators, and returns the maximum value seen. Patterns may
// carry capture groups; the last non-empty group of each match is the
// numeric fragment, or the whole match when there are no groups.
// The second return value is false when no pattern produced a usable number.
func MaxInt(set PatternSet, text string) (int64, bool) {
	var best int64
	found := false
	for _, re := range set {
		for _, match := range re.FindAllStringSubmatch(text, -1) {
			fragment := match[0]
			for i := len(match) - 1; i >= 1; i-- {
				if match[i] != "" {
					fragment = match[i]
					break
				}
			}
			v, ok := normalizeInt(fragment)
			if !ok || v < 0 {
				continue
			}
			if !found || v > best {
				best = v
			}
			found = true
		}
	}
	return best, found
}

// CountOccurrences returns the total number of matches across all patterns
// in set. Overlapping keyword families intentionally over-count; see
// PatternSet.
func CountOccurrences(set PatternSet, text string) int {
	total := 0
	for _, re := range set {
		total += len(re.FindAllStringIndex(text, -1))
	}
	return total
}
