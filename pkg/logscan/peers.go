package logscan

import (
	"regexp"
	"sort"
	"strings"
)

var peerIdentityRegexes = compileIdentityPatterns()

func compileIdentityPatterns() []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(peerIdentityPatterns))
	for _, expr := range peerIdentityPatterns {
		res = append(res, regexp.MustCompile(expr))
	}
	return res
}

// PeerCount derives the current peer count from a log window. It first tries
// the numeric peer patterns and returns the maximum value found. Only when
// no numeric mention exists anywhere does it fall back to counting unique
// peer identity strings. The two strategies are mutually exclusive: numeric
// and identity evidence are never combined. The second return value is false
// when neither strategy produced a signal.
func PeerCount(text string) (int, bool) {
	if v, ok := MaxInt(peerCountPatterns, text); ok {
		return int(v), true
	}
	seen := map[string]struct{}{}
	for _, re := range peerIdentityRegexes {
		for _, match := range re.FindAllStringSubmatch(text, -1) {
			id := cleanPeerID(match[1])
			if id != "" {
				seen[id] = struct{}{}
			}
		}
	}
	if len(seen) == 0 {
		return 0, false
	}
	return len(seen), true
}

// PeerIdentity is one unique peer observed in a log window.
type PeerIdentity struct {
	// Short is a display-truncated form of the identity.
	Short string
	// Full is the identity exactly as extracted.
	Full string
	// Count is how many times the identity appeared in the window.
	Count int
}

// PeerIdentities collects identity-like substrings from text, counts
// occurrences per unique identity, and returns at most maxItems entries
// ordered by occurrence count descending, identity ascending on ties.
func PeerIdentities(text string, maxItems int) []PeerIdentity {
	counts := map[string]int{}
	for _, re := range peerIdentityRegexes {
		for _, match := range re.FindAllStringSubmatch(text, -1) {
			id := cleanPeerID(match[1])
			if id != "" {
				counts[id]++
			}
		}
	}
	if len(counts) == 0 {
		return nil
	}

	identities := make([]PeerIdentity, 0, len(counts))
	for id, n := range counts {
		identities = append(identities, PeerIdentity{
			Short: ShortPeerID(id),
			Full:  id,
			Count: n,
		})
	}
	sort.Slice(identities, func(i, j int) bool {
		if identities[i].Count != identities[j].Count {
			return identities[i].Count > identities[j].Count
		}
		return identities[i].Full < identities[j].Full
	})
	if maxItems > 0 && len(identities) > maxItems {
		identities = identities[:maxItems]
	}
	return identities
}

// ShortPeerID truncates long identities to a first7…last3 display form.
// Identities of 14 characters or fewer are returned unchanged.
func ShortPeerID(id string) string {
	if len(id) <= 14 {
		return id
	}
	return id[:7] + "…" + id[len(id)-3:]
}

func cleanPeerID(id string) string {
	return strings.TrimRight(strings.TrimSpace(id), ".,;")
}
