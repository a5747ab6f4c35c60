package logscan

// Event pattern families for the three running totals. Keyword variants in
// the same family may both match one line; the resulting over-count is a
// documented property of the totals, not a defect.
var (
	// MinedPatterns match block production activity.
	MinedPatterns = MustCompileSet(`\bmined\b`, `\bmining\s+completed\b`)

	// ProcessedPatterns match block processing/acceptance activity.
	ProcessedPatterns = MustCompileSet(`\bprocessed\b`, `\baccepted\b`, `\bapplied\b`)

	// SealedPatterns match block sealing activity.
	SealedPatterns = MustCompileSet(`\bsealed\b`, `\bblock\s+sealed\b`)
)

// HeightPatterns extract the chain height. Each pattern captures the numeric
// fragment; MaxInt picks the largest value across all matches so that stale
// low heights earlier in a window never win over newer ones.
var HeightPatterns = MustCompileSet(
	`(?:height|best height|tip height|best|tip)[^0-9]*([0-9,]+)`,
	`(?:number|block[ _-]?number|blk|no\.)[^0-9]*([0-9,]+)`,
	`\bheight=([0-9,]+)\b`,
	`block\s+([0-9,]+)`,
)

// peerCountPatterns extract a numeric peer count, in priority order. The
// `N/M` form captures the numerator (currently connected), not the limit.
var peerCountPatterns = MustCompileSet(
	`\bpeers?\s*[:=]\s*([0-9,]+)\s*/\s*[0-9,]+\b`,
	`\bconnected\s+(?:to\s+)?([0-9,]+)\s+peers?\b`,
	`\b(?:peer_count|peerCount|numPeers|num_peers)\s*[:=]\s*([0-9,]+)\b`,
	`["'](?:peerCount|connectedPeers|peers)["']\s*[:=]\s*([0-9,]+)\b`,
	`\bpeers?\s*[:=]\s*([0-9,]+)\b`,
)

// peerIdentityPatterns extract identity-looking substrings for the unique-ID
// fallback and the peer list. These are case-sensitive: peer IDs are.
var peerIdentityPatterns = []string{
	`\bpeer(?:Id|ID)?=([A-Za-z0-9:/._\-]+)`,
	`(?:/p2p/|/ipfs/)([A-Za-z0-9]+)`,
}
