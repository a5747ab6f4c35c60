package logscan

import "regexp"

// HealthState is the coarse node state derived from a log window.
type HealthState string

const (
	// HealthError indicates error/fatal/panic keywords were seen.
	HealthError HealthState = "error"

	// HealthSyncing indicates the node is downloading or catching up.
	HealthSyncing HealthState = "syncing"

	// HealthMining indicates block production or processing activity.
	HealthMining HealthState = "mining"

	// HealthConnected indicates peer connectivity but no other activity.
	HealthConnected HealthState = "connected"

	// HealthUnclear indicates no recognized signal in the window.
	HealthUnclear HealthState = "unclear"
)

// healthRule pairs a predicate with its outcome. Rules are evaluated in
// order with first-match-wins semantics, so the slice below is the single
// auditable definition of the classification priority.
type healthRule struct {
	state   HealthState
	message string
	regex   *regexp.Regexp
	// gated rules only fire when the match count reaches the configured
	// error threshold; all other rules fire on a single match.
	gated bool
}

var healthRules = []healthRule{
	{
		state:   HealthError,
		message: "❌ Errors detected - check logs",
		regex:   regexp.MustCompile(`(?i)\berror|fatal|panic\b`),
		gated:   true,
	},
	{
		state:   HealthSyncing,
		message: "⏳ Syncing (downloading blocks)",
		regex:   regexp.MustCompile(`(?i)downloading blocks|sync(?:ing)?|catching up`),
	},
	{
		state:   HealthMining,
		message: "✅ Mining/processing activity",
		regex:   regexp.MustCompile(`(?i)\b(?:mined|mining|accepted|sealed)\b`),
	},
	{
		state:   HealthConnected,
		message: "🔗 Connected to peers",
		regex:   regexp.MustCompile(`(?i)\bconnected\b|\bpeers?\b`),
	},
}

// HealthOptions tunes the health classifier.
type HealthOptions struct {
	// ErrorThreshold is the minimum number of error-keyword matches required
	// before the error rule fires, guarding against a single incidental
	// mention of the word "error". Values <= 1 disable the gate.
	ErrorThreshold int
}

// Health classifies a log window into a HealthState plus a fixed
// human-readable message. Rules are checked in priority order and the first
// match wins: error before syncing before mining before connected.
func Health(text string, opts HealthOptions) (HealthState, string) {
	for _, rule := range healthRules {
		if rule.gated && opts.ErrorThreshold > 1 {
			if len(rule.regex.FindAllStringIndex(text, -1)) >= opts.ErrorThreshold {
				return rule.state, rule.message
			}
			continue
		}
		if rule.regex.MatchString(text) {
			return rule.state, rule.message
		}
	}
	return HealthUnclear, "❔ Status unclear - check logs"
}

// Sync status labels. SyncStatus is deliberately not unified with Health:
// it is a coarser secondary indicator whose success branch requires an exact
// import phrase rather than a keyword family.
const (
	SyncError    = "❌ Error"
	SyncSyncing  = "⏳ Syncing"
	SyncSynced   = "✅ Synced"
	SyncNotAvail = "N/A"
)

var (
	syncErrorRegex    = regexp.MustCompile(`(?i)error`)
	syncSyncingRegex  = regexp.MustCompile(`(?i)sync|downloading block`)
	syncImportedRegex = regexp.MustCompile(`(?i)Imported new chain segment`)
)

// SyncStatus derives the secondary sync indicator from a log window.
func SyncStatus(text string) string {
	switch {
	case syncErrorRegex.MatchString(text):
		return SyncError
	case syncSyncingRegex.MatchString(text):
		return SyncSyncing
	case syncImportedRegex.MatchString(text):
		return SyncSynced
	default:
		return SyncNotAvail
	}
}
